package drift

import (
	"github.com/ricesearch/driftbench/internal/corpus"
)

// Pass distinguishes the two halves of an evolved partition.
type Pass string

// Partition passes.
const (
	PassForward Pass = "forward"
	PassReverse Pass = "reverse"
)

// CompositeItem is a document synthesized by the incremental strategy from a
// prefix of one domain-A and one domain-B document.
type CompositeItem struct {
	ID              int    `json:"id"`
	DomainASourceID string `json:"domain_a_source_id"`
	DomainBSourceID string `json:"domain_b_source_id"`
	DomainAIndex    int    `json:"domain_a_index"`
	DomainBIndex    int    `json:"domain_b_index"`

	// Text is the leading domain's prefix followed by the trailing domain's
	// prefix. The leading domain is A in a forward pass and B in a reverse pass.
	Text string `json:"text"`
}

// Session is one position of a drift curriculum. Exactly one of Items and
// Composites is populated.
type Session struct {
	Position int     `json:"position"`
	Pass     Pass    `json:"pass,omitempty"`
	RatioA   float64 `json:"ratio_a"`
	RatioB   float64 `json:"ratio_b"`

	Items      []corpus.Item   `json:"items,omitempty"`
	Composites []CompositeItem `json:"composites,omitempty"`
}

// Len returns the number of items in the session.
func (s Session) Len() int {
	if s.Composites != nil {
		return len(s.Composites)
	}
	return len(s.Items)
}

// swapDomains relabels a session produced with the domain arguments swapped
// so that A and B refer to the caller's domains again.
func (s Session) swapDomains(idOffset int) Session {
	s.RatioA, s.RatioB = s.RatioB, s.RatioA
	if s.Composites == nil {
		return s
	}

	composites := make([]CompositeItem, len(s.Composites))
	for i, c := range s.Composites {
		composites[i] = CompositeItem{
			ID:              c.ID + idOffset,
			DomainASourceID: c.DomainBSourceID,
			DomainBSourceID: c.DomainASourceID,
			DomainAIndex:    c.DomainBIndex,
			DomainBIndex:    c.DomainAIndex,
			Text:            c.Text,
		}
	}
	s.Composites = composites
	return s
}

func countItems(sessions []Session) int {
	n := 0
	for _, s := range sessions {
		n += s.Len()
	}
	return n
}
