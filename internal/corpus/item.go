// Package corpus loads domain collections: one JSON record per line, each
// carrying an identifier and a text body.
package corpus

import (
	"encoding/json"
)

// Domain labels one of the two collections a drift schedule moves between.
type Domain string

// The two domains of a drift schedule.
const (
	DomainA Domain = "A"
	DomainB Domain = "B"
)

// Item is one source record of a domain collection.
type Item struct {
	ID   string
	Text string

	// HasText is false when the record carried no text field.
	HasText bool

	// Raw is the original JSON record. When present it is re-emitted
	// untouched so downstream trainers see every source field.
	Raw json.RawMessage
}

type itemJSON struct {
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

// MarshalJSON emits the raw source record when available.
func (it Item) MarshalJSON() ([]byte, error) {
	if len(it.Raw) > 0 {
		return it.Raw, nil
	}
	return json.Marshal(itemJSON{ID: it.ID, Text: it.Text})
}
