package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format writes the human-readable report.
func (r *Report) Format(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"# query: %d: %d\nSuccess@%d: %.1f\nRecall@%d: %.1f\nMRR@%d: %.4f\n",
		r.NumRanked, r.NumScored,
		r.K, r.Success,
		r.K, r.Recall,
		r.K, r.MRR,
	)
	if err != nil {
		return err
	}
	if r.HasPrevious {
		_, err = fmt.Fprintf(w, "Forget: %.1f\nFWT: %.1f\n", r.Forget, r.FWT)
	}
	return err
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Format writes each phase report followed by the mean Forget and FWT.
func (s *SequenceReport) Format(w io.Writer) error {
	for _, r := range s.Phases {
		if _, err := fmt.Fprintf(w, "## phase %d\n", r.Phase); err != nil {
			return err
		}
		if err := r.Format(w); err != nil {
			return err
		}
	}
	if len(s.Phases) > 1 {
		_, err := fmt.Fprintf(w, "## mean\nForget: %.1f\nFWT: %.1f\n", s.MeanForget, s.MeanFWT)
		return err
	}
	return nil
}

// WriteJSON writes the sequence report as indented JSON.
func (s *SequenceReport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
