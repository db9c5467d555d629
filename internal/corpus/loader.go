package corpus

import (
	"bytes"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/fileio"
)

// Fields names the JSON paths (gjson syntax) of the id and text of a record.
type Fields struct {
	ID   string
	Text string
}

// DefaultFields reads "id" and "text".
func DefaultFields() Fields {
	return Fields{ID: "id", Text: "text"}
}

// LoadJSONL reads a domain collection from path. Paths ending in .zst are
// decompressed on the fly.
func LoadJSONL(path string, fields Fields) ([]Item, error) {
	f, err := fileio.Open(path)
	if err != nil {
		return nil, apperrors.IOError(fmt.Sprintf("opening corpus %s", path), err)
	}
	defer f.Close()

	return ReadJSONL(f, path, fields)
}

// ReadJSONL reads one record per non-blank line of r. source names r in errors.
func ReadJSONL(r io.Reader, source string, fields Fields) ([]Item, error) {
	def := DefaultFields()
	if fields.ID == "" {
		fields.ID = def.ID
	}
	if fields.Text == "" {
		fields.Text = def.Text
	}

	var items []Item
	err := fileio.ScanLines(r, func(lineNo int, line []byte) error {
		if !gjson.ValidBytes(line) {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("invalid JSON record"))
		}

		id := gjson.GetBytes(line, fields.ID)
		if !id.Exists() {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("missing id field %q", fields.ID))
		}
		text := gjson.GetBytes(line, fields.Text)

		items = append(items, Item{
			ID:      id.String(),
			Text:    text.String(),
			HasText: text.Exists(),
			Raw:     bytes.Clone(line),
		})
		return nil
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeParse) {
			return nil, err
		}
		return nil, apperrors.IOError(fmt.Sprintf("reading corpus %s", source), err)
	}

	return items, nil
}
