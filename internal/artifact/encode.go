package artifact

import (
	"bytes"
	"encoding/json"

	"github.com/parquet-go/parquet-go"

	"github.com/ricesearch/driftbench/internal/drift"
	"github.com/ricesearch/driftbench/internal/pkg/fileio"
)

// Row kinds in the parquet layout.
const (
	KindItem      = "item"
	KindComposite = "composite"
)

// SessionRow is the flat parquet schema: one row per session item.
type SessionRow struct {
	Position int64   `parquet:"position"`
	Pass     string  `parquet:"pass"`
	RatioA   float64 `parquet:"ratio_a"`
	RatioB   float64 `parquet:"ratio_b"`
	Offset   int64   `parquet:"offset"` // index within the session
	Kind     string  `parquet:"kind"`

	ItemID string `parquet:"item_id"`
	Text   string `parquet:"text"`
	Record string `parquet:"record"` // source JSON, items only

	CompositeID     int64  `parquet:"composite_id"`
	DomainASourceID string `parquet:"domain_a_source_id"`
	DomainBSourceID string `parquet:"domain_b_source_id"`
	DomainAIndex    int64  `parquet:"domain_a_index"`
	DomainBIndex    int64  `parquet:"domain_b_index"`
}

// EncodeJSONL writes one JSON session per line, zstd-compressed when compress is set.
func EncodeJSONL(sessions []drift.Session, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, s := range sessions {
		if err := enc.Encode(s); err != nil {
			return nil, err
		}
	}
	if !compress {
		return buf.Bytes(), nil
	}
	return fileio.Compress(buf.Bytes())
}

// Rows flattens sessions into parquet rows.
func Rows(sessions []drift.Session) []SessionRow {
	rows := make([]SessionRow, 0, countRows(sessions))
	for _, s := range sessions {
		base := SessionRow{
			Position: int64(s.Position),
			Pass:     string(s.Pass),
			RatioA:   s.RatioA,
			RatioB:   s.RatioB,
		}
		for i, it := range s.Items {
			row := base
			row.Offset = int64(i)
			row.Kind = KindItem
			row.ItemID = it.ID
			row.Text = it.Text
			row.Record = string(it.Raw)
			rows = append(rows, row)
		}
		for i, c := range s.Composites {
			row := base
			row.Offset = int64(i)
			row.Kind = KindComposite
			row.Text = c.Text
			row.CompositeID = int64(c.ID)
			row.DomainASourceID = c.DomainASourceID
			row.DomainBSourceID = c.DomainBSourceID
			row.DomainAIndex = int64(c.DomainAIndex)
			row.DomainBIndex = int64(c.DomainBIndex)
			rows = append(rows, row)
		}
	}
	return rows
}

// EncodeParquet writes sessions as parquet rows, zstd-compressing column pages when compress is set.
func EncodeParquet(sessions []drift.Session, compress bool) ([]byte, error) {
	var opts []parquet.WriterOption
	if compress {
		opts = append(opts, parquet.Compression(&parquet.Zstd))
	}

	var buf bytes.Buffer
	if err := parquet.Write(&buf, Rows(sessions), opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func countRows(sessions []drift.Session) int {
	n := 0
	for _, s := range sessions {
		n += s.Len()
	}
	return n
}
