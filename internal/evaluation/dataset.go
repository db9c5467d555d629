package evaluation

import (
	"fmt"
	"io"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/tidwall/gjson"

	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/fileio"
)

// LoadDataset reads the evaluation query ids and their ground truth.
func LoadDataset(queryPath, dataPath string) (*Dataset, error) {
	queries, err := loadQueryIDs(queryPath)
	if err != nil {
		return nil, err
	}

	f, err := fileio.Open(dataPath)
	if err != nil {
		return nil, apperrors.IOError("opening ground truth "+dataPath, err)
	}
	defer f.Close()

	judgments, err := ReadJudgments(f, dataPath, queries)
	if err != nil {
		return nil, err
	}

	return &Dataset{Queries: queries, Judgments: judgments}, nil
}

func loadQueryIDs(path string) (*roaring64.Bitmap, error) {
	f, err := fileio.Open(path)
	if err != nil {
		return nil, apperrors.IOError("opening query file "+path, err)
	}
	defer f.Close()
	return ReadQueryIDs(f, path)
}

// ReadQueryIDs collects the qid field of every JSON line in r.
func ReadQueryIDs(r io.Reader, source string) (*roaring64.Bitmap, error) {
	ids := roaring64.New()
	err := fileio.ScanLines(r, func(lineNo int, line []byte) error {
		if !gjson.ValidBytes(line) {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("invalid JSON"))
		}
		qid, err := parseJSONID(gjson.GetBytes(line, "qid"))
		if err != nil {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("qid: %w", err))
		}
		ids.Add(qid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ReadJudgments reads qid/answer_pids lines from r, keeping those whose qid
// is in eval. Every line is parsed, so a malformed line outside the
// evaluation set still fails the read.
func ReadJudgments(r io.Reader, source string, eval *roaring64.Bitmap) ([]Judgment, error) {
	var out []Judgment
	err := fileio.ScanLines(r, func(lineNo int, line []byte) error {
		if !gjson.ValidBytes(line) {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("invalid JSON"))
		}
		fields := gjson.GetManyBytes(line, "qid", "answer_pids")

		qid, err := parseJSONID(fields[0])
		if err != nil {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("qid: %w", err))
		}
		if !fields[1].IsArray() {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("answer_pids: expected array"))
		}

		answers := roaring64.New()
		for _, v := range fields[1].Array() {
			pid, err := parseJSONID(v)
			if err != nil {
				return apperrors.ParseError(source, lineNo, fmt.Errorf("answer_pids: %w", err))
			}
			answers.Add(pid)
		}

		if eval.Contains(qid) {
			out = append(out, Judgment{QID: qid, Answers: answers})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseJSONID accepts ids written either as JSON numbers or numeric strings.
func parseJSONID(v gjson.Result) (uint64, error) {
	switch v.Type {
	case gjson.Number:
		return strconv.ParseUint(v.Raw, 10, 64)
	case gjson.String:
		return strconv.ParseUint(v.Str, 10, 64)
	case gjson.Null:
		if !v.Exists() {
			return 0, fmt.Errorf("missing")
		}
	}
	return 0, fmt.Errorf("not an id: %s", v.Raw)
}
