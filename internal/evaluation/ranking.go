package evaluation

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/fileio"
)

// rankingFields is the column count of a trec-style ranking line:
// qid, unused, pid, rank, unused, unused.
const rankingFields = 6

// Rankings maps each evaluation query to its ranked passage ids.
type Rankings struct {
	lists map[uint64][]uint64
}

// Len returns the number of distinct queries that were ranked.
func (r *Rankings) Len() int {
	if r == nil {
		return 0
	}
	return len(r.lists)
}

// Get returns the ranked passages of qid in rank order.
func (r *Rankings) Get(qid uint64) []uint64 {
	if r == nil {
		return nil
	}
	return r.lists[qid]
}

// LoadRankings reads a ranking file, keeping only queries in eval.
func LoadRankings(path string, eval *roaring64.Bitmap) (*Rankings, error) {
	f, err := fileio.Open(path)
	if err != nil {
		return nil, apperrors.IOError("opening rankings "+path, err)
	}
	defer f.Close()
	return ReadRankings(f, path, eval)
}

// ReadRankings parses ranking lines from r. Lines for queries outside eval
// are skipped. For kept queries the declared rank must equal the number of
// entries already read for that query plus one; anything else aborts the
// read with a rank-integrity error.
func ReadRankings(r io.Reader, source string, eval *roaring64.Bitmap) (*Rankings, error) {
	rk := &Rankings{lists: make(map[uint64][]uint64)}

	err := fileio.ScanLines(r, func(lineNo int, line []byte) error {
		fields := bytes.Fields(line)
		if len(fields) != rankingFields {
			return apperrors.ParseError(source, lineNo,
				fmt.Errorf("expected %d fields, got %d", rankingFields, len(fields)))
		}

		qid, err := strconv.ParseUint(string(fields[0]), 10, 64)
		if err != nil {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("qid: %w", err))
		}
		pid, err := strconv.ParseUint(string(fields[2]), 10, 64)
		if err != nil {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("pid: %w", err))
		}
		rank, err := strconv.Atoi(string(fields[3]))
		if err != nil {
			return apperrors.ParseError(source, lineNo, fmt.Errorf("rank: %w", err))
		}

		if !eval.Contains(qid) {
			return nil
		}

		list := append(rk.lists[qid], pid)
		rk.lists[qid] = list
		if rank != len(list) {
			return apperrors.RankIntegrityError(qid, lineNo, rank, len(list))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rk, nil
}
