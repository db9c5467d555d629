package fileio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOpen_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queries.jsonl")

	w, err := Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "{\"qid\": 1}\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "{\"qid\": 1}\n", string(data))
}

func TestCreateOpen_Zstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.jsonl.zst")
	payload := strings.Repeat("{\"id\":\"a\",\"text\":\"domain drift\"}\n", 100)

	w, err := Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Less(t, len(raw), len(payload), "zstd output should be smaller than input")

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestCompress(t *testing.T) {
	payload := []byte(strings.Repeat("recall ", 50))
	out, err := Compress(payload)
	require.NoError(t, err)

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	back, err := dec.DecodeAll(out, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, back)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestScanLines(t *testing.T) {
	input := "first\n\n  \nsecond  \nthird"
	var got []string
	var lines []int
	err := ScanLines(strings.NewReader(input), func(lineNo int, line []byte) error {
		got = append(got, string(line))
		lines = append(lines, lineNo)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, got)
	assert.Equal(t, []int{1, 4, 5}, lines)
}

func TestScanLines_StopsOnError(t *testing.T) {
	sentinel := errors.New("stop")
	calls := 0
	err := ScanLines(strings.NewReader("a\nb\nc\n"), func(int, []byte) error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}
