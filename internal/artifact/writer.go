package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/ricesearch/driftbench/internal/drift"
	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/fileio"
	"github.com/ricesearch/driftbench/internal/pkg/hash"
)

// Output formats.
const (
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"
)

// ManifestName is the manifest file name inside a run directory.
const ManifestName = "manifest.json"

// Writer encodes sessions and stores them under one run directory.
type Writer struct {
	store    Store
	runDir   string
	format   string
	compress bool
}

// NewWriter creates a writer placing files under runDir in store.
func NewWriter(store Store, runDir, format string, compress bool) (*Writer, error) {
	if format != FormatJSONL && format != FormatParquet {
		return nil, apperrors.ValidationError(fmt.Sprintf("unknown output format %q", format))
	}
	return &Writer{store: store, runDir: runDir, format: format, compress: compress}, nil
}

// FileName returns the stored name for role.
func (w *Writer) FileName(role string) string {
	name := role + ".sessions." + w.format
	if w.format == FormatJSONL && w.compress {
		name += fileio.ZstdExt
	}
	return path.Join(w.runDir, name)
}

// WriteSessions encodes and stores the sessions of one role.
func (w *Writer) WriteSessions(ctx context.Context, role string, sessions []drift.Session) (FileEntry, error) {
	var (
		data []byte
		err  error
	)
	if w.format == FormatParquet {
		data, err = EncodeParquet(sessions, w.compress)
	} else {
		data, err = EncodeJSONL(sessions, w.compress)
	}
	if err != nil {
		return FileEntry{}, apperrors.InternalError("encoding "+role+" sessions", err)
	}

	name := w.FileName(role)
	if err := w.store.Put(ctx, name, data); err != nil {
		return FileEntry{}, err
	}

	return FileEntry{
		Role:     role,
		Name:     name,
		Location: w.store.Location(name),
		Sessions: len(sessions),
		Items:    countRows(sessions),
		Bytes:    len(data),
		SHA256:   hash.SHA256(data),
	}, nil
}

// WriteManifest stores m as indented JSON and returns its name.
func (w *Writer) WriteManifest(ctx context.Context, m *Manifest) (string, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", apperrors.InternalError("encoding manifest", err)
	}
	name := path.Join(w.runDir, ManifestName)
	if err := w.store.Put(ctx, name, append(data, '\n')); err != nil {
		return "", err
	}
	return name, nil
}

// ReadManifest loads the manifest of runDir.
func ReadManifest(ctx context.Context, store Store, runDir string) (*Manifest, error) {
	data, err := store.Get(ctx, path.Join(runDir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperrors.ParseError(ManifestName, 0, err)
	}
	return &m, nil
}
