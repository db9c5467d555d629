package experiment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/driftbench/internal/artifact"
	"github.com/ricesearch/driftbench/internal/bus"
	"github.com/ricesearch/driftbench/internal/config"
	"github.com/ricesearch/driftbench/internal/drift"
	"github.com/ricesearch/driftbench/internal/evaluation"
	"github.com/ricesearch/driftbench/internal/history"
	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
)

type memoryReports struct {
	mu      sync.Mutex
	entries map[string][]history.Entry
}

func newMemoryReports() *memoryReports {
	return &memoryReports{entries: make(map[string][]history.Entry)}
}

func (m *memoryReports) SaveReports(_ context.Context, experiment string, reports []*evaluation.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range reports {
		m.entries[experiment] = append(m.entries[experiment], history.Entry{Experiment: experiment, Report: r})
	}
	return nil
}

func (m *memoryReports) LoadReports(_ context.Context, experiment string) ([]history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries[experiment]) == 0 {
		return nil, apperrors.NotFoundError("experiment " + experiment)
	}
	return m.entries[experiment], nil
}

func (m *memoryReports) Experiments(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	return names, nil
}

func (m *memoryReports) DeleteExperiment(_ context.Context, experiment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, experiment)
	return nil
}

func writeCollection(t *testing.T, dir, name, prefix string, n int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "{\"id\": \"%s%d\", \"text\": \"%s text number %d\"}\n", prefix, i, prefix, i)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func testConfig(method string, length, size int) *config.Config {
	cfg := config.Default()
	cfg.Drift.Method = method
	cfg.Drift.PartitionLength = length
	cfg.Drift.SessionSize = size
	cfg.Drift.Seed = 7
	return cfg
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	req := GenerateRequest{
		QueriesA: writeCollection(t, dir, "qa.jsonl", "qa", 4),
		QueriesB: writeCollection(t, dir, "qb.jsonl", "qb", 4),
		DocsA:    writeCollection(t, dir, "da.jsonl", "da", 8),
		DocsB:    writeCollection(t, dir, "db.jsonl", "db", 8),
		RunID:    "run-1",
	}

	store := artifact.NewLocalStore(filepath.Join(dir, "out"))
	events := bus.NewMemoryBus(nil)
	defer events.Close()

	received := make(chan bus.Event, 1)
	require.NoError(t, events.Subscribe(context.Background(), bus.TopicSessionsGenerated, func(ctx context.Context, e bus.Event) error {
		received <- e
		return nil
	}))

	svc := NewService(testConfig("sudden", 2, 2), store, nil, WithBus(events), WithClock(fixedClock))
	res, err := svc.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "run-1/manifest.json", res.ManifestName)
	assert.Equal(t, "sudden", res.Manifest.Method)
	assert.Equal(t, fixedClock(), res.Manifest.CreatedAt)
	assert.Len(t, res.Manifest.Inputs, 4)
	require.Len(t, res.Manifest.Files, 2)
	assert.Equal(t, RoleQueries, res.Manifest.Files[0].Role)
	assert.Equal(t, 4, res.Manifest.Files[0].Sessions)
	assert.Equal(t, 8, res.Manifest.Files[0].Items)

	queries := res.Sessions[RoleQueries]
	require.Len(t, queries, 4)
	assert.Equal(t, drift.PassForward, queries[0].Pass)
	assert.Equal(t, drift.PassReverse, queries[3].Pass)
	for _, it := range queries[0].Items {
		assert.True(t, strings.HasPrefix(it.ID, "qa"), it.ID)
	}
	for _, it := range queries[2].Items {
		assert.True(t, strings.HasPrefix(it.ID, "qb"), it.ID)
	}

	names, err := store.List(context.Background(), "run-1/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"run-1/documents.sessions.jsonl",
		"run-1/manifest.json",
		"run-1/queries.sessions.jsonl",
	}, names)

	loaded, err := artifact.ReadManifest(context.Background(), store, "run-1")
	require.NoError(t, err)
	assert.Equal(t, res.Manifest.Files, loaded.Files)

	select {
	case e := <-received:
		assert.Equal(t, "run-1", e.RunID)
		var m artifact.Manifest
		require.NoError(t, e.Decode(&m))
		assert.Equal(t, "run-1", m.RunID)
	case <-time.After(time.Second):
		t.Fatal("no generation event published")
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	dir := t.TempDir()
	qa := writeCollection(t, dir, "qa.jsonl", "qa", 30)
	qb := writeCollection(t, dir, "qb.jsonl", "qb", 30)
	store := artifact.NewLocalStore(filepath.Join(dir, "out"))

	run := func(runID string) artifact.FileEntry {
		svc := NewService(testConfig("gradual", 3, 5), store, nil)
		res, err := svc.Generate(context.Background(), GenerateRequest{QueriesA: qa, QueriesB: qb, RunID: runID})
		require.NoError(t, err)
		require.Len(t, res.Manifest.Files, 1)
		return res.Manifest.Files[0]
	}

	first, second := run("a"), run("b")
	assert.Equal(t, first.SHA256, second.SHA256)
	assert.NotEqual(t, first.Name, second.Name)
}

func TestGenerate_IncrementalParquet(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("incremental", 2, 2)
	cfg.Output.Format = artifact.FormatParquet
	cfg.Output.Compress = true

	svc := NewService(cfg, artifact.NewLocalStore(filepath.Join(dir, "out")), nil)
	res, err := svc.Generate(context.Background(), GenerateRequest{
		DocsA: writeCollection(t, dir, "da.jsonl", "da", 4),
		DocsB: writeCollection(t, dir, "db.jsonl", "db", 4),
		RunID: "inc",
	})
	require.NoError(t, err)

	require.Len(t, res.Manifest.Files, 1)
	entry := res.Manifest.Files[0]
	assert.Equal(t, "inc/documents.sessions.parquet", entry.Name)
	assert.Equal(t, 8, entry.Items)

	docs := res.Sessions[RoleDocuments]
	require.Len(t, docs, 4)
	assert.Equal(t, 0, docs[0].Composites[0].ID)
	assert.Equal(t, 7, docs[3].Composites[1].ID)
}

func TestGenerate_Errors(t *testing.T) {
	dir := t.TempDir()
	small := writeCollection(t, dir, "small.jsonl", "s", 1)
	large := writeCollection(t, dir, "large.jsonl", "l", 10)

	t.Run("unknown method fails before loading", func(t *testing.T) {
		svc := NewService(testConfig("abrupt", 2, 2), artifact.NewLocalStore(dir), nil)
		_, err := svc.Generate(context.Background(), GenerateRequest{QueriesA: "missing-a", QueriesB: "missing-b"})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidStrategy), "got %v", err)
	})

	t.Run("no inputs", func(t *testing.T) {
		svc := NewService(testConfig("sudden", 2, 2), artifact.NewLocalStore(dir), nil)
		_, err := svc.Generate(context.Background(), GenerateRequest{})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("half a pair", func(t *testing.T) {
		svc := NewService(testConfig("sudden", 2, 2), artifact.NewLocalStore(dir), nil)
		_, err := svc.Generate(context.Background(), GenerateRequest{DocsA: large})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("missing file", func(t *testing.T) {
		svc := NewService(testConfig("sudden", 2, 2), artifact.NewLocalStore(dir), nil)
		_, err := svc.Generate(context.Background(), GenerateRequest{QueriesA: large, QueriesB: filepath.Join(dir, "none.jsonl")})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeIO), "got %v", err)
	})

	t.Run("exhausted writes nothing", func(t *testing.T) {
		out := artifact.NewLocalStore(filepath.Join(dir, "exhausted"))
		svc := NewService(testConfig("sudden", 2, 2), out, nil)
		_, err := svc.Generate(context.Background(), GenerateRequest{
			QueriesA: large, QueriesB: large,
			DocsA: small, DocsB: large,
			RunID: "x",
		})
		require.True(t, apperrors.IsCode(err, apperrors.CodeScheduleExhausted), "got %v", err)

		names, err := out.List(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func writeEvalInputs(t *testing.T, dir string) (queries, data string, phases []string) {
	t.Helper()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}
	queries = write("queries.jsonl", "{\"qid\": 1}\n{\"qid\": 2}\n")
	data = write("data.jsonl", "{\"qid\": 1, \"answer_pids\": [7]}\n{\"qid\": 2, \"answer_pids\": [3]}\n")
	phases = []string{
		write("p0.tsv", "1 Q0 7 1 1 r\n2 Q0 3 1 1 r\n"),
		write("p1.tsv", "1 Q0 5 1 1 r\n2 Q0 3 1 1 r\n"),
	}
	return queries, data, phases
}

func TestEvaluate(t *testing.T) {
	queries, data, phases := writeEvalInputs(t, t.TempDir())
	reports := newMemoryReports()

	events := bus.NewMemoryBus(nil)
	defer events.Close()
	received := make(chan bus.Event, 1)
	require.NoError(t, events.Subscribe(context.Background(), bus.TopicEvaluationCompleted, func(ctx context.Context, e bus.Event) error {
		received <- e
		return nil
	}))

	cfg := testConfig("gradual", 1, 1)
	cfg.Eval.K = 1
	cfg.History.Experiment = "exp"
	svc := NewService(cfg, artifact.NewLocalStore(t.TempDir()), nil, WithBus(events), WithReportStore(reports))

	report, err := svc.Evaluate(context.Background(), EvaluateRequest{
		Queries: queries, Data: data, Rankings: phases[1], Previous: phases[0], Phase: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Phase)
	assert.InDelta(t, 50.0, report.Success, 1e-9)
	assert.InDelta(t, 50.0, report.Forget, 1e-9)

	entries, err := svc.History(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Same(t, report, entries[0].Report)

	select {
	case e := <-received:
		var got evaluation.Report
		require.NoError(t, e.Decode(&got))
		assert.Equal(t, 1, got.Phase)
	case <-time.After(time.Second):
		t.Fatal("no evaluation event published")
	}
}

func TestSweep(t *testing.T) {
	queries, data, phases := writeEvalInputs(t, t.TempDir())
	reports := newMemoryReports()

	cfg := testConfig("gradual", 1, 1)
	cfg.Eval.K = 1
	cfg.History.Experiment = "sweep"
	svc := NewService(cfg, artifact.NewLocalStore(t.TempDir()), nil, WithReportStore(reports))

	seq, err := svc.Sweep(context.Background(), SweepRequest{Queries: queries, Data: data, Snapshots: phases})
	require.NoError(t, err)
	require.Len(t, seq.Phases, 2)
	assert.InDelta(t, 50.0, seq.MeanForget, 1e-9)

	entries, err := svc.History(context.Background(), "sweep")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestHistory_Disabled(t *testing.T) {
	svc := NewService(config.Default(), artifact.NewLocalStore(t.TempDir()), nil)
	_, err := svc.History(context.Background(), "any")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Experiments(context.Background())
	assert.True(t, apperrors.IsValidation(err))

	err = svc.DeleteExperiment(context.Background(), "any")
	assert.True(t, apperrors.IsValidation(err))
}

func TestExperiments_ListAndDelete(t *testing.T) {
	queries, data, phases := writeEvalInputs(t, t.TempDir())
	reports := newMemoryReports()
	ctx := context.Background()

	for _, name := range []string{"beta", "alpha"} {
		cfg := testConfig("gradual", 1, 1)
		cfg.History.Experiment = name
		svc := NewService(cfg, artifact.NewLocalStore(t.TempDir()), nil, WithReportStore(reports))
		_, err := svc.Evaluate(ctx, EvaluateRequest{Queries: queries, Data: data, Rankings: phases[0]})
		require.NoError(t, err)
	}

	svc := NewService(config.Default(), artifact.NewLocalStore(t.TempDir()), nil, WithReportStore(reports))
	names, err := svc.Experiments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	require.NoError(t, svc.DeleteExperiment(ctx, "alpha"))
	_, err = svc.History(ctx, "alpha")
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	names, err = svc.Experiments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, names)

	assert.True(t, apperrors.IsValidation(svc.DeleteExperiment(ctx, "")))
}

func TestGenerate_ExistingRun(t *testing.T) {
	dir := t.TempDir()
	qa := writeCollection(t, dir, "qa.jsonl", "qa", 8)
	qb := writeCollection(t, dir, "qb.jsonl", "qb", 8)
	da := writeCollection(t, dir, "da.jsonl", "da", 8)
	db := writeCollection(t, dir, "db.jsonl", "db", 8)
	store := artifact.NewLocalStore(filepath.Join(dir, "out"))
	svc := NewService(testConfig("sudden", 2, 2), store, nil)
	ctx := context.Background()

	_, err := svc.Generate(ctx, GenerateRequest{QueriesA: qa, QueriesB: qb, DocsA: da, DocsB: db, RunID: "dup"})
	require.NoError(t, err)

	_, err = svc.Generate(ctx, GenerateRequest{QueriesA: qa, QueriesB: qb, RunID: "dup"})
	require.True(t, apperrors.IsValidation(err), "got %v", err)

	// The refused run left the original files alone.
	names, err := store.List(ctx, "dup/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dup/documents.sessions.jsonl", "dup/manifest.json", "dup/queries.sessions.jsonl"}, names)

	_, err = svc.Generate(ctx, GenerateRequest{QueriesA: qa, QueriesB: qb, RunID: "dup", Overwrite: true})
	require.NoError(t, err)

	names, err = store.List(ctx, "dup/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dup/manifest.json", "dup/queries.sessions.jsonl"}, names)

	m, err := svc.Manifest(ctx, "dup")
	require.NoError(t, err)
	require.Len(t, m.Files, 1)
	assert.Equal(t, RoleQueries, m.Files[0].Role)
}

func TestGenerate_CorpusWorkersBoundLoading(t *testing.T) {
	dir := t.TempDir()
	qa := writeCollection(t, dir, "qa.jsonl", "qa", 4)
	qb := writeCollection(t, dir, "qb.jsonl", "qb", 4)

	cfg := testConfig("sudden", 2, 1)
	cfg.Corpus.Workers = 1
	// Zero evaluation workers would stall collection loading if it shared the knob.
	cfg.Eval.Workers = 0
	svc := NewService(cfg, artifact.NewLocalStore(filepath.Join(dir, "out")), nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Generate(context.Background(), GenerateRequest{QueriesA: qa, QueriesB: qb, RunID: "workers"})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Generate did not finish")
	}
}

func TestManifest_Missing(t *testing.T) {
	svc := NewService(config.Default(), artifact.NewLocalStore(t.TempDir()), nil)

	_, err := svc.Manifest(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err), "got %v", err)

	_, err = svc.Manifest(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}
