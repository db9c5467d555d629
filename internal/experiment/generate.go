package experiment

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/driftbench/internal/artifact"
	"github.com/ricesearch/driftbench/internal/bus"
	"github.com/ricesearch/driftbench/internal/corpus"
	"github.com/ricesearch/driftbench/internal/drift"
	"github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/hash"
)

// Session file roles.
const (
	RoleQueries   = "queries"
	RoleDocuments = "documents"
)

// GenerateRequest names the domain collections of one generation run.
// Either pair of paths may be left empty, but not both.
type GenerateRequest struct {
	QueriesA string
	QueriesB string
	DocsA    string
	DocsB    string

	// RunID is generated when empty.
	RunID string

	// Overwrite replaces the files of an existing run with the same id.
	Overwrite bool
}

// GenerateResult is the outcome of a generation run.
type GenerateResult struct {
	Manifest     *artifact.Manifest
	ManifestName string
	Sessions     map[string][]drift.Session // role -> sessions
}

type rolePaths struct {
	role string
	a, b string
}

func (r GenerateRequest) roles() ([]rolePaths, error) {
	var roles []rolePaths
	for _, p := range []rolePaths{
		{RoleQueries, r.QueriesA, r.QueriesB},
		{RoleDocuments, r.DocsA, r.DocsB},
	} {
		switch {
		case p.a == "" && p.b == "":
			continue
		case p.a == "" || p.b == "":
			return nil, errors.ValidationError(p.role + " need both a domain A and a domain B file")
		}
		roles = append(roles, p)
	}
	if len(roles) == 0 {
		return nil, errors.ValidationError("no input collections given")
	}
	return roles, nil
}

// Generate evolves every requested collection pair with the configured
// schedule and stores the sessions plus a manifest. Nothing is written
// unless every pair could be evolved.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	dc := s.cfg.Drift

	roles, err := req.roles()
	if err != nil {
		return nil, err
	}

	// Fail on an unknown method before touching any input.
	schedule, err := drift.NewSchedule(dc.Method, drift.NewRand(dc.Seed), s.log)
	if err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		if runID, err = newRunID(); err != nil {
			return nil, err
		}
	}
	log := s.log.WithRun(runID)

	writer, err := artifact.NewWriter(s.store, runID, s.cfg.Output.Format, s.cfg.Output.Compress)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.List(ctx, runID+"/")
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && !req.Overwrite {
		return nil, errors.ValidationError("run "+runID+" already exists").
			WithDetail("run_id", runID).
			WithDetail("location", s.store.Location(existing[0]))
	}

	collections, digests, err := s.loadCollections(ctx, roles)
	if err != nil {
		return nil, err
	}

	// Evolve in a fixed role order so one seed yields one output.
	sessions := make(map[string][]drift.Session, len(roles))
	for _, r := range roles {
		out, err := schedule.Evolve(dc.PartitionLength, dc.SessionSize, collections[r.a], collections[r.b])
		if err != nil {
			return nil, err
		}
		sessions[r.role] = out
		log.Info("Sessions generated", "role", r.role, "sessions", len(out))
	}

	manifest := &artifact.Manifest{
		RunID:      runID,
		CreatedAt:  s.now().UTC(),
		Method:     schedule.Strategy().String(),
		Length:     dc.PartitionLength,
		Size:       dc.SessionSize,
		Seed:       dc.Seed,
		Format:     s.cfg.Output.Format,
		Compressed: s.cfg.Output.Compress,
		Inputs:     digests,
	}
	// Stale files of a replaced run would otherwise outlive the new manifest.
	for _, name := range existing {
		if err := s.store.Delete(ctx, name); err != nil {
			return nil, err
		}
		log.Debug("Replaced artifact removed", "name", name)
	}

	for _, r := range roles {
		entry, err := writer.WriteSessions(ctx, r.role, sessions[r.role])
		if err != nil {
			return nil, err
		}
		manifest.Files = append(manifest.Files, entry)
		log.Debug("Session file written", "role", r.role, "location", entry.Location, "bytes", entry.Bytes)
	}

	name, err := writer.WriteManifest(ctx, manifest)
	if err != nil {
		return nil, err
	}
	log.Info("Generation complete", "manifest", s.store.Location(name))

	s.publish(ctx, bus.TopicSessionsGenerated, "generate", runID, manifest)

	return &GenerateResult{Manifest: manifest, ManifestName: name, Sessions: sessions}, nil
}

// loadCollections reads every distinct input path concurrently. It returns
// the items and the SHA-256 of each path, both keyed by path.
func (s *Service) loadCollections(ctx context.Context, roles []rolePaths) (map[string][]corpus.Item, map[string]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, r := range roles {
		for _, p := range []string{r.a, r.b} {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}

	fields := corpus.Fields{ID: s.cfg.Corpus.IDField, Text: s.cfg.Corpus.TextField}
	items := make([][]corpus.Item, len(paths))
	sums := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Corpus.Workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			loaded, err := corpus.LoadJSONL(p, fields)
			if err != nil {
				return err
			}
			sum, err := hash.File(p)
			if err != nil {
				return errors.IOError("hashing "+p, err)
			}
			items[i] = loaded
			sums[i] = sum
			s.log.Debug("Collection loaded", "path", p, "items", len(loaded))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	collections := make(map[string][]corpus.Item, len(paths))
	digests := make(map[string]string, len(paths))
	for i, p := range paths {
		collections[p] = items[i]
		digests[p] = sums[i]
	}
	return collections, digests, nil
}

// Manifest reads back the manifest of a stored run.
func (s *Service) Manifest(ctx context.Context, runID string) (*artifact.Manifest, error) {
	if runID == "" {
		return nil, errors.ValidationError("run id is required")
	}
	return artifact.ReadManifest(ctx, s.store, runID)
}
