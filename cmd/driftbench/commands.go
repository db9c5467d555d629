package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ricesearch/driftbench/internal/config"
	"github.com/ricesearch/driftbench/internal/drift"
	"github.com/ricesearch/driftbench/internal/experiment"
	"github.com/ricesearch/driftbench/internal/history"
	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
	"github.com/ricesearch/driftbench/internal/pkg/fileio"
)

func generateCmd() *cobra.Command {
	var req experiment.GenerateRequest

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate drift sessions from two domain collections",
		Long: `Generate one drift partition per collection pair: a forward pass moving from
domain A to domain B followed by a reverse pass back to A.

Methods:
  sudden       first half of the sessions from A, second half from B
  gradual      every session mixes A and B, the A share falling linearly
  incremental  every item splices a prefix of an A document onto a prefix of a B document

Examples:
  driftbench generate --method gradual --length 10 --size 1000 \
      --queries-a a.queries.jsonl --queries-b b.queries.jsonl \
      --docs-a a.docs.jsonl --docs-b b.docs.jsonl --out ./sessions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, func(c *config.Config) {
				flags := cmd.Flags()
				if flags.Changed("method") {
					c.Drift.Method, _ = flags.GetString("method")
				}
				if flags.Changed("length") {
					c.Drift.PartitionLength, _ = flags.GetInt("length")
				}
				if flags.Changed("size") {
					c.Drift.SessionSize, _ = flags.GetInt("size")
				}
				if flags.Changed("seed") {
					c.Drift.Seed, _ = flags.GetUint64("seed")
				}
				if flags.Changed("out") {
					c.Artifacts.Type = "local"
					c.Artifacts.Dir, _ = flags.GetString("out")
				}
				if flags.Changed("output-format") {
					c.Output.Format, _ = flags.GetString("output-format")
				}
				if flags.Changed("compress") {
					c.Output.Compress, _ = flags.GetBool("compress")
				}
			})
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res.Manifest)
		},
	}

	cmd.Flags().String("method", "gradual", "drift method ("+strings.Join(drift.Strategies(), ", ")+")")
	cmd.Flags().Int("length", 10, "sessions per pass")
	cmd.Flags().Int("size", 1000, "items per session")
	cmd.Flags().Uint64("seed", 42, "random seed")
	cmd.Flags().String("out", "./sessions", "output directory (local artifact store)")
	cmd.Flags().String("output-format", "jsonl", "session file format (jsonl, parquet)")
	cmd.Flags().Bool("compress", false, "zstd-compress session files")
	cmd.Flags().StringVar(&req.QueriesA, "queries-a", "", "domain A queries (JSONL)")
	cmd.Flags().StringVar(&req.QueriesB, "queries-b", "", "domain B queries (JSONL)")
	cmd.Flags().StringVar(&req.DocsA, "docs-a", "", "domain A documents (JSONL)")
	cmd.Flags().StringVar(&req.DocsB, "docs-b", "", "domain B documents (JSONL)")
	cmd.Flags().StringVar(&req.RunID, "run-id", "", "run identifier (default: generated)")
	cmd.Flags().BoolVar(&req.Overwrite, "overwrite", false, "replace the files of an existing run")

	return cmd
}

// evalOverrides applies the flags shared by evaluate and sweep.
func evalOverrides(cmd *cobra.Command) func(*config.Config) {
	return func(c *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("k") {
			c.Eval.K, _ = flags.GetInt("k")
		}
		if flags.Changed("experiment") {
			c.History.Experiment, _ = flags.GetString("experiment")
		}
		if flags.Changed("workers") {
			c.Eval.Workers, _ = flags.GetInt("workers")
		}
	}
}

func addEvalFlags(cmd *cobra.Command, queries, data *string) {
	cmd.Flags().IntP("k", "k", 10, "result cutoff")
	cmd.Flags().StringVar(queries, "queries", "", "evaluation query file (JSONL with qid)")
	cmd.Flags().StringVar(data, "data", "", "ground truth file (JSONL with qid, answer_pids)")
	cmd.Flags().String("experiment", "", "experiment name for report history")
	cmd.Flags().Bool("json", false, "print the report as JSON")
	cmd.Flags().StringP("out", "o", "", "write the report to a file instead of stdout (.zst compresses)")
	_ = cmd.MarkFlagRequired("queries")
	_ = cmd.MarkFlagRequired("data")
}

func evaluateCmd() *cobra.Command {
	var req experiment.EvaluateRequest

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score one ranking file",
		Long: `Score a trec-style ranking file (qid _ pid rank _ _) for Success@k, Recall@k and
MRR@k. With --previous, also report Forget and FWT against the prior phase.

Examples:
  driftbench evaluate -k 10 --queries q.jsonl --data qrels.jsonl --rankings phase1.tsv
  driftbench evaluate -k 10 --queries q.jsonl --data qrels.jsonl \
      --rankings phase2.tsv --previous phase1.tsv --phase 2 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, evalOverrides(cmd))
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.svc.Evaluate(cmd.Context(), req)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return withOutput(cmd, report.WriteJSON)
			}
			return withOutput(cmd, report.Format)
		},
	}

	addEvalFlags(cmd, &req.Queries, &req.Data)
	cmd.Flags().StringVar(&req.Rankings, "rankings", "", "ranking file to score")
	cmd.Flags().StringVar(&req.Previous, "previous", "", "ranking file of the previous phase")
	cmd.Flags().IntVar(&req.Phase, "phase", 0, "phase number recorded with the report")
	_ = cmd.MarkFlagRequired("rankings")

	return cmd
}

func sweepCmd() *cobra.Command {
	var req experiment.SweepRequest

	cmd := &cobra.Command{
		Use:   "sweep [flags] <ranking files...>",
		Short: "Score a sequence of phase snapshots",
		Long: `Score ranking files as consecutive phases: each phase after the first is
compared with the one before it. Files are parsed concurrently.

Example:
  driftbench sweep -k 10 --queries q.jsonl --data qrels.jsonl phase0.tsv phase1.tsv phase2.tsv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, evalOverrides(cmd))
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			req.Snapshots = args
			seq, err := a.svc.Sweep(cmd.Context(), req)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return withOutput(cmd, seq.WriteJSON)
			}
			return withOutput(cmd, seq.Format)
		},
	}

	addEvalFlags(cmd, &req.Queries, &req.Data)
	cmd.Flags().Int("workers", 4, "ranking files parsed concurrently")

	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show, list or delete stored experiment reports",
		Long: `Show the stored reports of an experiment. With --list, print the names of all
stored experiments instead; with --delete, remove the experiment's reports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, func(c *config.Config) {
				c.History.Enabled = true
				if cmd.Flags().Changed("experiment") {
					c.History.Experiment, _ = cmd.Flags().GetString("experiment")
				}
			})
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			asJSON, _ := cmd.Flags().GetBool("json")

			if list, _ := cmd.Flags().GetBool("list"); list {
				names, err := a.svc.Experiments(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, names)
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			if del, _ := cmd.Flags().GetBool("delete"); del {
				if err := a.svc.DeleteExperiment(cmd.Context(), cfg.History.Experiment); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted experiment %s\n", cfg.History.Experiment)
				return nil
			}

			entries, err := a.svc.History(cmd.Context(), cfg.History.Experiment)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(out, entries)
			}
			return writeHistoryTable(out, entries)
		},
	}

	cmd.Flags().String("experiment", "", "experiment name (default from config)")
	cmd.Flags().Bool("list", false, "list stored experiments")
	cmd.Flags().Bool("delete", false, "delete the experiment's reports")
	cmd.Flags().Bool("json", false, "print entries as JSON")
	cmd.MarkFlagsMutuallyExclusive("list", "delete")

	return cmd
}

func manifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <run-id>",
		Short: "Print the manifest of a generated run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.svc.Manifest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), m)
		},
	}
}

func writeHistoryTable(w io.Writer, entries []history.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tK\tQUERIES\tSUCCESS\tRECALL\tMRR\tFORGET\tFWT\tSAVED")
	for _, e := range entries {
		r := e.Report
		forget, fwt := "-", "-"
		if r.HasPrevious {
			forget = fmt.Sprintf("%.1f", r.Forget)
			fwt = fmt.Sprintf("%.1f", r.FWT)
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.1f\t%.1f\t%.4f\t%s\t%s\t%s\n",
			r.Phase, r.K, r.NumRanked, r.Success, r.Recall, r.MRR, forget, fwt,
			e.SavedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

// withOutput runs write against --out when set, stdout otherwise.
func withOutput(cmd *cobra.Command, write func(io.Writer) error) error {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		return write(cmd.OutOrStdout())
	}

	w, err := fileio.Create(path)
	if err != nil {
		return apperrors.IOError("creating "+path, err)
	}
	if err := write(w); err != nil {
		w.Close()
		return apperrors.IOError("writing "+path, err)
	}
	if err := w.Close(); err != nil {
		return apperrors.IOError("closing "+path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
