package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ricesearch/driftbench/internal/bus"
	"github.com/ricesearch/driftbench/internal/config"
	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect, replay and watch run lifecycle events",
		Long: `Run lifecycle events are published on the configured bus (memory or Kafka) and,
when bus.event_log is set, journaled to a JSON-lines file.

Examples:
  driftbench events list --log events.jsonl --since 2026-10-01T00:00:00Z
  driftbench events replay --log events.jsonl
  driftbench events watch --topic evaluation.completed --count 5`,
	}

	cmd.AddCommand(eventsListCmd(), eventsReplayCmd(), eventsWatchCmd())
	return cmd
}

// parseSince reads --since as an RFC 3339 timestamp; empty means everything.
func parseSince(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("since")
	if raw == "" {
		return time.Time{}, nil
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.ValidationError("invalid --since: " + err.Error()).
			WithDetail("since", raw)
	}
	return since, nil
}

func addJournalFlags(cmd *cobra.Command) {
	cmd.Flags().String("log", "", "event journal file (default: bus.event_log)")
	cmd.Flags().String("since", "", "only events recorded after this RFC 3339 time")
}

// journalPath returns --log, falling back to the configured event log.
func journalPath(cmd *cobra.Command, cfg *config.Config) string {
	if path, _ := cmd.Flags().GetString("log"); path != "" {
		return path
	}
	return cfg.Bus.EventLog
}

func eventsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print journaled events as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			since, err := parseSince(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.svc.Events(journalPath(cmd, cfg), since, limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		},
	}

	addJournalFlags(cmd)
	cmd.Flags().Int("limit", 0, "maximum number of events (0 = all)")
	return cmd
}

func eventsReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Republish journaled events onto the configured bus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			since, err := parseSince(cmd)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("log")

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.svc.ReplayEvents(cmd.Context(), path, since)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d events\n", n)
			return nil
		},
	}

	addJournalFlags(cmd)
	cmd.Flags().Lookup("log").Usage = "event journal file to replay"
	_ = cmd.MarkFlagRequired("log")
	return cmd
}

func eventsWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print events as they are published, until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			topics, _ := cmd.Flags().GetStringSlice("topic")
			count, _ := cmd.Flags().GetInt("count")

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var mu sync.Mutex
			seen := 0
			enc := json.NewEncoder(cmd.OutOrStdout())
			printEvent := func(_ context.Context, e bus.Event) error {
				mu.Lock()
				defer mu.Unlock()
				if count > 0 && seen >= count {
					return nil
				}
				seen++
				if count > 0 && seen == count {
					defer cancel()
				}
				return enc.Encode(e)
			}

			a.log.Info("Watching events", "bus", cfg.Bus.Type, "topics", topics)
			return a.svc.WatchEvents(ctx, topics, printEvent)
		},
	}

	cmd.Flags().StringSlice("topic", nil, "topics to watch (default: all driftbench topics)")
	cmd.Flags().Int("count", 0, "exit after this many events (0 = until interrupted)")
	return cmd
}
