package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/audit"
	"github.com/Dieugene/agentic-doc-processing/pkg/config"
	"github.com/Dieugene/agentic-doc-processing/pkg/models"
	"github.com/spf13/cobra"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the scheduling event log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(),
		newAuditStatsCmd(),
		newAuditCleanupCmd(),
	)
	return cmd
}

func openAuditLogger(configPath string) (*audit.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Close() }, nil
}

func newAuditSearchCmd() *cobra.Command {
	var (
		configPath string
		eventType  string
		model      string
		requestID  string
		batchID    string
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search scheduling events",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.EventQueryOpts{
				Type:      eventType,
				Model:     model,
				RequestID: requestID,
				BatchID:   batchID,
				Limit:     limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			events, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("No events found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tMODEL\tREQUESTS\tATTEMPT\tOUTCOME\tDETAIL")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02T15:04:05"),
					e.Type, e.Model, eventRequests(e), e.Attempt,
					orDash(e.Outcome), eventDetail(e))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "Path to config file")
	cmd.Flags().StringVarP(&eventType, "type", "t", "", "Filter by event type")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Filter by model id")
	cmd.Flags().StringVar(&requestID, "request", "", "Filter by request id")
	cmd.Flags().StringVar(&batchID, "batch", "", "Filter by batch id")
	cmd.Flags().StringVar(&since, "since", "", "Only events on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum events to show")
	return cmd
}

func eventRequests(e models.Event) string {
	if e.RequestID != "" {
		return e.RequestID
	}
	if len(e.RequestIDs) > 0 {
		if len(e.RequestIDs) > 3 {
			return fmt.Sprintf("%s… (%d)", strings.Join(e.RequestIDs[:3], ","), len(e.RequestIDs))
		}
		return strings.Join(e.RequestIDs, ",")
	}
	return "-"
}

func eventDetail(e models.Event) string {
	switch e.Type {
	case models.EventRateLimit:
		return fmt.Sprintf("%s (wait %dms)", e.Reason, e.WaitMs)
	case models.EventRetry:
		return fmt.Sprintf("%s (delay %dms)", e.Error, e.DelayMs)
	case models.EventError:
		return e.Error
	case models.EventBatch:
		return fmt.Sprintf("size %d, %dms", e.BatchSize, e.LatencyMs)
	default:
		return "-"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newAuditStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show event counts by type and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No events recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tTYPE\tCOUNT")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%s\t%d\n", s.Day, s.Type, s.Count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "Path to config file")
	return cmd
}

func newAuditCleanupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete events older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d event(s).\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "Path to config file")
	return cmd
}
