package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Dieugene/agentic-doc-processing/pkg/config"
	"github.com/Dieugene/agentic-doc-processing/pkg/tracker"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		model      string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show token usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			summaries, err := tr.Summary(context.Background(), model)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tAGENT\tREQUESTS\tPROMPT\tCOMPLETION\tTOTAL")
			for _, s := range summaries {
				agent := s.AgentID
				if agent == "" {
					agent = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
					s.Model, agent, s.RequestCount, s.TotalPrompt, s.TotalCompletion, s.TotalTokens)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "Path to config file")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Filter by model id")
	return cmd
}
