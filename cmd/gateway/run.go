package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/Dieugene/agentic-doc-processing/pkg/audit"
	"github.com/Dieugene/agentic-doc-processing/pkg/config"
	"github.com/Dieugene/agentic-doc-processing/pkg/gateway"
	"github.com/Dieugene/agentic-doc-processing/pkg/models"
	"github.com/Dieugene/agentic-doc-processing/pkg/provider"
	"github.com/Dieugene/agentic-doc-processing/pkg/tracker"
	"github.com/spf13/cobra"
)

// runLine is one input line: either a full request or a bare prompt.
type runLine struct {
	Model    string           `json:"model,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
	Prompt   string           `json:"prompt,omitempty"`
	AgentID  string           `json:"agent_id,omitempty"`
}

func newRunCmd() *cobra.Command {
	var (
		configPath string
		model      string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a JSONL file of requests through the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			reqs, err := readRequests(file, model)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				fmt.Println("No requests in input file.")
				return nil
			}

			reg, err := provider.NewRegistry(cfg.Models)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			var auditor *audit.Logger
			if cfg.Audit.Enabled {
				auditor, err = audit.New(cfg.Audit)
				if err != nil {
					return err
				}
				defer auditor.Close()
			}

			gw, err := gateway.New(cfg, reg, auditor, tr)
			if err != nil {
				return err
			}
			gw.Start(cmd.Context())
			defer gw.Stop()

			log.Printf("submitting %d request(s)", len(reqs))
			results := gw.SubmitMany(cmd.Context(), reqs)

			enc := json.NewEncoder(os.Stdout)
			failed := 0
			for i, res := range results {
				if res.Err != nil {
					failed++
					_ = enc.Encode(map[string]string{
						"request_id": reqs[i].ID,
						"error":      res.Err.Error(),
					})
					continue
				}
				_ = enc.Encode(res.Response)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d requests failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "gateway.yaml", "Path to config file")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Default model for lines without one")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSONL input file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readRequests parses a JSONL file into requests. Lines may be full request
// objects or {"prompt": "..."} shorthand; defaultModel fills missing models.
func readRequests(path, defaultModel string) ([]*models.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	var reqs []*models.Request
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rl runLine
		if err := json.Unmarshal(line, &rl); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		req := &models.Request{
			Model:    rl.Model,
			Messages: rl.Messages,
			AgentID:  rl.AgentID,
		}
		if req.Model == "" {
			req.Model = defaultModel
		}
		if req.Model == "" {
			return nil, fmt.Errorf("line %d: no model and no --model default", lineNo)
		}
		if len(req.Messages) == 0 {
			if rl.Prompt == "" {
				return nil, fmt.Errorf("line %d: no messages or prompt", lineNo)
			}
			req.Messages = []models.Message{{Role: "user", Content: rl.Prompt}}
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return reqs, nil
}
