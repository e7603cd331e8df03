package models

import "time"

// Usage represents token usage from an LLM response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// UsageRecord tracks per-request token usage.
type UsageRecord struct {
	ID               int64     `json:"id"`
	Model            string    `json:"model"`
	RequestID        string    `json:"request_id"`
	AgentID          string    `json:"agent_id,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Estimated        bool      `json:"estimated"`
	CreatedAt        time.Time `json:"created_at"`
}

// UsageSummary aggregates usage across requests.
type UsageSummary struct {
	Model           string `json:"model"`
	AgentID         string `json:"agent_id"`
	RequestCount    int    `json:"request_count"`
	TotalPrompt     int64  `json:"total_prompt"`
	TotalCompletion int64  `json:"total_completion"`
	TotalTokens     int64  `json:"total_tokens"`
}
