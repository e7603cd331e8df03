package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Dieugene/agentic-doc-processing/pkg/models"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAI invokes an OpenAI-compatible chat completion endpoint. The API has
// no batch call for chat, so a batch is issued as concurrent completions and
// the results are re-aligned with the input order.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates an OpenAI invoker. baseURL overrides the default endpoint
// for OpenAI-compatible servers; empty means api.openai.com.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

// Invoke sends every request in the batch concurrently and returns per-request
// results aligned with reqs. A cancelled context fails the batch as a whole.
func (p *OpenAI) Invoke(ctx context.Context, modelName string, reqs []*models.Request) ([]Result, error) {
	results := make([]Result, len(reqs))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *models.Request) {
			defer wg.Done()
			results[i] = p.invokeOne(ctx, modelName, req)
		}(i, req)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *OpenAI) invokeOne(ctx context.Context, modelName string, req *models.Request) Result {
	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, buildCompletionRequest(modelName, req))
	if err != nil {
		return Result{Err: mapError(err)}
	}

	out := &models.Response{
		RequestID: req.ID,
		LatencyMs: time.Since(start).Milliseconds(),
		Usage: &models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		msg := resp.Choices[0].Message
		out.Content = msg.Content
		for _, tc := range msg.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, models.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}
	return Result{Response: out}
}

func buildCompletionRequest(modelName string, req *models.Request) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       modelName,
		Temperature: req.Temperature,
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
			Name:    msg.Name,
		})
	}
	for _, tool := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}

// mapError converts go-openai errors into status-bearing APIErrors so the
// retry policy can classify them.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return err
}
