package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/llm"
)

var (
	_ llm.Completer = (*Client)(nil)
	_ llm.Embedder  = (*Client)(nil)
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete performs one chat/completions call.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	c.logger.Info("llm.complete.start",
		"req_id", rid,
		"op", req.Operation,
		"model", c.cfg.Model,
		"temp", req.Temperature,
		"max_tokens", req.MaxTokens,
		"prompt_len", len(req.User),
	)

	body := chatRequest{
		Model:       c.cfg.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.User})
	if req.JSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	raw, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		c.logger.Error("llm.complete.http_error",
			"req_id", rid, "op", req.Operation, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Completion{}, err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.complete.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return llm.Completion{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.complete.no_choices", "req_id", rid, "raw_bytes", len(raw))
		return llm.Completion{}, errors.New("no choices in chat response")
	}

	out := llm.Completion{
		Content:          cc.Choices[0].Message.Content,
		Model:            cc.Model,
		FinishReason:     cc.Choices[0].FinishReason,
		PromptTokens:     cc.Usage.PromptTokens,
		CompletionTokens: cc.Usage.CompletionTokens,
	}
	c.logger.Info("llm.complete.ok",
		"req_id", rid,
		"op", req.Operation,
		"finish_reason", out.FinishReason,
		"content_len", len(out.Content),
		"completion_tokens", out.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	return llm.SendJSON(ctx, c.http, url, body, headers, c.logger)
}
