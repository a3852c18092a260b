package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joseph-ayodele/medical-docs/internal/common"
)

type embeddingRequest struct {
	Input          string `json:"input"`
	Model          string `json:"model"`
	EncodingFormat string `json:"encoding_format,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed returns the embedding of text using the configured embedding model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	raw, err := c.post(ctx, "/embeddings", embeddingRequest{
		Input:          text,
		Model:          c.cfg.EmbeddingModel,
		EncodingFormat: "float",
	})
	if err != nil {
		c.logger.Error("llm.embed.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}

	vec := resp.Data[0].Embedding
	c.logger.Debug("llm.embed.ok",
		"req_id", rid,
		"model", c.cfg.EmbeddingModel,
		"dims", len(vec),
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return vec, nil
}
