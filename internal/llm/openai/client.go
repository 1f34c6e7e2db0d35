package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studiolegale/fascicolo/internal/common"
	"github.com/studiolegale/fascicolo/internal/llm"
)

// Chat implements llm.Provider over chat/completions with a JSON response
// format. An empty completion is NOT an error here: the feedback string is
// returned for the caller to wrap into a safety-block payload.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.chat.start",
		"req_id", rid,
		"model", req.Model,
		"temp", req.Temperature,
		"fragments", len(req.Fragments),
		"force_json", req.ForceJSON,
	)

	body, endpoint := c.buildPayload(req)
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.logger.Error("llm.chat.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ChatResponse{}, err
	}

	var cc struct {
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
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.chat.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ChatResponse{}, fmt.Errorf("decode provider response: %w", err)
	}

	usage := llm.Usage{InputTokens: cc.Usage.PromptTokens, OutputTokens: cc.Usage.CompletionTokens}

	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		feedback := cc.Error.Message
		if feedback == "" && len(cc.Choices) > 0 {
			feedback = "finish_reason: " + cc.Choices[0].FinishReason
		}
		if feedback == "" {
			feedback = common.Truncate(string(raw), 500)
		}
		c.logger.Warn("llm.chat.empty_completion",
			"req_id", rid, "feedback", feedback,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ChatResponse{Feedback: feedback, Usage: usage}, nil
	}

	c.logger.Info("llm.chat.ok",
		"req_id", rid,
		"in_tokens", usage.InputTokens,
		"out_tokens", usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.ChatResponse{
		Text:  strings.TrimSpace(cc.Choices[0].Message.Content),
		Usage: usage,
	}, nil
}

// ListModels returns the model identifiers available on the account.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("llm.models.body_close_error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("list models: status %d: %s", resp.StatusCode, common.Truncate(string(raw), 300))
	}

	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode models list: %w", err)
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) buildPayload(req llm.ChatRequest) (map[string]any, string) {
	messages := []map[string]any{
		{"role": "system", "content": req.SystemPrompt},
	}
	for _, frag := range req.Fragments {
		messages = append(messages, map[string]any{"role": "user", "content": frag})
	}
	if strings.TrimSpace(req.UserPrompt) != "" {
		messages = append(messages, map[string]any{"role": "user", "content": req.UserPrompt})
	}

	body := map[string]any{
		"model":       req.Model,
		"temperature": req.Temperature,
		"messages":    messages,
	}
	if req.ForceJSON {
		body["response_format"] = map[string]any{"type": "json_object"}
	}
	return body, strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.logger.Warn("llm.chat.body_close_error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider status %d: %s", resp.StatusCode, common.Truncate(string(raw), 500))
	}
	return raw, nil
}
