// Package llm is the gateway to the external text-completion service,
// supporting single-shot and incremental-streaming calls against an
// OpenAI-compatible /chat/completions endpoint.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/prudhvi1709/hypoforge/internal/apperr"
	"github.com/prudhvi1709/hypoforge/internal/config"
)

const (
	// authSuffix is appended to the bearer credential on every call.
	authSuffix = ":hypoforge"

	dataPrefix     = "data:"
	doneSentinel   = "[DONE]"
	maxErrorBody   = 8 << 10
	maxFrameLength = 1 << 20
)

// Client talks to one completion endpoint with fixed credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// NewClient builds a gateway from startup configuration.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

// Request is one completion call. When Schema is set the response is
// constrained to the hypotheses list structure.
type Request struct {
	System string
	User   string
	Schema bool
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// hypothesesSchema constrains structured output to a list of
// {hypothesis, benefit} pairs.
var hypothesesSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name": "HypothesesResponse",
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"hypotheses": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"hypothesis": map[string]any{"type": "string"},
							"benefit":    map[string]any{"type": "string"},
						},
						"required": []string{"hypothesis", "benefit"},
					},
				},
			},
			"required": []string{"hypotheses"},
		},
	},
}

func (c *Client) buildBody(req Request, stream bool) map[string]any {
	body := map[string]any{
		"model": c.model,
		"messages": []message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		"temperature": 0,
	}
	if req.Schema {
		body["response_format"] = hypothesesSchema
	}
	if stream {
		body["stream"] = true
	}
	return body
}

func (c *Client) post(ctx context.Context, body map[string]any) (*http.Response, error) {
	payload, err := sonic.ConfigStd.Marshal(body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to marshal completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadInput, err, "failed to build completion request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey+authSuffix)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, err, "completion request failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, apperr.Upstream(resp.StatusCode, string(body), "LLM API error")
	}
	return resp, nil
}

// Complete submits a single-shot call and returns the full response content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.post(ctx, c.buildBody(req, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, err, "failed to read completion response")
	}
	if err := sonic.ConfigStd.Unmarshal(raw, &parsed); err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, err, "failed to decode completion response")
	}
	if len(parsed.Choices) == 0 {
		return "", apperr.New(apperr.KindUpstream, "completion response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

type streamFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream submits the same payload with the streaming flag. Each parsed frame
// yields the running total so far via onUpdate, so the final yielded value
// equals the complete content, which is also returned. Malformed frames are
// skipped without terminating the stream.
func (c *Client) Stream(ctx context.Context, req Request, onUpdate func(total string)) (string, error) {
	resp, err := c.post(ctx, c.buildBody(req, true))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var total strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameLength)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return total.String(), apperr.Wrap(apperr.KindUpstream, ctx.Err(), "stream cancelled")
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if data == doneSentinel {
			break
		}

		var frame streamFrame
		if err := sonic.ConfigStd.Unmarshal([]byte(data), &frame); err != nil {
			continue
		}
		if len(frame.Choices) == 0 {
			continue
		}
		if delta := frame.Choices[0].Delta.Content; delta != "" {
			total.WriteString(delta)
			if onUpdate != nil {
				onUpdate(total.String())
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total.String(), apperr.Wrap(apperr.KindUpstream, err, "stream read failed")
	}

	return total.String(), nil
}
