package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whrsd-transparency/docaudit/internal/llm"
)

// Ping verifies the Ollama server is reachable. Called once at startup so an
// unreachable engine is a setup fault, not a string of per-item failures.
func (c *Client) Ping(ctx context.Context) error {
	url := strings.TrimRight(c.cfg.Host, "/") + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", c.cfg.Host, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("ollama response body close error", "error", err)
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ollama status %d on %s", resp.StatusCode, url)
	}
	return nil
}

// ExtractGap implements llm.Extractor for the discrepancy pass.
func (c *Client) ExtractGap(ctx context.Context, text string) (llm.GapFields, []byte, error) {
	schema := llm.BuildGapJSONSchema()
	raw, err := c.extract(ctx, "gap", llm.BuildGapSystemPrompt(), llm.BuildGapUserPrompt(llm.TruncateText(text, c.cfg.MaxChars)), schema, llm.NormalizeGapJSON)
	if err != nil {
		return llm.GapFields{}, raw, err
	}
	var out llm.GapFields
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.GapFields{}, raw, fmt.Errorf("unmarshal fields: %w", err)
	}
	return out, raw, nil
}

// ExtractAlarm implements llm.Extractor for the compliance pass.
func (c *Client) ExtractAlarm(ctx context.Context, text string) (llm.AlarmFields, []byte, error) {
	schema := llm.BuildAlarmJSONSchema()
	raw, err := c.extract(ctx, "alarm", llm.BuildAlarmSystemPrompt(), llm.BuildAlarmUserPrompt(llm.TruncateText(text, c.cfg.MaxChars)), schema, llm.NormalizeAlarmJSON)
	if err != nil {
		return llm.AlarmFields{}, raw, err
	}
	var out llm.AlarmFields
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.AlarmFields{}, raw, fmt.Errorf("unmarshal fields: %w", err)
	}
	return out, raw, nil
}

// ExtractReferences implements llm.Extractor for the missing-attachment pass.
func (c *Client) ExtractReferences(ctx context.Context, text string) (llm.ReferenceFields, []byte, error) {
	schema := llm.BuildReferencesJSONSchema()
	raw, err := c.extract(ctx, "references", llm.BuildReferencesSystemPrompt(), llm.BuildReferencesUserPrompt(llm.TruncateText(text, c.cfg.MaxChars)), schema, llm.NormalizeReferencesJSON)
	if err != nil {
		return llm.ReferenceFields{}, raw, err
	}
	var out llm.ReferenceFields
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.ReferenceFields{}, raw, fmt.Errorf("unmarshal fields: %w", err)
	}
	return out, raw, nil
}

type normalizeFunc func(raw []byte) ([]byte, []string, error)

// extract runs one chat call, then normalizes and validates the response
// against the stage schema. The returned bytes are the cleaned JSON.
func (c *Client) extract(ctx context.Context, pass, system, user string, schema map[string]any, normalize normalizeFunc) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"pass", pass,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(user),
	)

	content, err := c.chat(ctx, system, user)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "pass", pass, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	cleaned, fixed, err := normalize([]byte(content))
	if err != nil {
		c.logger.Error("llm.extract.parse_error",
			"req_id", rid, "pass", pass, "error", err,
			"content", truncateForLog(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return []byte(content), fmt.Errorf("parse model response: %w", err)
	}
	if len(fixed) > 0 {
		c.logger.Warn("llm.extract.normalized", "req_id", rid, "pass", pass, "fixed", fixed)
	}

	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.logger.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "pass", pass, "error", err,
			"content", truncateForLog(string(cleaned)),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid, "pass", pass,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return cleaned, nil
}

// chat posts one request to Ollama's native chat endpoint and returns the
// message content. format=json constrains the model to emit a JSON object;
// stream=false because the pipeline consumes whole responses only.
func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	body := map[string]any{
		"model":  c.cfg.Model,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
		},
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}

	endpoint := strings.TrimRight(c.cfg.Host, "/") + "/api/chat"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return "", err
	}

	var cc struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Done  bool   `json:"done"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if cc.Error != "" {
		return "", fmt.Errorf("ollama error: %s", cc.Error)
	}
	content := strings.TrimSpace(cc.Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty message content in ollama response")
	}
	return content, nil
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
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama http error: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("ollama response body close error", "error", err)
		}
	}()

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}

func truncateForLog(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
