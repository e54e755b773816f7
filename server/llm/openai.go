package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// PingOptions controls JSON mode + reasoning + tokens.
type PingOptions struct {
	ReasoningEffort      string
	MaxOutputTokens      *int
	StructuredSchemaName string
	StructuredSchema     map[string]any
	StructuredStrict     bool
}

var httpClient = &http.Client{Timeout: 45 * time.Second}

// PingText sends a minimal request to the chat/completions API and returns text.
func PingText(ctx context.Context, model, system, user string) (string, error) {
	return PingTextWithOpts(ctx, model, system, user, EnvPingOptions())
}

// PingTextWithOpts posts one system+user exchange and returns the first choice's content.
func PingTextWithOpts(ctx context.Context, model, system, user string, opts PingOptions) (string, error) {
	cfg, err := resolveAPIConfig(model)
	if err != nil {
		return "", err
	}
	req, err := newChatRequest(ctx, cfg, chatPayload(cfg, system, user, opts))
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s http %d: %s", cfg.Kind, resp.StatusCode, truncate(string(body), 800))
	}

	var cc chatResponse
	if err := json.Unmarshal(body, &cc); err != nil {
		return "", err
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return cc.Choices[0].Message.Content, nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chatPayload asks for a JSON object, constrained by opts.StructuredSchema when set.
func chatPayload(cfg apiConfig, system, user string, opts PingOptions) map[string]any {
	payload := map[string]any{
		"model": cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]any{"type": "json_object"},
	}
	if opts.MaxOutputTokens != nil && *opts.MaxOutputTokens > 0 {
		payload["max_tokens"] = *opts.MaxOutputTokens
	}
	if effort := strings.TrimSpace(opts.ReasoningEffort); effort != "" {
		payload["reasoning"] = map[string]any{"effort": effort}
	}
	if opts.StructuredSchema != nil {
		payload["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   coalesce(opts.StructuredSchemaName, "structured"),
				"strict": opts.StructuredStrict,
				"schema": opts.StructuredSchema,
			},
		}
	}
	applyTuningFromEnv(payload, cfg.Kind == providerOpenRouter)
	return payload
}

func newChatRequest(ctx context.Context, cfg apiConfig, payload map[string]any) (*http.Request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	setHeaderPreserveCase(req.Header, cfg.HeaderName, cfg.HeaderPrefix+cfg.APIKey)
	if cfg.Organization != "" {
		req.Header.Set("OpenAI-Organization", cfg.Organization)
	}
	for k, v := range cfg.ExtraHeaders {
		setHeaderPreserveCase(req.Header, k, v)
	}
	return req, nil
}

// PingChoose asks for exactly one of choices under the "choice" key.
// The raw model text is returned alongside for logging.
func PingChoose(ctx context.Context, model, system, user string, choices []string, opts PingOptions) (string, string, error) {
	if len(choices) == 0 {
		return "", "", errors.New("no choices offered")
	}
	opts.StructuredSchema = map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"choice": map[string]any{
				"type":        "string",
				"enum":        choices,
				"description": "Exactly one of the offered options",
			},
			"comment": map[string]any{
				"type":        "string",
				"description": "Optional short reason, at most 120 characters",
			},
		},
		"required": []string{"choice", "comment"},
	}
	opts.StructuredSchemaName = coalesce(opts.StructuredSchemaName, "fortyfives_choice")
	opts.StructuredStrict = true

	parsed, raw, err := pingObject(ctx, model, system, user, opts)
	if err != nil {
		return "", raw, err
	}
	choice, ok := coerceChoice(parsed["choice"], choices)
	if !ok {
		return "", raw, fmt.Errorf("choice %v not among %v", parsed["choice"], choices)
	}
	return choice, raw, nil
}

// PingChooseSubset asks for between min and max distinct members of choices under "choices".
func PingChooseSubset(ctx context.Context, model, system, user string, choices []string, min, max int, opts PingOptions) ([]string, string, error) {
	if max > len(choices) {
		max = len(choices)
	}
	if min < 0 || min > max {
		return nil, "", fmt.Errorf("bad subset bounds [%d, %d] over %d choices", min, max, len(choices))
	}
	items := map[string]any{"type": "string"}
	if len(choices) > 0 {
		items["enum"] = choices
	}
	opts.StructuredSchema = map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"choices": map[string]any{
				"type":        "array",
				"items":       items,
				"minItems":    min,
				"maxItems":    max,
				"uniqueItems": true,
			},
			"comment": map[string]any{"type": "string"},
		},
		"required": []string{"choices", "comment"},
	}
	opts.StructuredSchemaName = coalesce(opts.StructuredSchemaName, "fortyfives_subset")
	opts.StructuredStrict = true

	parsed, raw, err := pingObject(ctx, model, system, user, opts)
	if err != nil {
		return nil, raw, err
	}
	list, _ := parsed["choices"].([]any)
	out := make([]string, 0, len(list))
	seen := map[string]bool{}
	for _, v := range list {
		c, ok := coerceChoice(v, choices)
		if !ok {
			return nil, raw, fmt.Errorf("choice %v not among %v", v, choices)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) < min || len(out) > max {
		return nil, raw, fmt.Errorf("picked %d, want %d..%d", len(out), min, max)
	}
	return out, raw, nil
}

func pingObject(ctx context.Context, model, system, user string, opts PingOptions) (map[string]any, string, error) {
	text, err := PingTextWithOpts(ctx, model, system, user, opts)
	if err != nil {
		return nil, text, err
	}
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, raw, errors.New("empty response")
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		cleaned := extractJSONObject(raw)
		if cleaned == "" {
			return nil, raw, err
		}
		if err2 := json.Unmarshal([]byte(cleaned), &parsed); err2 != nil {
			return nil, raw, err
		}
	}
	return parsed, raw, nil
}

// coerceChoice matches case-insensitively, so "AH" and "ah" both find "Ah".
func coerceChoice(v any, choices []string) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	for _, c := range choices {
		if c == s {
			return c, true
		}
	}
	for _, c := range choices {
		if strings.EqualFold(c, s) {
			return c, true
		}
	}
	return "", false
}

func applyTuningFromEnv(m map[string]any, preferOpenRouter bool) {
	if v := envWithFallback(preferOpenRouter, "OPENAI_TEMPERATURE", "OPENROUTER_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			m["temperature"] = f
		}
	}
	if v := envWithFallback(preferOpenRouter, "OPENAI_TOP_P", "OPENROUTER_TOP_P"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			m["top_p"] = f
		}
	}
	if v := envWithFallback(preferOpenRouter, "OPENAI_TOP_K", "OPENROUTER_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			m["top_k"] = n
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func coalesce(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

// EnvPingOptions reads reasoning effort and the output token cap from the environment.
func EnvPingOptions() PingOptions {
	opts := PingOptions{}
	preferOpenRouter := preferOpenRouterEnv()
	if v := envWithFallback(preferOpenRouter, "OPENAI_REASONING_EFFORT", "OPENROUTER_REASONING_EFFORT"); v != "" {
		opts.ReasoningEffort = v
	}
	if v := envWithFallback(preferOpenRouter, "OPENAI_MAX_OUTPUT_TOKENS", "OPENROUTER_MAX_OUTPUT_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxOutputTokens = &n
		}
	}
	return opts
}

func envWithFallback(preferOpenRouter bool, openAIKey, openRouterKey string) string {
	keys := []string{openAIKey, openRouterKey}
	if preferOpenRouter {
		keys[0], keys[1] = keys[1], keys[0]
	}
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

func preferOpenRouterEnv() bool {
	if strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")) != "" && strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) == "" {
		return true
	}
	if strings.TrimSpace(os.Getenv("OPENROUTER_MODEL")) != "" && strings.TrimSpace(os.Getenv("OPENAI_MODEL")) == "" {
		return true
	}
	if strings.TrimSpace(os.Getenv("OPENROUTER_API_BASE")) != "" || strings.TrimSpace(os.Getenv("OPENROUTER_BASE_URL")) != "" {
		return true
	}
	for _, k := range []string{"OPENAI_API_BASE", "OPENAI_BASE_URL"} {
		if base := strings.TrimSpace(os.Getenv(k)); base != "" && strings.Contains(strings.ToLower(base), "openrouter") {
			return true
		}
	}
	return false
}
