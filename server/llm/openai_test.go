package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSetHeaderPreserveCase(t *testing.T) {
	hdr := http.Header{}
	setHeaderPreserveCase(hdr, "HTTP-Referer", "https://example.com/app")
	if vals := hdr["HTTP-Referer"]; len(vals) != 1 || vals[0] != "https://example.com/app" {
		t.Fatalf("expected HTTP-Referer slice to be preserved, got %+v", vals)
	}
	if _, exists := hdr["Http-Referer"]; exists {
		t.Fatalf("unexpected canonical header variant present: %+v", hdr)
	}

	setHeaderPreserveCase(hdr, "Referer", "https://example.com/app")
	if got := hdr.Get("Referer"); got != "https://example.com/app" {
		t.Fatalf("expected Referer to be set via canonical path, got %q", got)
	}

	// Blank values should be ignored.
	setHeaderPreserveCase(hdr, "  ", "value")
	setHeaderPreserveCase(hdr, "X-Test", "   ")
	if _, exists := hdr[" "]; exists {
		t.Fatalf("expected blank header keys to be ignored")
	}
	if got := hdr.Get("X-Test"); got != "" {
		t.Fatalf("expected blank header values to be skipped, got %q", got)
	}
}

// fakeModel answers every chat completion with content and records the last payload.
func fakeModel(t *testing.T, content string, last *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			http.Error(w, "bad auth "+got, http.StatusUnauthorized)
			return
		}
		if last != nil {
			_ = json.NewDecoder(r.Body).Decode(last)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_BASE", srv.URL)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY_HEADER", "")
	t.Setenv("OPENAI_API_KEY_PREFIX", "")
	return srv
}

func TestPingChoose(t *testing.T) {
	var payload map[string]any
	fakeModel(t, "```json\n{\"choice\":\"ah\",\"comment\":\"top trump\"}\n```", &payload)

	got, raw, err := PingChoose(context.Background(), "gpt-test", "sys", "user", []string{"Ah", "2c"}, PingOptions{})
	if err != nil {
		t.Fatalf("PingChoose: %v (raw %q)", err, raw)
	}
	if got != "Ah" {
		t.Fatalf("expected Ah, got %q", got)
	}
	rf, _ := payload["response_format"].(map[string]any)
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "fortyfives_choice" || js["strict"] != true {
		t.Fatalf("unexpected response_format: %+v", rf)
	}
	if payload["model"] != "gpt-test" {
		t.Fatalf("unexpected model: %v", payload["model"])
	}
}

func TestPingChooseRejectsUnknownChoice(t *testing.T) {
	fakeModel(t, `{"choice":"Ks","comment":""}`, nil)
	if _, _, err := PingChoose(context.Background(), "gpt-test", "sys", "user", []string{"Ah", "2c"}, PingOptions{}); err == nil {
		t.Fatalf("expected error for choice outside the offered set")
	}
}

func TestPingChooseSubset(t *testing.T) {
	fakeModel(t, `{"choices":["2c","Kd","2c"],"comment":"dump"}`, nil)
	got, _, err := PingChooseSubset(context.Background(), "gpt-test", "sys", "user", []string{"2c", "Kd", "9s"}, 0, 3, PingOptions{})
	if err != nil {
		t.Fatalf("PingChooseSubset: %v", err)
	}
	if len(got) != 2 || got[0] != "2c" || got[1] != "Kd" {
		t.Fatalf("unexpected subset: %v", got)
	}

	if _, _, err := PingChooseSubset(context.Background(), "gpt-test", "sys", "user", []string{"2c", "Kd", "9s"}, 0, 1, PingOptions{}); err == nil {
		t.Fatalf("expected error when the model picks too many")
	}
}

func TestPingTextHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE", srv.URL)
	t.Setenv("LLM_PROVIDER", "openai")
	if _, err := PingTextWithOpts(context.Background(), "gpt-test", "s", "u", PingOptions{}); err == nil {
		t.Fatalf("expected http error")
	}
}

func TestExtractJSONObject(t *testing.T) {
	if got := extractJSONObject("sure: {\"a\":1} done"); got != `{"a":1}` {
		t.Fatalf("unexpected: %q", got)
	}
	if got := extractJSONObject("nothing here"); got != "" {
		t.Fatalf("unexpected: %q", got)
	}
}
