package llm

import (
	"errors"
	"net/http"
	"os"
	"strings"
)

type providerKind int

const (
	providerOpenAI providerKind = iota
	providerOpenRouter
)

func (k providerKind) String() string {
	if k == providerOpenRouter {
		return "openrouter"
	}
	return "openai"
}

func (k providerKind) defaultBase() string {
	if k == providerOpenRouter {
		return "https://openrouter.ai/api/v1"
	}
	return "https://api.openai.com/v1"
}

// DefaultTitle is sent as X-Title to OpenRouter unless OPENROUTER_TITLE overrides it.
const DefaultTitle = "Forty-Fives Bench"

// apiConfig is everything one chat-completions request needs to reach a provider.
type apiConfig struct {
	Kind         providerKind
	APIKey       string
	Model        string
	BaseURL      string
	HeaderName   string
	HeaderPrefix string
	Organization string
	ExtraHeaders map[string]string
}

// resolveAPIConfig picks the provider, base URL, key and headers for model from the
// environment. LLM_PROVIDER wins over every other hint; otherwise an "openrouter/"
// model prefix or an openrouter base URL selects OpenRouter.
func resolveAPIConfig(model string) (apiConfig, error) {
	kind, forced := providerOverride()
	if !forced {
		kind = providerOpenAI
		if preferOpenRouterEnv() {
			kind = providerOpenRouter
		}
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = envWithFallback(kind == providerOpenRouter, "OPENAI_MODEL", "OPENROUTER_MODEL")
	}
	if model == "" {
		return apiConfig{}, errors.New("model missing: set OPENAI_MODEL/OPENROUTER_MODEL or pass a value")
	}
	if p, ok := detectProviderFromModel(model); ok && !forced {
		kind = p
	}

	base := firstNonEmpty(
		os.Getenv("OPENAI_API_BASE"),
		os.Getenv("OPENAI_BASE_URL"),
		os.Getenv("OPENROUTER_API_BASE"),
		os.Getenv("OPENROUTER_BASE_URL"),
	)
	if base == "" {
		base = kind.defaultBase()
	}
	base = strings.TrimRight(base, "/")
	if !forced && strings.Contains(strings.ToLower(base), "openrouter") {
		kind = providerOpenRouter
	}

	key := envWithFallback(kind == providerOpenRouter, "OPENAI_API_KEY", "OPENROUTER_API_KEY")
	if key == "" {
		return apiConfig{}, errors.New("API key missing: set OPENAI_API_KEY or OPENROUTER_API_KEY")
	}

	cfg := apiConfig{
		Kind:         kind,
		APIKey:       key,
		Model:        model,
		BaseURL:      base,
		Organization: strings.TrimSpace(os.Getenv("OPENAI_ORG")),
		ExtraHeaders: map[string]string{},
	}
	cfg.HeaderName, cfg.HeaderPrefix = authHeader()
	if kind == providerOpenRouter {
		if v := strings.TrimSpace(os.Getenv("OPENROUTER_SITE_URL")); v != "" {
			cfg.ExtraHeaders["HTTP-Referer"] = v
			cfg.ExtraHeaders["Referer"] = v
		}
		cfg.ExtraHeaders["X-Title"] = coalesce(strings.TrimSpace(os.Getenv("OPENROUTER_TITLE")), DefaultTitle)
	}
	return cfg, nil
}

func providerOverride() (providerKind, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))) {
	case "openrouter":
		return providerOpenRouter, true
	case "openai":
		return providerOpenAI, true
	}
	return providerOpenAI, false
}

// authHeader defaults to "Authorization: Bearer <key>".
func authHeader() (name, prefix string) {
	name = firstNonEmpty(os.Getenv("OPENAI_API_KEY_HEADER"), os.Getenv("OPENROUTER_API_KEY_HEADER"))
	if name == "" {
		name = "Authorization"
	}
	prefix = os.Getenv("OPENAI_API_KEY_PREFIX")
	if prefix == "" {
		prefix = os.Getenv("OPENROUTER_API_KEY_PREFIX")
	}
	if name == "Authorization" && strings.TrimSpace(prefix) == "" {
		prefix = "Bearer "
	}
	return name, prefix
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Configured reports whether a model call could be attempted for model.
func Configured(model string) error {
	_, err := resolveAPIConfig(model)
	return err
}

// setHeaderPreserveCase writes non-canonical names (HTTP-Referer) verbatim; some gateways match case.
func setHeaderPreserveCase(h http.Header, name, value string) {
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return
	}
	if canon := http.CanonicalHeaderKey(name); canon == name {
		h.Set(name, value)
		return
	}
	h[name] = []string{value}
}

func detectProviderFromModel(model string) (providerKind, bool) {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "openrouter/") {
		return providerOpenRouter, true
	}
	return providerOpenAI, false
}
