package providers

import "strings"

// ModelOverride applies extra parameters for a specific model pattern.
type ModelOverride struct {
	Pattern   string         // case-insensitive substring to match in model name
	Overrides map[string]any // parameters to merge into the request body
}

// ProviderSpec is the metadata record for one OpenAI-compatible endpoint.
type ProviderSpec struct {
	Name        string   // config value, e.g. "azure"
	Keywords    []string // model-name keywords for matching (lowercase)
	EnvKey      string   // env var conventionally holding the API key
	DisplayName string   // shown in `querybird status`

	IsGateway           bool   // routes any model (OpenRouter)
	IsLocal             bool   // local deployment (vLLM, Ollama)
	DetectByKeyPrefix   string // match api_key prefix to identify gateway
	DetectByBaseKeyword string // match substring in api_base URL
	DefaultAPIBase      string // fallback base URL when none is configured

	// Azure deployments address the model by deployment name in the URL,
	// authenticate with an api-key header and require api-version.
	IsAzure bool

	ModelOverrides []ModelOverride
}

// Label returns the display name, defaulting to Title-cased Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return strings.ToTitle(s.Name[:1]) + s.Name[1:]
}

// PROVIDERS is the registry. Order = match priority.
var PROVIDERS = []ProviderSpec{
	{
		Name:        "custom",
		DisplayName: "Custom",
	},
	{
		Name:                "azure",
		Keywords:            nil,
		EnvKey:              "AZURE_OPENAI_KEY",
		DisplayName:         "Azure OpenAI",
		DetectByBaseKeyword: "openai.azure.com",
		IsAzure:             true,
	},
	{
		Name:                "openrouter",
		Keywords:            []string{"openrouter"},
		EnvKey:              "OPENROUTER_API_KEY",
		DisplayName:         "OpenRouter",
		IsGateway:           true,
		DetectByKeyPrefix:   "sk-or-",
		DetectByBaseKeyword: "openrouter",
		DefaultAPIBase:      "https://openrouter.ai/api/v1",
	},
	{
		Name:        "openai",
		Keywords:    []string{"openai", "gpt", "o1", "o3", "o4"},
		EnvKey:      "OPENAI_API_KEY",
		DisplayName: "OpenAI",
		ModelOverrides: []ModelOverride{
			{Pattern: "o1", Overrides: map[string]any{"temperature": 1.0}},
		},
	},
	{
		Name:           "deepseek",
		Keywords:       []string{"deepseek"},
		EnvKey:         "DEEPSEEK_API_KEY",
		DisplayName:    "DeepSeek",
		DefaultAPIBase: "https://api.deepseek.com/v1",
	},
	{
		Name:           "groq",
		Keywords:       []string{"groq"},
		EnvKey:         "GROQ_API_KEY",
		DisplayName:    "Groq",
		DefaultAPIBase: "https://api.groq.com/openai/v1",
	},
	{
		Name:        "vllm",
		Keywords:    []string{"vllm"},
		EnvKey:      "HOSTED_VLLM_API_KEY",
		DisplayName: "vLLM/Local",
		IsLocal:     true,
	},
}

// FindByModel matches a standard provider by model-name keyword (case-insensitive).
// Skips gateways and local providers; those are matched by api_key/api_base.
func FindByModel(model string) *ProviderSpec {
	modelLower := strings.ToLower(model)
	modelPrefix, _, _ := strings.Cut(modelLower, "/")

	var std []int
	for i := range PROVIDERS {
		if !PROVIDERS[i].IsGateway && !PROVIDERS[i].IsLocal {
			std = append(std, i)
		}
	}

	// Prefer explicit provider prefix.
	for _, i := range std {
		spec := &PROVIDERS[i]
		if strings.Contains(modelLower, "/") && modelPrefix == spec.Name {
			return spec
		}
	}

	for _, i := range std {
		spec := &PROVIDERS[i]
		for _, kw := range spec.Keywords {
			if strings.Contains(modelLower, kw) {
				return spec
			}
		}
	}
	return nil
}

// FindGateway detects a gateway, local or Azure endpoint.
// Priority: (1) explicit provider name, (2) api_key prefix, (3) api_base keyword.
func FindGateway(providerName, apiKey, apiBase string) *ProviderSpec {
	if providerName != "" {
		if s := FindByName(providerName); s != nil && (s.IsGateway || s.IsLocal || s.IsAzure) {
			return s
		}
	}
	for i := range PROVIDERS {
		spec := &PROVIDERS[i]
		if spec.DetectByKeyPrefix != "" && strings.HasPrefix(apiKey, spec.DetectByKeyPrefix) {
			return spec
		}
		if spec.DetectByBaseKeyword != "" && strings.Contains(apiBase, spec.DetectByBaseKeyword) {
			return spec
		}
	}
	return nil
}

// FindByName returns the ProviderSpec whose Name equals name.
func FindByName(name string) *ProviderSpec {
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}

// Resolve picks the spec for a configuration: gateways first, then the
// explicit name, then the model keyword. It returns nil when nothing matches.
func Resolve(providerName, apiKey, apiBase, model string) *ProviderSpec {
	if s := FindGateway(providerName, apiKey, apiBase); s != nil {
		return s
	}
	if s := FindByName(providerName); s != nil {
		return s
	}
	return FindByModel(model)
}
