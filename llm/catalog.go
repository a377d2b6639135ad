package llm

// ModelInfo describes a known model and which provider path serves it.
type ModelInfo struct {
	ID            string
	Provider      string
	DisplayName   string
	ContextWindow int
	SupportsJSON  bool // provider accepts response_format json_object
	Aliases       []string
}

// DefaultBaseURL is the Groq OpenAI-compatible endpoint the client targets
// when no base URL is configured.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Models is the built-in catalog. The openai provider path serves any
// model name verbatim; the catalog exists for defaults, aliases, and the
// response_format capability flag.
var Models = []ModelInfo{
	{
		ID: "llama-3.3-70b-versatile", Provider: "openai", DisplayName: "Llama 3.3 70B (Groq)",
		ContextWindow: 131072, SupportsJSON: true,
		Aliases: []string{"llama-70b", "llama3.3"},
	},
	{
		ID: "llama-3.1-8b-instant", Provider: "openai", DisplayName: "Llama 3.1 8B (Groq)",
		ContextWindow: 131072, SupportsJSON: true,
		Aliases: []string{"llama-8b"},
	},
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o Mini",
		ContextWindow: 128000, SupportsJSON: true,
		Aliases: []string{"4o-mini"},
	},
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, SupportsJSON: true,
	},
	{
		ID: "claude-sonnet-4-5", Provider: "gollm:anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, SupportsJSON: false,
		Aliases: []string{"sonnet", "claude-sonnet"},
	},
}

// DefaultModel returns the model used when none is configured.
func DefaultModel() string {
	return "llama-3.3-70b-versatile"
}

// ResolveModel maps an alias to its catalog ID; unknown names pass
// through unchanged so any provider-side model remains reachable.
func ResolveModel(name string) string {
	for i := range Models {
		if Models[i].ID == name {
			return name
		}
		for _, alias := range Models[i].Aliases {
			if alias == name {
				return Models[i].ID
			}
		}
	}
	return name
}

// GetModelInfo returns the catalog entry for a model or alias, nil when
// unknown.
func GetModelInfo(name string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == name {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == name {
				return &Models[i]
			}
		}
	}
	return nil
}
