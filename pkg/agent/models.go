package agent

import "strings"

// DefaultModel is used when neither a per-agent nor a general model is set.
const DefaultModel = "gemini-2.0-flash"

// Agent types that can have their own model.
var AgentTypes = []string{"judge", "world", "quest", "narrator", "archivist", "compressor", "generator", "envstate"}

// ModelRegistry resolves the model identifier for each agent type.
type ModelRegistry struct {
	general  string
	perAgent map[string]string
}

// NewModelRegistry builds a registry. perAgent is keyed by agent type;
// empty values are ignored.
func NewModelRegistry(general string, perAgent map[string]string) *ModelRegistry {
	m := &ModelRegistry{general: general, perAgent: make(map[string]string, len(perAgent))}
	for k, v := range perAgent {
		if v != "" {
			m.perAgent[strings.ToLower(k)] = v
		}
	}
	return m
}

// ModelFor resolves the per-agent model, then the general model, then
// DefaultModel.
func (m *ModelRegistry) ModelFor(agent string) string {
	if m != nil {
		if v, ok := m.perAgent[strings.ToLower(agent)]; ok {
			return v
		}
		if m.general != "" {
			return m.general
		}
	}
	return DefaultModel
}

// EnvKey returns the environment variable that overrides an agent's model.
func EnvKey(agent string) string {
	return "LLM_MODEL_" + strings.ToUpper(agent)
}
