package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Section titles used when composing agent system prompts.
const (
	SectionWorldTemplate = "WORLD_TEMPLATE"
	SectionKnownLore     = "KNOWN_LORE"
	SectionHardRules     = "HARD_RULES"
	SectionWorldStyle    = "WORLD_STYLE"
)

// Section is a titled block of dynamic context.
type Section struct {
	Title   string
	Content string
}

// BuildSystemPrompt places the sections before the base prompt so that the
// base prompt's output format stays the final instruction the model reads.
// Each section renders as "### TITLE\ncontent".
func BuildSystemPrompt(base string, sections ...Section) string {
	trimmedBase := strings.TrimRight(base, " \t\r\n")
	if len(sections) == 0 {
		return trimmedBase
	}

	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, "### "+s.Title+"\n"+strings.TrimSpace(s.Content))
	}
	return strings.TrimRight(strings.Join(parts, "\n\n")+"\n\n"+trimmedBase, " \t\r\n")
}

// JSONOnlyUserContent wraps an agent payload with the JSON output contract.
func JSONOnlyUserContent(input any) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to marshal agent input: %w", err)
	}
	return ContractPrefix + "\n\nINPUT_JSON:\n" + string(data), nil
}

// Builder composes a system prompt using a fluent interface.
type Builder struct {
	base     string
	sections []Section
}

// New creates a builder for the given base prompt.
func New(base string) *Builder {
	return &Builder{base: base}
}

// WithSection appends a titled context section.
func (b *Builder) WithSection(title, content string) *Builder {
	b.sections = append(b.sections, Section{Title: title, Content: content})
	return b
}

// Build returns the composed system prompt.
func (b *Builder) Build() string {
	return BuildSystemPrompt(b.base, b.sections...)
}
