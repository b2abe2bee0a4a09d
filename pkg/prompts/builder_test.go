package prompts

import (
	"strings"
	"testing"
)

func TestBuildSystemPrompt(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		sections []Section
		expected string
	}{
		{
			name:     "no sections returns trimmed base",
			base:     "BASE\n\n  ",
			expected: "BASE",
		},
		{
			name: "sections precede base",
			base: "BASE\n",
			sections: []Section{
				{Title: SectionWorldTemplate, Content: "  the town  \n"},
				{Title: SectionKnownLore, Content: "lore a\nlore b"},
			},
			expected: "### WORLD_TEMPLATE\nthe town\n\n### KNOWN_LORE\nlore a\nlore b\n\nBASE",
		},
		{
			name:     "empty section content keeps the heading",
			base:     "BASE",
			sections: []Section{{Title: SectionKnownLore, Content: ""}},
			expected: "### KNOWN_LORE\n\n\nBASE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSystemPrompt(tt.base, tt.sections...)
			if got != tt.expected {
				t.Errorf("BuildSystemPrompt() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBuilder_FluentInterface(t *testing.T) {
	got := New("BASE").
		WithSection(SectionWorldStyle, "fog").
		WithSection(SectionKnownLore, "lore").
		Build()
	want := BuildSystemPrompt("BASE",
		Section{Title: SectionWorldStyle, Content: "fog"},
		Section{Title: SectionKnownLore, Content: "lore"},
	)
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestJSONOnlyUserContent(t *testing.T) {
	got, err := JSONOnlyUserContent(map[string]int{"turn_id": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, ContractPrefix) {
		t.Error("content does not start with the contract prefix")
	}
	if !strings.HasSuffix(got, "\n\nINPUT_JSON:\n{\"turn_id\":3}") {
		t.Errorf("unexpected payload suffix: %q", got)
	}

	if _, err := JSONOnlyUserContent(func() {}); err == nil {
		t.Error("expected error for unmarshalable input")
	}
}
