package summary

import (
	"strings"
	"testing"
)

func TestSplitSummaryResponse(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantOverview string
		wantTable    string
	}{
		{
			name: "both markers",
			content: "#### Overall Summary\nDid some work.\n#### Details\n| a | b |",
			wantOverview: "Did some work.",
			wantTable:    "| a | b |",
		},
		{
			name:         "missing markers treats all as overview",
			content:      "Just a paragraph.",
			wantOverview: "Just a paragraph.",
			wantTable:    "",
		},
		{
			name:         "details marker only",
			content:      "Intro text\n#### Details\n| x |",
			wantOverview: "Intro text",
			wantTable:    "| x |",
		},
		{
			name:         "empty response",
			content:      "",
			wantOverview: "",
			wantTable:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overview, table := splitSummaryResponse(tt.content)
			if overview != tt.wantOverview {
				t.Errorf("overview = %q, want %q", overview, tt.wantOverview)
			}
			if table != tt.wantTable {
				t.Errorf("table = %q, want %q", table, tt.wantTable)
			}
		})
	}
}

func TestPromptLanguageLine(t *testing.T) {
	p := buildRedminePrompt("Alpha", "Alice", []string{"- line"}, "en")
	if !strings.Contains(p, "Language: en") {
		t.Errorf("prompt missing language line:\n%s", p)
	}

	p = buildGitLabPrompt("Alpha", "Alice", []string{"- line"}, "")
	if !strings.Contains(p, "Language: zh-TW") {
		t.Errorf("prompt missing default language:\n%s", p)
	}
}

func TestRedminePromptKeepsPlaceholderInstruction(t *testing.T) {
	p := buildRedminePrompt("Alpha", "Alice", []string{"- saw IMG_PLACEHOLDER_1"}, "zh-TW")
	if !strings.Contains(p, "IMG_PLACEHOLDER_*") {
		t.Errorf("prompt does not protect placeholder tokens:\n%s", p)
	}
}
