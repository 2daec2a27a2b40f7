package summary

import (
	"fmt"
	"strings"
)

const defaultLanguage = "zh-TW"

// overviewMarker separates the narrative paragraph from the detail table in
// every summarization response, so the result can be split without guessing
// at headings.
const (
	overviewMarker = "#### Overall Summary"
	detailsMarker  = "#### Details"
)

func languageLine(language string) string {
	if language == "" {
		language = defaultLanguage
	}
	return "Language: " + language
}

// buildRedminePrompt asks for the issue-tracker work-items table of one
// bucket.
func buildRedminePrompt(project, user string, lines []string, language string) string {
	var sb strings.Builder
	sb.WriteString("You are a project-management assistant. Summarize the following issue-tracker activity for one person on one project.\n")
	sb.WriteString(languageLine(language))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Project: %s\nUser: %s\n\nActivity log:\n%s\n\n", project, user, strings.Join(lines, "\n"))
	sb.WriteString("Respond in exactly this structure:\n")
	sb.WriteString(overviewMarker + "\n")
	sb.WriteString("One short paragraph summarizing this person's work on this project.\n")
	sb.WriteString(detailsMarker + "\n")
	sb.WriteString("A markdown table with columns: Issue (as #id with link when available) | Subject | Status | Timeline (days) | Last Updated | Hours | Summary & Action Items\n")
	sb.WriteString("Keep IMG_PLACEHOLDER_* tokens exactly as they appear; do not expand or remove them.\n")
	return sb.String()
}

// buildGitLabPrompt asks for the source-control activity table of one
// bucket.
func buildGitLabPrompt(project, user string, lines []string, language string) string {
	var sb strings.Builder
	sb.WriteString("You are a project-management assistant. Summarize the following source-control activity for one person on one project.\n")
	sb.WriteString(languageLine(language))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Project: %s\nUser: %s\n\nActivity log:\n%s\n\n", project, user, strings.Join(lines, "\n"))
	sb.WriteString("Respond in exactly this structure:\n")
	sb.WriteString(overviewMarker + "\n")
	sb.WriteString("One short paragraph summarizing this person's development activity.\n")
	sb.WriteString(detailsMarker + "\n")
	sb.WriteString("A markdown table with columns: Date | Type (Commit/MR) | Work Description (translate raw commit/MR text into plain language) | Link\n")
	return sb.String()
}

// buildProjectPrompt asks for one project-level narrative over every user's
// raw lines.
func buildProjectPrompt(project string, lines []string, language string) string {
	var sb strings.Builder
	sb.WriteString("You are a project-management assistant. Write a short narrative summary of overall progress on this project, across all contributors.\n")
	sb.WriteString(languageLine(language))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Project: %s\n\nActivity log:\n%s\n\n", project, strings.Join(lines, "\n"))
	sb.WriteString("Respond with 1-2 paragraphs of narrative only; no tables, no headings.\n")
	return sb.String()
}

// buildGrandPrompt asks for the cross-project executive synthesis over the
// collected overview excerpts.
func buildGrandPrompt(excerpts []string, language string) string {
	var sb strings.Builder
	sb.WriteString("You are a project-management assistant. Based on the per-project and per-person summaries below, write a 1-2 paragraph executive synthesis of the period's work across all projects.\n")
	sb.WriteString(languageLine(language))
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(excerpts, "\n\n---\n\n"))
	sb.WriteString("\n\nRespond with the synthesis only; no headings.\n")
	return sb.String()
}

// splitSummaryResponse separates an LLM response into its overview paragraph
// and its detail table, using the markers the prompt mandated. When the
// markers are missing the whole response is treated as overview.
func splitSummaryResponse(content string) (overview, table string) {
	content = strings.TrimSpace(content)

	rest := content
	if idx := strings.Index(rest, overviewMarker); idx >= 0 {
		rest = rest[idx+len(overviewMarker):]
	}
	if idx := strings.Index(rest, detailsMarker); idx >= 0 {
		return strings.TrimSpace(rest[:idx]), strings.TrimSpace(rest[idx+len(detailsMarker):])
	}
	return strings.TrimSpace(rest), ""
}
