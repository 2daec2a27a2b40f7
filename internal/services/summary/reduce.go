package summary

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// grandSummaryFallback replaces the executive synthesis when its LLM call
// fails. The report still completes.
const grandSummaryFallback = "（無法產生總體摘要，請參閱以下各專案內容。）"

// sortSections orders sections by (project, sort key). The project-summary
// sentinel sorts before every user name, so each project's narrative leads
// its per-user chunks, and projects are ordered lexically.
func sortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].Project != sections[j].Project {
			return sections[i].Project < sections[j].Project
		}
		return sections[i].SortKey < sections[j].SortKey
	})
}

// grandSummary synthesizes the cross-project executive paragraph from the
// structured overview fields; no markdown re-parsing is involved.
func (s *summarizer) grandSummary(ctx context.Context, sections []Section) string {
	var excerpts []string
	for _, sec := range sections {
		if sec.Overview == "" {
			continue
		}
		excerpts = append(excerpts, sec.Heading+"\n"+sec.Overview)
	}
	if len(excerpts) == 0 {
		return grandSummaryFallback
	}

	prompt := buildGrandPrompt(excerpts, s.settings.Language)
	content, err := s.call(ctx, "grand summary", prompt)
	if err != nil {
		return grandSummaryFallback
	}
	return strings.TrimSpace(content)
}

func renderSection(sec Section) string {
	parts := []string{sec.Heading}
	if sec.Overview != "" {
		parts = append(parts, sec.Overview)
	}
	if sec.Table != "" {
		parts = append(parts, sec.Table)
	}
	if sec.Attachments != "" {
		parts = append(parts, sec.Attachments)
	}
	return strings.Join(parts, "\n\n")
}

// assembleDocument builds the final markdown: title, grand summary, ordered
// sections, then the deterministic metrics appendix.
func assembleDocument(title, grand string, sections []Section, metrics []InstanceMetrics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)

	sb.WriteString("## 總體摘要\n\n")
	sb.WriteString(grand)
	sb.WriteString("\n")

	for _, sec := range sections {
		sb.WriteString("\n")
		sb.WriteString(renderSection(sec))
		sb.WriteString("\n")
	}

	if appendix := renderMetricsAppendix(metrics); appendix != "" {
		sb.WriteString("\n")
		sb.WriteString(appendix)
	}

	return sb.String()
}

// computeInstanceMetrics builds the per-instance dashboard numbers from raw
// commit and merge-request data.
func computeInstanceMetrics(name string, commits []Commit, mrs []MergeRequest) InstanceMetrics {
	m := InstanceMetrics{Instance: name, CommitCount: len(commits)}

	extCounts := make(map[string]int)
	for _, c := range commits {
		m.TotalAdditions += c.Additions
		m.TotalDeletions += c.Deletions
		for _, ext := range c.Extensions {
			extCounts[ext]++
		}
	}
	m.NetLines = m.TotalAdditions - m.TotalDeletions

	totalFiles := 0
	for _, count := range extCounts {
		totalFiles += count
	}
	if totalFiles > 0 {
		stats := make([]ExtensionStat, 0, len(extCounts))
		for ext, count := range extCounts {
			stats = append(stats, ExtensionStat{
				Extension: ext,
				Count:     count,
				Percent:   math.Round(float64(count)/float64(totalFiles)*1000) / 10,
			})
		}
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].Count != stats[j].Count {
				return stats[i].Count > stats[j].Count
			}
			return stats[i].Extension < stats[j].Extension
		})
		if len(stats) > 5 {
			stats = stats[:5]
		}
		m.TopExtensions = stats
	}

	var cycleSeconds []float64
	for _, mr := range mrs {
		switch mr.State {
		case "merged":
			m.MergedCount++
			if mr.MergedAt != nil && !mr.CreatedAt.IsZero() {
				cycleSeconds = append(cycleSeconds, mr.MergedAt.Sub(mr.CreatedAt).Seconds())
			}
		case "opened":
			m.OpenedCount++
		}
		m.ReviewNoteCount += mr.UserNotesCount
	}
	if len(cycleSeconds) > 0 {
		total := 0.0
		for _, d := range cycleSeconds {
			total += d
		}
		m.AvgCycleHours = math.Round(total/float64(len(cycleSeconds))/3600*10) / 10
	}

	return m
}

// renderMetricsAppendix renders one table per source-control instance.
func renderMetricsAppendix(metrics []InstanceMetrics) string {
	if len(metrics) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## GitLab 活動指標\n")

	for _, m := range metrics {
		fmt.Fprintf(&sb, "\n### %s\n\n", m.Instance)
		sb.WriteString("| 指標 | 數值 |\n|---|---|\n")
		fmt.Fprintf(&sb, "| Commits | %d |\n", m.CommitCount)
		fmt.Fprintf(&sb, "| 淨變更行數 | %+d (+%d / -%d) |\n", m.NetLines, m.TotalAdditions, m.TotalDeletions)
		if len(m.TopExtensions) > 0 {
			var techs []string
			for _, t := range m.TopExtensions {
				techs = append(techs, fmt.Sprintf("%s %.1f%%", t.Extension, t.Percent))
			}
			fmt.Fprintf(&sb, "| 主要技術 | %s |\n", strings.Join(techs, ", "))
		}
		fmt.Fprintf(&sb, "| 平均 MR 週期 | %.1f 小時 |\n", m.AvgCycleHours)
		fmt.Fprintf(&sb, "| MR 狀態 | 已合併 %d / 進行中 %d |\n", m.MergedCount, m.OpenedCount)
		fmt.Fprintf(&sb, "| 審查留言 | %d |\n", m.ReviewNoteCount)
	}

	return sb.String()
}
