package summary

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pmpulse/backend/pkg/logger"
)

// summarizer fans out chunk and project summarization calls under one
// shared semaphore. The semaphore is scoped to a single pipeline run.
type summarizer struct {
	chat     ChatClient
	settings Settings
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
}

func newSummarizer(chat ChatClient, settings Settings) *summarizer {
	capacity := settings.MaxConcurrent
	if capacity <= 0 {
		capacity = DefaultMaxConcurrent
	}
	return &summarizer{
		chat:     chat,
		settings: settings,
		sem:      make(chan struct{}, capacity),
	}
}

func (s *summarizer) spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
		fn()
	}()
}

// call issues one LLM request, logging and optionally dumping the prompt on
// failure. A failing call degrades; it never aborts sibling tasks.
func (s *summarizer) call(ctx context.Context, label, prompt string) (string, error) {
	content, err := s.chat.ChatCompletion(ctx, prompt, 0.3)
	if err != nil {
		logger.Errorf("[Summary] %s failed: %v", label, err)
		if s.settings.ErrorDumpEnabled {
			dumpError(s.settings.ErrorDumpDir, label, prompt, err)
		}
		return "", err
	}
	return content, nil
}

func failureNote(err error) string {
	return fmt.Sprintf("(AI Analysis Failed: %v)", err)
}

// chunkState accumulates the up-to-two call results for one bucket so the
// assembled section always reads Redmine-then-GitLab regardless of
// completion order.
type chunkState struct {
	bucket          *Bucket
	redmineOverview string
	redmineTable    string
	gitlabOverview  string
	gitlabTable     string
}

// run produces one section per bucket and one narrative section per
// project. All tasks are scheduled together; document order is imposed
// later by the reducer, not by completion order.
func (s *summarizer) run(ctx context.Context, buckets []*Bucket) []Section {
	chunks := make([]*chunkState, len(buckets))
	for i, b := range buckets {
		chunks[i] = &chunkState{bucket: b}
	}

	projectLines := make(map[string][]string)
	for _, b := range buckets {
		projectLines[b.Project] = append(projectLines[b.Project], b.RedmineLines...)
		projectLines[b.Project] = append(projectLines[b.Project], b.GitLabLines...)
	}
	projectSections := make(map[string]*Section, len(projectLines))
	for project := range projectLines {
		projectSections[project] = &Section{
			Project: project,
			SortKey: projectSummarySortKey,
			Heading: fmt.Sprintf("### %s - Summary", project),
		}
	}

	for _, chunk := range chunks {
		chunk := chunk
		b := chunk.bucket
		label := fmt.Sprintf("%s - %s", b.Project, b.User)

		if len(b.RedmineLines) > 0 {
			prompt := buildRedminePrompt(b.Project, b.User, b.RedmineLines, s.settings.Language)
			s.spawn(func() {
				content, err := s.call(ctx, "chunk(redmine) "+label, prompt)
				s.mu.Lock()
				defer s.mu.Unlock()
				if err != nil {
					chunk.redmineOverview = failureNote(err)
					return
				}
				chunk.redmineOverview, chunk.redmineTable = splitSummaryResponse(content)
			})
		}

		if len(b.GitLabLines) > 0 {
			prompt := buildGitLabPrompt(b.Project, b.User, b.GitLabLines, s.settings.Language)
			s.spawn(func() {
				content, err := s.call(ctx, "chunk(gitlab) "+label, prompt)
				s.mu.Lock()
				defer s.mu.Unlock()
				if err != nil {
					chunk.gitlabOverview = failureNote(err)
					return
				}
				chunk.gitlabOverview, chunk.gitlabTable = splitSummaryResponse(content)
			})
		}
	}

	for project, section := range projectSections {
		project, section := project, section
		prompt := buildProjectPrompt(project, projectLines[project], s.settings.Language)
		s.spawn(func() {
			content, err := s.call(ctx, "project "+project, prompt)
			s.mu.Lock()
			defer s.mu.Unlock()
			if err != nil {
				section.Overview = failureNote(err)
				return
			}
			section.Overview = strings.TrimSpace(content)
		})
	}

	s.wg.Wait()

	sections := make([]Section, 0, len(chunks)+len(projectSections))
	for _, section := range projectSections {
		sections = append(sections, *section)
	}
	for _, chunk := range chunks {
		sections = append(sections, chunk.assemble())
	}
	return sections
}

// assemble merges the chunk's call results into its final section, in
// Redmine-then-GitLab order, with the deterministic attachments block.
func (c *chunkState) assemble() Section {
	b := c.bucket

	var overviews, tables []string
	if c.redmineOverview != "" {
		overviews = append(overviews, c.redmineOverview)
	}
	if c.redmineTable != "" {
		tables = append(tables, c.redmineTable)
	}
	if c.gitlabOverview != "" {
		overviews = append(overviews, c.gitlabOverview)
	}
	if c.gitlabTable != "" {
		tables = append(tables, c.gitlabTable)
	}

	return Section{
		Project:     b.Project,
		SortKey:     b.User,
		Heading:     fmt.Sprintf("### %s - %s", b.Project, b.User),
		Overview:    strings.Join(overviews, "\n\n"),
		Table:       strings.Join(tables, "\n\n"),
		Attachments: renderAttachments(b),
	}
}

// renderAttachments lists the bucket's registered images, deduplicated by
// resolved URL. Never LLM-generated.
func renderAttachments(b *Bucket) string {
	if len(b.Images) == 0 {
		return ""
	}

	seen := make(map[string]bool, len(b.Images))
	var lines []string
	for _, img := range b.Images {
		if seen[img.URL] {
			continue
		}
		seen[img.URL] = true
		lines = append(lines, fmt.Sprintf("![Issue #%d - %s - Screenshot](%s)", img.IssueID, img.Subject, img.Placeholder))
	}

	if len(lines) == 0 {
		return ""
	}
	return "**Attachments**\n\n" + strings.Join(lines, "\n")
}
