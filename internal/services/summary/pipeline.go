package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/pmpulse/backend/pkg/logger"
)

// Pipeline orchestrates one report-generation run: a fetch stage followed by
// an analyze stage. A run is one-shot; there is no retry or resume.
type Pipeline struct {
	Issues IssueSource
	Code   []CodeSource
	Chat   ChatClient

	// Settings used when SettingsFunc is nil.
	Settings Settings
	// SettingsFunc, when set, is invoked once at the fetch-to-analyze
	// transition so runtime knobs reflect the configuration at that moment.
	SettingsFunc func() Settings
}

type runState int

const (
	stateFetching runState = iota
	stateAnalyzing
	stateDone
)

func (s runState) String() string {
	switch s {
	case stateFetching:
		return "FETCHING"
	case stateAnalyzing:
		return "ANALYZING"
	default:
		return "DONE"
	}
}

// configErrorBody is the user-facing report body for the fail-fast case
// where no targets are configured. No external call is attempted.
const configErrorBody = "請先設定關注的專案與人員。"

// ReportTitle formats the canonical report title for a date range.
func ReportTitle(start, end time.Time) string {
	return fmt.Sprintf("工作總結報告 (%s ~ %s)", start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Run executes the full pipeline for one request. Everything recoverable
// degrades into the report body; only the no-targets configuration error
// short-circuits, and even that returns a Report rather than an error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	title := ReportTitle(req.StartDate, req.EndDate)

	if len(req.ProjectIDs) == 0 || len(req.UserIDs) == 0 {
		logger.Infof("[Summary] no target projects or users configured, skipping run")
		return &Result{Title: title, Markdown: configErrorBody}, nil
	}

	// Treat the end date as inclusive through end of day.
	if h, m, sec := req.EndDate.Clock(); h == 0 && m == 0 && sec == 0 {
		req.EndDate = req.EndDate.Add(24*time.Hour - time.Second)
	}

	state := stateFetching
	logger.Infof("[Summary] run %s: %s", state, title)
	data := p.fetch(ctx, req)

	settings := p.Settings
	if p.SettingsFunc != nil {
		settings = p.SettingsFunc()
	}
	if settings.Language == "" {
		settings.Language = req.Language
	}

	state = stateAnalyzing
	logger.Infof("[Summary] run %s: %d issues, %d time entries, %d instances",
		state, len(data.issues), len(data.timeEntries), len(data.instances))

	registry := NewPlaceholderRegistry()
	buckets := buildBuckets(req, data, settings.RedmineBaseURL, registry)

	var metrics []InstanceMetrics
	for _, inst := range data.instances {
		metrics = append(metrics, computeInstanceMetrics(inst.name, inst.commits, inst.mrs))
	}

	var markdown string
	if len(buckets) == 0 {
		markdown = assembleDocument(title, "本期間查無任何活動紀錄。", nil, metrics)
	} else {
		s := newSummarizer(p.Chat, settings)
		sections := s.run(ctx, buckets)
		sortSections(sections)
		grand := s.grandSummary(ctx, sections)
		markdown = assembleDocument(title, grand, sections, metrics)
	}

	markdown = registry.RestoreAll(ctx, markdown, p.downloader(), settings.ImageCacheDir, settings.ImageURLPrefix)

	state = stateDone
	logger.Infof("[Summary] run %s: %d buckets, %d placeholders, %d chars",
		state, len(buckets), registry.Len(), len(markdown))

	return &Result{Title: title, Markdown: markdown, Metrics: metrics}, nil
}

func (p *Pipeline) downloader() func(context.Context, string) ([]byte, error) {
	if p.Issues == nil {
		return nil
	}
	return p.Issues.DownloadFile
}

// fetch runs every external query. A failing call is logged and treated as
// zero results for that call; partial data is expected, never fatal.
func (p *Pipeline) fetch(ctx context.Context, req Request) *fetchResult {
	data := &fetchResult{}

	issues, err := p.Issues.SearchIssues(ctx, req.ProjectIDs, req.StartDate)
	if err != nil {
		logger.Errorf("[Summary] issue search failed, continuing with none: %v", err)
		issues = nil
	}
	for i := range issues {
		if len(issues[i].Journals) > 0 {
			continue
		}
		journals, err := p.Issues.GetIssueJournals(ctx, issues[i].ID)
		if err != nil {
			logger.Errorf("[Summary] journals for issue #%d failed: %v", issues[i].ID, err)
			continue
		}
		issues[i].Journals = journals
	}
	data.issues = issues

	for _, projectID := range req.ProjectIDs {
		entries, err := p.Issues.SearchTimeEntries(ctx, projectID, req.UserIDs, req.StartDate, req.EndDate)
		if err != nil {
			logger.Errorf("[Summary] time entries for project %d failed: %v", projectID, err)
			continue
		}
		data.timeEntries = append(data.timeEntries, entries...)
	}

	for _, src := range p.Code {
		inst := instanceActivity{
			name:     src.InstanceName(),
			projects: make(map[int]string),
		}

		for _, projectID := range req.GitLabProjectIDs {
			name := src.ProjectName(projectID)
			if name == "" {
				// Project is not on this instance's watchlist.
				continue
			}
			inst.projects[projectID] = name

			commits, err := src.GetCommits(ctx, projectID, req.StartDate, req.EndDate)
			if err != nil {
				logger.Errorf("[Summary] commits for %s project %d failed: %v", inst.name, projectID, err)
			} else {
				inst.commits = append(inst.commits, commits...)
			}

			mrs, err := src.GetMergeRequests(ctx, projectID, req.StartDate)
			if err != nil {
				logger.Errorf("[Summary] merge requests for %s project %d failed: %v", inst.name, projectID, err)
			} else {
				inst.mrs = append(inst.mrs, mrs...)
			}
		}

		if len(inst.projects) > 0 {
			data.instances = append(data.instances, inst)
		}
	}

	return data
}
