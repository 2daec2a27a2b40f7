package summary

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeIssueSource struct {
	mu          sync.Mutex
	issues      []Issue
	timeEntries []TimeEntry
	searchCalls int
}

func (f *fakeIssueSource) SearchIssues(ctx context.Context, projectIDs []int, updatedAfter time.Time) ([]Issue, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	return f.issues, nil
}

func (f *fakeIssueSource) GetIssueJournals(ctx context.Context, issueID int) ([]Journal, error) {
	return nil, nil
}

func (f *fakeIssueSource) SearchTimeEntries(ctx context.Context, projectID int, userIDs []int, from, to time.Time) ([]TimeEntry, error) {
	return f.timeEntries, nil
}

func (f *fakeIssueSource) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	return []byte("img"), nil
}

type fakeCodeSource struct {
	name     string
	projects map[int]string
	commits  []Commit
	mrs      []MergeRequest
}

func (f *fakeCodeSource) InstanceName() string            { return f.name }
func (f *fakeCodeSource) ProjectName(projectID int) string { return f.projects[projectID] }

func (f *fakeCodeSource) GetCommits(ctx context.Context, projectID int, since, until time.Time) ([]Commit, error) {
	return f.commits, nil
}

func (f *fakeCodeSource) GetMergeRequests(ctx context.Context, projectID int, updatedAfter time.Time) ([]MergeRequest, error) {
	return f.mrs, nil
}

func TestPipelineRun_NoTargetsConfigured(t *testing.T) {
	issues := &fakeIssueSource{}
	chat := &fakeChat{}
	p := &Pipeline{Issues: issues, Chat: chat}

	result, err := p.Run(context.Background(), Request{
		StartDate: day("2026-08-01"),
		EndDate:   day("2026-08-31"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Markdown != "請先設定關注的專案與人員。" {
		t.Errorf("markdown = %q", result.Markdown)
	}
	if result.Title != "工作總結報告 (2026-08-01 ~ 2026-08-31)" {
		t.Errorf("title = %q", result.Title)
	}
	// Fail-fast: no fetch and no LLM calls.
	if issues.searchCalls != 0 {
		t.Errorf("issue search called %d times", issues.searchCalls)
	}
	if chat.callCount() != 0 {
		t.Errorf("LLM called %d times", chat.callCount())
	}
}

func TestPipelineRun_EmptyWindow(t *testing.T) {
	chat := &fakeChat{}
	p := &Pipeline{Issues: &fakeIssueSource{}, Chat: chat}

	result, err := p.Run(context.Background(), Request{
		ProjectIDs: []int{1},
		UserIDs:    []int{10},
		StartDate:  day("2026-08-01"),
		EndDate:    day("2026-08-31"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Markdown, "本期間查無任何活動紀錄。") {
		t.Errorf("markdown = %q", result.Markdown)
	}
	if chat.callCount() != 0 {
		t.Errorf("LLM called for empty window")
	}
}

func TestPipelineRun_EndDateInclusive(t *testing.T) {
	// Journal lands at 18:00 on the end date; a midnight end bound would
	// exclude it.
	endDay, _ := time.Parse("2006-01-02", "2026-08-31")
	lateJournal, _ := time.Parse("2006-01-02 15:04:05", "2026-08-31 18:00:00")

	issues := &fakeIssueSource{issues: []Issue{{
		ID:          1,
		ProjectName: "Alpha",
		Subject:     "late work",
		UpdatedOn:   lateJournal,
		Journals: []Journal{
			{UserID: 10, UserName: "Alice", Notes: "evening push", CreatedOn: lateJournal},
		},
	}}}

	p := &Pipeline{Issues: issues, Chat: &fakeChat{}}
	result, err := p.Run(context.Background(), Request{
		ProjectIDs: []int{1},
		UserIDs:    []int{10},
		StartDate:  day("2026-08-01"),
		EndDate:    endDay,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Markdown, "### Alpha - Alice") {
		t.Errorf("late journal excluded:\n%s", result.Markdown)
	}
}

func TestPipelineRun_FullReport(t *testing.T) {
	issues := &fakeIssueSource{
		issues: []Issue{{
			ID:          5,
			ProjectName: "Zeta",
			Subject:     "Ship feature",
			Status:      "Resolved",
			UpdatedOn:   day("2026-08-10"),
			Journals: []Journal{
				{UserID: 10, UserName: "Bob", Notes: "shipped", CreatedOn: day("2026-08-10")},
			},
		}},
		timeEntries: []TimeEntry{
			{SpentOn: day("2026-08-03"), Hours: 4, UserName: "Alice", ProjectName: "Alpha"},
		},
	}
	code := &fakeCodeSource{
		name:     "corp-gitlab",
		projects: map[int]string{42: "Alpha"},
		commits: []Commit{{
			ProjectID: 42, Author: "Alice", Date: day("2026-08-05"),
			Message: "improve things", Additions: 5, Deletions: 1,
			Extensions: []string{".go"},
		}},
		mrs: []MergeRequest{{
			ProjectID: 42, Author: "Alice", Title: "Improvement", State: "merged",
			CreatedAt: day("2026-08-04"), UpdatedAt: day("2026-08-05"),
			MergedAt: mergedAt("2026-08-05"), UserNotesCount: 1,
		}},
	}

	p := &Pipeline{
		Issues: issues,
		Code:   []CodeSource{code},
		Chat:   &fakeChat{},
		Settings: Settings{
			MaxConcurrent: 2,
			Language:      "zh-TW",
		},
	}

	result, err := p.Run(context.Background(), Request{
		ProjectIDs:       []int{1},
		UserIDs:          []int{10, 11},
		GitLabProjectIDs: []int{42},
		StartDate:        day("2026-08-01"),
		EndDate:          day("2026-08-31"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := result.Markdown
	for _, want := range []string{
		"# 工作總結報告 (2026-08-01 ~ 2026-08-31)",
		"## 總體摘要",
		"### Alpha - Alice",
		"### Zeta - Bob",
		"## GitLab 活動指標",
		"### corp-gitlab",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("report missing %q:\n%s", want, doc)
		}
	}

	// Projects in lexical order.
	if !(strings.Index(doc, "### Alpha") < strings.Index(doc, "### Zeta")) {
		t.Error("project sections out of order")
	}

	if len(result.Metrics) != 1 {
		t.Fatalf("metrics = %+v", result.Metrics)
	}
	if result.Metrics[0].Instance != "corp-gitlab" || result.Metrics[0].CommitCount != 1 {
		t.Errorf("metrics = %+v", result.Metrics[0])
	}
}

func TestPipelineRun_SettingsFuncUsed(t *testing.T) {
	called := false
	p := &Pipeline{
		Issues: &fakeIssueSource{},
		Chat:   &fakeChat{},
		SettingsFunc: func() Settings {
			called = true
			return Settings{MaxConcurrent: 1}
		},
	}

	_, err := p.Run(context.Background(), Request{
		ProjectIDs: []int{1},
		UserIDs:    []int{10},
		StartDate:  day("2026-08-01"),
		EndDate:    day("2026-08-31"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("SettingsFunc not consulted")
	}
}

func TestPipelineRun_SkipsUnwatchedProjects(t *testing.T) {
	code := &fakeCodeSource{
		name:     "other-gitlab",
		projects: map[int]string{},
		commits:  []Commit{{ProjectID: 7, Author: "Eve", Date: day("2026-08-05")}},
	}
	p := &Pipeline{Issues: &fakeIssueSource{}, Code: []CodeSource{code}, Chat: &fakeChat{}}

	result, err := p.Run(context.Background(), Request{
		ProjectIDs:       []int{1},
		UserIDs:          []int{10},
		GitLabProjectIDs: []int{7},
		StartDate:        day("2026-08-01"),
		EndDate:          day("2026-08-31"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Instance has no watch-listed project, so no activity and no metrics.
	if strings.Contains(result.Markdown, "Eve") {
		t.Errorf("unwatched project leaked into report:\n%s", result.Markdown)
	}
	if len(result.Metrics) != 0 {
		t.Errorf("metrics = %+v", result.Metrics)
	}
}

func TestReportTitle(t *testing.T) {
	got := ReportTitle(day("2026-08-01"), day("2026-08-31"))
	if got != "工作總結報告 (2026-08-01 ~ 2026-08-31)" {
		t.Errorf("title = %q", got)
	}
}
