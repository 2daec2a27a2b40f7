package summary

import (
	"strings"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s+" 12:00:00")
	if err != nil {
		panic(err)
	}
	return t
}

func testRequest() Request {
	return Request{
		ProjectIDs: []int{1},
		UserIDs:    []int{10, 11},
		StartDate:  day("2026-08-01"),
		EndDate:    day("2026-08-31"),
	}
}

func TestFallbackAttribution(t *testing.T) {
	tests := []struct {
		assignee string
		author   string
		want     string
	}{
		{"Alice", "Bob", "Alice"},
		{"Unknown", "Bob", "Bob"},
		{"", "Bob", "Bob"},
		{"Unknown", "Unknown", "Unknown"},
		{"", "", "Unknown"},
	}

	for _, tt := range tests {
		if got := fallbackAttribution(tt.assignee, tt.author); got != tt.want {
			t.Errorf("fallbackAttribution(%q, %q) = %q, want %q", tt.assignee, tt.author, got, tt.want)
		}
	}
}

func TestBuildBuckets_JournalFilter(t *testing.T) {
	data := &fetchResult{
		issues: []Issue{{
			ID:          5,
			ProjectName: "Alpha",
			Subject:     "Fix login",
			Status:      "In Progress",
			UpdatedOn:   day("2026-08-10"),
			Journals: []Journal{
				{UserID: 10, UserName: "Alice", Notes: "done", CreatedOn: day("2026-08-10")},
				{UserID: 99, UserName: "Eve", Notes: "drive-by", CreatedOn: day("2026-08-10")},
				{UserID: 11, UserName: "Bob", Notes: "too early", CreatedOn: day("2026-07-20")},
			},
		}},
	}

	buckets := buildBuckets(testRequest(), data, "", NewPlaceholderRegistry())
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	b := buckets[0]
	if b.Project != "Alpha" || b.User != "Alice" {
		t.Fatalf("bucket = (%s, %s)", b.Project, b.User)
	}
	if len(b.RedmineLines) != 1 {
		t.Fatalf("expected 1 line, got %d: %v", len(b.RedmineLines), b.RedmineLines)
	}
	want := "- [2026-08-10] Issue #5 (Fix login) [In Progress]: done"
	if b.RedmineLines[0] != want {
		t.Errorf("line = %q, want %q", b.RedmineLines[0], want)
	}
}

func TestBuildBuckets_SyntheticUpdateLine(t *testing.T) {
	data := &fetchResult{
		issues: []Issue{{
			ID:           8,
			ProjectName:  "Alpha",
			Subject:      "Tune cache",
			Status:       "Closed",
			AssigneeName: "Unknown",
			AuthorName:   "Dave",
			UpdatedOn:    day("2026-08-15"),
		}},
	}

	buckets := buildBuckets(testRequest(), data, "", NewPlaceholderRegistry())
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	b := buckets[0]
	if b.User != "Dave" {
		t.Errorf("attributed to %q, want Dave", b.User)
	}
	if !strings.Contains(b.RedmineLines[0], "(issue updated)") {
		t.Errorf("line = %q", b.RedmineLines[0])
	}
}

func TestBuildBuckets_NoSyntheticLineOutsideWindow(t *testing.T) {
	data := &fetchResult{
		issues: []Issue{{
			ID:          9,
			ProjectName: "Alpha",
			UpdatedOn:   day("2026-09-15"),
		}},
	}

	buckets := buildBuckets(testRequest(), data, "", NewPlaceholderRegistry())
	if len(buckets) != 0 {
		t.Fatalf("expected no buckets, got %d", len(buckets))
	}
}

func TestBuildBuckets_DescriptionImagesOnSyntheticLine(t *testing.T) {
	reg := NewPlaceholderRegistry()
	data := &fetchResult{
		issues: []Issue{{
			ID:          4,
			ProjectName: "Alpha",
			Subject:     "Render bug",
			AuthorName:  "Alice",
			Description: "looks like !bug.png!",
			Attachments: map[string]string{"bug.png": "http://host/a/bug.png"},
			UpdatedOn:   day("2026-08-05"),
		}},
	}

	buckets := buildBuckets(testRequest(), data, "http://host", reg)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	b := buckets[0]
	if len(b.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(b.Images))
	}
	img := b.Images[0]
	if img.URL != "http://host/a/bug.png" {
		t.Errorf("image URL = %q", img.URL)
	}
	if img.IssueID != 4 || img.Subject != "Render bug" {
		t.Errorf("image meta = %+v", img)
	}
	if _, ok := reg.URLFor(img.Placeholder); !ok {
		t.Errorf("placeholder %q not registered", img.Placeholder)
	}
}

func TestBuildBuckets_TimeEntries(t *testing.T) {
	data := &fetchResult{
		timeEntries: []TimeEntry{
			{SpentOn: day("2026-08-03"), Hours: 2.5, UserName: "Alice", IssueID: 7, Comment: "debugging", ProjectName: "Alpha"},
			{SpentOn: day("2026-08-04"), Hours: 1, UserName: "Bob"},
		},
	}

	buckets := buildBuckets(testRequest(), data, "", NewPlaceholderRegistry())
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}

	var alpha, fallback *Bucket
	for _, b := range buckets {
		switch b.Project {
		case "Alpha":
			alpha = b
		case "Time Logs":
			fallback = b
		}
	}
	if alpha == nil || fallback == nil {
		t.Fatalf("missing expected buckets: %+v", buckets)
	}

	want := "- [2026-08-03] 2.5h logged on Issue #7: debugging"
	if alpha.RedmineLines[0] != want {
		t.Errorf("line = %q, want %q", alpha.RedmineLines[0], want)
	}
	if fallback.RedmineLines[0] != "- [2026-08-04] 1.0h logged" {
		t.Errorf("fallback line = %q", fallback.RedmineLines[0])
	}
}

func TestBuildBuckets_InstanceActivity(t *testing.T) {
	data := &fetchResult{
		instances: []instanceActivity{{
			name:     "corp-gitlab",
			projects: map[int]string{42: "Billing"},
			commits: []Commit{{
				ProjectID: 42, Author: "Alice", Date: day("2026-08-07"),
				Message: "fix rounding\n\nlong body", Additions: 10, Deletions: 2,
				WebURL: "http://gl/c/1",
			}},
			mrs: []MergeRequest{{
				ProjectID: 42, Author: "Bob", Title: "Refactor invoices", State: "merged",
				UpdatedAt: day("2026-08-09"), UserNotesCount: 3, WebURL: "http://gl/mr/2",
			}},
		}},
	}

	buckets := buildBuckets(testRequest(), data, "", NewPlaceholderRegistry())
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}

	if buckets[0].User != "Alice" || buckets[1].User != "Bob" {
		t.Fatalf("bucket order: %s, %s", buckets[0].User, buckets[1].User)
	}

	wantCommit := "- [2026-08-07] Commit: fix rounding (+10/-2) http://gl/c/1"
	if buckets[0].GitLabLines[0] != wantCommit {
		t.Errorf("commit line = %q, want %q", buckets[0].GitLabLines[0], wantCommit)
	}

	wantMR := "- [2026-08-09] MR [merged]: Refactor invoices (3 review notes) http://gl/mr/2"
	if buckets[1].GitLabLines[0] != wantMR {
		t.Errorf("mr line = %q, want %q", buckets[1].GitLabLines[0], wantMR)
	}
}

func TestBuildBuckets_DeterministicOrder(t *testing.T) {
	data := &fetchResult{
		timeEntries: []TimeEntry{
			{SpentOn: day("2026-08-03"), Hours: 1, UserName: "Bob", ProjectName: "Zeta"},
			{SpentOn: day("2026-08-03"), Hours: 1, UserName: "Alice", ProjectName: "Zeta"},
			{SpentOn: day("2026-08-03"), Hours: 1, UserName: "Bob", ProjectName: "Alpha"},
		},
	}

	buckets := buildBuckets(testRequest(), data, "", NewPlaceholderRegistry())
	got := make([]string, len(buckets))
	for i, b := range buckets {
		got[i] = b.Project + "/" + b.User
	}
	want := []string{"Alpha/Bob", "Zeta/Alice", "Zeta/Bob"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
