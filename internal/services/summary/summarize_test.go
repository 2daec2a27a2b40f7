package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeChat is a scripted ChatClient that records peak concurrency.
type fakeChat struct {
	mu      sync.Mutex
	inC     int
	peak    int
	calls   []string
	delay   time.Duration
	respond func(prompt string) (string, error)
}

func (f *fakeChat) ChatCompletion(ctx context.Context, prompt string, temperature float64) (string, error) {
	f.mu.Lock()
	f.inC++
	if f.inC > f.peak {
		f.peak = f.inC
	}
	f.calls = append(f.calls, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inC--
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(prompt)
	}
	return "#### Overall Summary\nok\n#### Details\n| t |", nil
}

func (f *fakeChat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func twoSourceBucket(project, user string) *Bucket {
	return &Bucket{
		Project:      project,
		User:         user,
		RedmineLines: []string{"- [2026-08-01] Issue #1 (a) [New]: note"},
		GitLabLines:  []string{"- [2026-08-01] Commit: x (+1/-0) http://gl/c"},
	}
}

func TestSummarizerRun_SectionShape(t *testing.T) {
	chat := &fakeChat{}
	s := newSummarizer(chat, Settings{MaxConcurrent: 3})

	sections := s.run(context.Background(), []*Bucket{twoSourceBucket("Alpha", "Alice")})

	// One chunk section plus one project narrative.
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	sortSections(sections)

	if sections[0].SortKey != projectSummarySortKey {
		t.Errorf("project section not first: %+v", sections[0])
	}
	if sections[0].Heading != "### Alpha - Summary" {
		t.Errorf("project heading = %q", sections[0].Heading)
	}

	chunk := sections[1]
	if chunk.Heading != "### Alpha - Alice" {
		t.Errorf("chunk heading = %q", chunk.Heading)
	}
	// Two sources means two overview paragraphs joined in order.
	if strings.Count(chunk.Overview, "ok") != 2 {
		t.Errorf("overview = %q", chunk.Overview)
	}

	// 2 chunk calls + 1 project call.
	if chat.callCount() != 3 {
		t.Errorf("call count = %d, want 3", chat.callCount())
	}
}

func TestSummarizerRun_BoundedConcurrency(t *testing.T) {
	chat := &fakeChat{delay: 20 * time.Millisecond}
	s := newSummarizer(chat, Settings{MaxConcurrent: 2})

	buckets := []*Bucket{
		twoSourceBucket("Alpha", "Alice"),
		twoSourceBucket("Alpha", "Bob"),
		twoSourceBucket("Zeta", "Carol"),
	}
	s.run(context.Background(), buckets)

	// 6 chunk calls + 2 project calls, never more than 2 in flight.
	if chat.callCount() != 8 {
		t.Errorf("call count = %d, want 8", chat.callCount())
	}
	if chat.peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", chat.peak)
	}
}

func TestSummarizerRun_FailureDegradesInline(t *testing.T) {
	chat := &fakeChat{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, "issue-tracker activity") {
				return "", errors.New("model offline")
			}
			return "#### Overall Summary\nfine\n#### Details\n| t |", nil
		},
	}
	s := newSummarizer(chat, Settings{MaxConcurrent: 2})

	sections := s.run(context.Background(), []*Bucket{twoSourceBucket("ProjectX", "Alice")})
	sortSections(sections)

	chunk := sections[1]
	if chunk.Heading != "### ProjectX - Alice" {
		t.Fatalf("heading = %q", chunk.Heading)
	}
	if !strings.Contains(chunk.Overview, "(AI Analysis Failed: model offline)") {
		t.Errorf("failure note missing from overview: %q", chunk.Overview)
	}
	// The surviving source's content is still present, after the failure note.
	if !strings.Contains(chunk.Overview, "fine") {
		t.Errorf("surviving content missing: %q", chunk.Overview)
	}
}

func TestSummarizerRun_RedmineBeforeGitLab(t *testing.T) {
	chat := &fakeChat{
		respond: func(prompt string) (string, error) {
			kind := "REDMINE"
			if strings.Contains(prompt, "source-control activity") {
				kind = "GITLAB"
				// Finish the gitlab call content first to prove assembly order
				// is fixed, not completion order.
			}
			return fmt.Sprintf("#### Overall Summary\n%s\n#### Details\n| %s |", kind, kind), nil
		},
	}
	s := newSummarizer(chat, Settings{MaxConcurrent: 1})

	sections := s.run(context.Background(), []*Bucket{twoSourceBucket("Alpha", "Alice")})
	sortSections(sections)
	chunk := sections[1]

	if !(strings.Index(chunk.Overview, "REDMINE") < strings.Index(chunk.Overview, "GITLAB")) {
		t.Errorf("overview order wrong: %q", chunk.Overview)
	}
	if !(strings.Index(chunk.Table, "REDMINE") < strings.Index(chunk.Table, "GITLAB")) {
		t.Errorf("table order wrong: %q", chunk.Table)
	}
}

func TestRenderAttachments(t *testing.T) {
	b := &Bucket{
		Images: []BucketImage{
			{IssueID: 1, Subject: "Bug A", Placeholder: "IMG_PLACEHOLDER_1", URL: "http://h/a.png"},
			{IssueID: 1, Subject: "Bug A", Placeholder: "IMG_PLACEHOLDER_1", URL: "http://h/a.png"},
			{IssueID: 2, Subject: "Bug B", Placeholder: "IMG_PLACEHOLDER_2", URL: "http://h/b.png"},
		},
	}

	out := renderAttachments(b)
	if !strings.HasPrefix(out, "**Attachments**") {
		t.Fatalf("out = %q", out)
	}
	// Duplicate URL collapsed.
	if strings.Count(out, "IMG_PLACEHOLDER_1") != 1 {
		t.Errorf("duplicate not collapsed: %q", out)
	}
	if !strings.Contains(out, "![Issue #2 - Bug B - Screenshot](IMG_PLACEHOLDER_2)") {
		t.Errorf("missing entry: %q", out)
	}

	if renderAttachments(&Bucket{}) != "" {
		t.Error("empty bucket should render nothing")
	}
}
