// Package summary implements the work-summary aggregation pipeline: it pulls
// time-windowed records from an issue tracker and one or more source-control
// instances, groups them into (project, user) buckets, fans out bounded
// concurrent LLM summarization calls, and reduces the results into a single
// markdown report.
package summary

import (
	"context"
	"time"
)

// Issue is a fully-resolved issue fetched from the tracker. Everything
// downstream of the fetch stage operates on this shape, never on raw API
// payloads.
type Issue struct {
	ID           int
	ProjectID    int
	ProjectName  string
	Subject      string
	Status       string
	Description  string
	AuthorName   string
	AssigneeName string
	CreatedOn    time.Time
	UpdatedOn    time.Time
	ClosedOn     *time.Time
	SpentHours   float64
	// Attachments maps filename to a fetchable content URL.
	Attachments map[string]string
	Journals    []Journal
}

// Journal is one comment/update entry on an issue.
type Journal struct {
	UserID    int
	UserName  string
	Notes     string
	CreatedOn time.Time
}

// TimeEntry is a logged-hours record, fetched independently per project.
type TimeEntry struct {
	SpentOn     time.Time
	Hours       float64
	UserName    string
	IssueID     int
	Comment     string
	ProjectName string
}

// Commit is one source-control commit with line stats and the file
// extensions it touched.
type Commit struct {
	ProjectID  int
	Author     string
	Date       time.Time
	Message    string
	Additions  int
	Deletions  int
	WebURL     string
	Extensions []string
}

// MergeRequest is one merge/pull request record.
type MergeRequest struct {
	ProjectID      int
	Author         string
	Title          string
	State          string // opened, merged, closed
	CreatedAt      time.Time
	UpdatedAt      time.Time
	MergedAt       *time.Time
	UserNotesCount int
	WebURL         string
}

// Request describes one report-generation run. Immutable for the pipeline's
// duration.
type Request struct {
	OwnerID          uint
	ProjectIDs       []int
	UserIDs          []int
	GitLabProjectIDs []int
	StartDate        time.Time
	EndDate          time.Time
	Language         string
}

// Settings are the runtime knobs resolved once by the caller at the
// fetch-to-analyze boundary.
type Settings struct {
	MaxConcurrent    int
	Language         string
	RedmineBaseURL   string
	ErrorDumpEnabled bool
	ErrorDumpDir     string
	ImageCacheDir    string
	ImageURLPrefix   string
}

// DefaultMaxConcurrent bounds LLM fan-out when no setting is configured.
const DefaultMaxConcurrent = 5

// IssueSource is the issue-tracker collaborator.
type IssueSource interface {
	// SearchIssues returns issues in the given projects updated on or after
	// updatedAfter, with journals and attachments included.
	SearchIssues(ctx context.Context, projectIDs []int, updatedAfter time.Time) ([]Issue, error)
	// GetIssueJournals fetches journals for one issue when the search result
	// did not include them.
	GetIssueJournals(ctx context.Context, issueID int) ([]Journal, error)
	// SearchTimeEntries returns logged hours for the given users in one
	// project over [from, to].
	SearchTimeEntries(ctx context.Context, projectID int, userIDs []int, from, to time.Time) ([]TimeEntry, error)
	// DownloadFile fetches attachment bytes through the tracker's
	// authenticated download capability.
	DownloadFile(ctx context.Context, fileURL string) ([]byte, error)
}

// CodeSource is one source-control instance collaborator.
type CodeSource interface {
	InstanceName() string
	// ProjectName resolves a project ID to a display name via the instance
	// watchlist; returns "" when unknown.
	ProjectName(projectID int) string
	GetCommits(ctx context.Context, projectID int, since, until time.Time) ([]Commit, error)
	GetMergeRequests(ctx context.Context, projectID int, updatedAfter time.Time) ([]MergeRequest, error)
}

// ChatClient is the LLM collaborator: text in, text out.
type ChatClient interface {
	ChatCompletion(ctx context.Context, prompt string, temperature float64) (string, error)
}

// BucketImage is one registered image reference, kept for the deterministic
// attachments section.
type BucketImage struct {
	IssueID     int
	Subject     string
	Placeholder string
	URL         string
}

// Bucket accumulates formatted work-log lines for one (project, user) pair.
// The redmine and gitlab line lists are independent; either may be empty but
// not both.
type Bucket struct {
	Project      string
	User         string
	RedmineLines []string
	GitLabLines  []string
	Images       []BucketImage
}

// projectSummarySortKey sorts a project's narrative section before any of
// its per-user chunks.
const projectSummarySortKey = "00_SUMMARY"

// Section is one assembled report section with structured fields, so the
// reducer never re-parses markdown headings.
type Section struct {
	Project     string
	SortKey     string
	Heading     string
	Overview    string
	Table       string
	Attachments string
}

// ExtensionStat is one file-extension frequency entry.
type ExtensionStat struct {
	Extension string  `json:"extension"`
	Count     int     `json:"count"`
	Percent   float64 `json:"percent"`
}

// InstanceMetrics is the deterministic per-instance dashboard appended to
// the report. Never LLM-generated.
type InstanceMetrics struct {
	Instance        string          `json:"instance"`
	CommitCount     int             `json:"commit_count"`
	TotalAdditions  int             `json:"total_additions"`
	TotalDeletions  int             `json:"total_deletions"`
	NetLines        int             `json:"net_lines"`
	TopExtensions   []ExtensionStat `json:"top_extensions"`
	AvgCycleHours   float64         `json:"avg_cycle_hours"`
	MergedCount     int             `json:"merged_count"`
	OpenedCount     int             `json:"opened_count"`
	ReviewNoteCount int             `json:"review_note_count"`
}

// Result is the finished report handed back to the caller for persistence.
type Result struct {
	Title    string
	Markdown string
	Metrics  []InstanceMetrics
}
