package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// unknownUser is the sentinel the tracker reports for absent names. The
// fallback-attribution rule compares against it literally, matching the
// upstream data contract.
const unknownUser = "Unknown"

type bucketKey struct {
	project string
	user    string
}

// instanceActivity is one source-control instance's fetched activity plus
// its project-id to name map.
type instanceActivity struct {
	name     string
	projects map[int]string
	commits  []Commit
	mrs      []MergeRequest
}

// fetchResult carries everything the fetch stage produced into grouping.
type fetchResult struct {
	issues      []Issue
	timeEntries []TimeEntry
	instances   []instanceActivity
}

// grouper partitions fetch results into (project, user) buckets. It runs
// strictly before any concurrent work, so it holds no locks.
type grouper struct {
	buckets  map[bucketKey]*Bucket
	registry *PlaceholderRegistry
	baseURL  string
	userIDs  map[int]bool
	start    time.Time
	end      time.Time
}

func newGrouper(req Request, baseURL string, reg *PlaceholderRegistry) *grouper {
	userIDs := make(map[int]bool, len(req.UserIDs))
	for _, id := range req.UserIDs {
		userIDs[id] = true
	}
	return &grouper{
		buckets:  make(map[bucketKey]*Bucket),
		registry: reg,
		baseURL:  baseURL,
		userIDs:  userIDs,
		start:    req.StartDate,
		end:      req.EndDate,
	}
}

func (g *grouper) bucket(project, user string) *Bucket {
	key := bucketKey{project: project, user: user}
	b, ok := g.buckets[key]
	if !ok {
		b = &Bucket{Project: project, User: user}
		g.buckets[key] = b
	}
	return b
}

func (g *grouper) inWindow(t time.Time) bool {
	return !t.Before(g.start) && !t.After(g.end)
}

// fallbackAttribution picks the user for a synthetic issue-updated line:
// assignee unless "Unknown", else author unless "Unknown", else "Unknown".
func fallbackAttribution(assignee, author string) string {
	if assignee != "" && assignee != unknownUser {
		return assignee
	}
	if author != "" && author != unknownUser {
		return author
	}
	return unknownUser
}

// addIssue routes an issue's passing journals into buckets, or emits one
// synthetic line when no journal passes but the issue itself was updated in
// the window.
func (g *grouper) addIssue(issue Issue) {
	passed := 0

	for _, j := range issue.Journals {
		if !g.userIDs[j.UserID] || !g.inWindow(j.CreatedOn) {
			continue
		}
		passed++

		notes, refs := ReplaceImages(j.Notes, issue.Attachments, g.baseURL, issue.ID, g.registry)
		b := g.bucket(issue.ProjectName, j.UserName)
		b.RedmineLines = append(b.RedmineLines, fmt.Sprintf(
			"- [%s] Issue #%d (%s) [%s]: %s",
			j.CreatedOn.Format("2006-01-02"), issue.ID, issue.Subject, issue.Status,
			strings.TrimSpace(notes)))
		g.registerImages(b, issue, refs)
	}

	if passed == 0 && g.inWindow(issue.UpdatedOn) {
		user := fallbackAttribution(issue.AssigneeName, issue.AuthorName)
		_, refs := ReplaceImages(issue.Description, issue.Attachments, g.baseURL, issue.ID, g.registry)
		b := g.bucket(issue.ProjectName, user)
		b.RedmineLines = append(b.RedmineLines, fmt.Sprintf(
			"- [%s] Issue #%d (%s) [%s]: (issue updated)",
			issue.UpdatedOn.Format("2006-01-02"), issue.ID, issue.Subject, issue.Status))
		g.registerImages(b, issue, refs)
	}
}

func (g *grouper) registerImages(b *Bucket, issue Issue, refs []ImageRef) {
	for _, ref := range refs {
		b.Images = append(b.Images, BucketImage{
			IssueID:     issue.ID,
			Subject:     issue.Subject,
			Placeholder: ref.Placeholder,
			URL:         ref.URL,
		})
	}
}

// addTimeEntry appends a logged-hours line. Time entries are filtered only
// by the upstream date-range query, never by the journal filter.
func (g *grouper) addTimeEntry(entry TimeEntry) {
	project := entry.ProjectName
	if project == "" {
		project = "Time Logs"
	}
	b := g.bucket(project, entry.UserName)

	line := fmt.Sprintf("- [%s] %.1fh logged", entry.SpentOn.Format("2006-01-02"), entry.Hours)
	if entry.IssueID > 0 {
		line += fmt.Sprintf(" on Issue #%d", entry.IssueID)
	}
	if entry.Comment != "" {
		line += ": " + entry.Comment
	}
	b.RedmineLines = append(b.RedmineLines, line)
}

// addInstance appends commit and merge-request lines, keyed by the resolved
// project name from the instance watchlist.
func (g *grouper) addInstance(inst instanceActivity) {
	resolve := func(projectID int) string {
		if name, ok := inst.projects[projectID]; ok && name != "" {
			return name
		}
		if inst.name != "" {
			return inst.name
		}
		return "GitLab"
	}

	for _, c := range inst.commits {
		b := g.bucket(resolve(c.ProjectID), c.Author)
		message := strings.SplitN(strings.TrimSpace(c.Message), "\n", 2)[0]
		b.GitLabLines = append(b.GitLabLines, fmt.Sprintf(
			"- [%s] Commit: %s (+%d/-%d) %s",
			c.Date.Format("2006-01-02"), message, c.Additions, c.Deletions, c.WebURL))
	}

	for _, mr := range inst.mrs {
		b := g.bucket(resolve(mr.ProjectID), mr.Author)
		b.GitLabLines = append(b.GitLabLines, fmt.Sprintf(
			"- [%s] MR [%s]: %s (%d review notes) %s",
			mr.UpdatedAt.Format("2006-01-02"), mr.State, mr.Title, mr.UserNotesCount, mr.WebURL))
	}
}

// buildBuckets runs the full grouping pass and returns buckets in a
// deterministic (project, user) order.
func buildBuckets(req Request, data *fetchResult, baseURL string, reg *PlaceholderRegistry) []*Bucket {
	g := newGrouper(req, baseURL, reg)

	for _, issue := range data.issues {
		g.addIssue(issue)
	}
	for _, entry := range data.timeEntries {
		g.addTimeEntry(entry)
	}
	for _, inst := range data.instances {
		g.addInstance(inst)
	}

	keys := make([]bucketKey, 0, len(g.buckets))
	for key := range g.buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].project != keys[j].project {
			return keys[i].project < keys[j].project
		}
		return keys[i].user < keys[j].user
	})

	buckets := make([]*Bucket, 0, len(keys))
	for _, key := range keys {
		buckets = append(buckets, g.buckets[key])
	}
	return buckets
}
