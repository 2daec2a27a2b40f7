package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pmpulse/backend/internal/services/summary"
	"github.com/pmpulse/backend/pkg/logger"
)

// RedmineService is a thin REST client for the Redmine API, implementing the
// pipeline's issue-source contract.
type RedmineService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRedmineService(baseURL, apiKey string) *RedmineService {
	return &RedmineService{
		baseURL:    trimTrailingSlash(baseURL),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// BaseURL returns the configured Redmine root, used for relative image
// resolution.
func (s *RedmineService) BaseURL() string {
	return s.baseURL
}

type redmineIssue struct {
	ID      int `json:"id"`
	Project struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"project"`
	Subject string `json:"subject"`
	Status  struct {
		Name string `json:"name"`
	} `json:"status"`
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
	AssignedTo struct {
		Name string `json:"name"`
	} `json:"assigned_to"`
	Description string     `json:"description"`
	CreatedOn   time.Time  `json:"created_on"`
	UpdatedOn   time.Time  `json:"updated_on"`
	ClosedOn    *time.Time `json:"closed_on"`
	SpentHours  float64    `json:"spent_hours"`
	Journals    []struct {
		User struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
		Notes     string    `json:"notes"`
		CreatedOn time.Time `json:"created_on"`
	} `json:"journals"`
	Attachments []struct {
		Filename   string `json:"filename"`
		ContentURL string `json:"content_url"`
	} `json:"attachments"`
}

type redmineIssueList struct {
	Issues     []redmineIssue `json:"issues"`
	TotalCount int            `json:"total_count"`
	Offset     int            `json:"offset"`
	Limit      int            `json:"limit"`
}

type redmineTimeEntryList struct {
	TimeEntries []struct {
		SpentOn string  `json:"spent_on"`
		Hours   float64 `json:"hours"`
		User    struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
		Issue struct {
			ID int `json:"id"`
		} `json:"issue"`
		Comments string `json:"comments"`
		Project  struct {
			Name string `json:"name"`
		} `json:"project"`
	} `json:"time_entries"`
	TotalCount int `json:"total_count"`
}

func (s *RedmineService) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Redmine-API-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Redmine API returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// SearchIssues returns all issues in the given projects updated on or after
// updatedAfter, with journals and attachments loaded per issue. A failing
// per-project or per-issue call is logged and skipped.
func (s *RedmineService) SearchIssues(ctx context.Context, projectIDs []int, updatedAfter time.Time) ([]summary.Issue, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("redmine base URL not configured")
	}

	var issues []summary.Issue
	for _, projectID := range projectIDs {
		stubs, err := s.listProjectIssues(ctx, projectID, updatedAfter)
		if err != nil {
			logger.Errorf("[Redmine] issue list for project %d failed: %v", projectID, err)
			continue
		}
		for _, stub := range stubs {
			detail, err := s.fetchIssueDetail(ctx, stub.ID)
			if err != nil {
				logger.Errorf("[Redmine] issue #%d detail failed, using stub: %v", stub.ID, err)
				issues = append(issues, convertIssue(stub))
				continue
			}
			issues = append(issues, convertIssue(*detail))
		}
	}
	return issues, nil
}

func (s *RedmineService) listProjectIssues(ctx context.Context, projectID int, updatedAfter time.Time) ([]redmineIssue, error) {
	var all []redmineIssue
	offset := 0
	const limit = 100

	for {
		query := url.Values{}
		query.Set("project_id", fmt.Sprintf("%d", projectID))
		query.Set("status_id", "*")
		query.Set("updated_on", ">="+updatedAfter.Format("2006-01-02"))
		query.Set("limit", fmt.Sprintf("%d", limit))
		query.Set("offset", fmt.Sprintf("%d", offset))

		var page redmineIssueList
		if err := s.get(ctx, s.baseURL+"/issues.json?"+query.Encode(), &page); err != nil {
			return nil, err
		}

		all = append(all, page.Issues...)
		offset += limit
		if len(page.Issues) == 0 || offset >= page.TotalCount {
			break
		}
	}
	return all, nil
}

// fetchIssueDetail loads one issue with journals and attachments; the index
// endpoint cannot include either.
func (s *RedmineService) fetchIssueDetail(ctx context.Context, issueID int) (*redmineIssue, error) {
	var wrapper struct {
		Issue redmineIssue `json:"issue"`
	}
	detailURL := fmt.Sprintf("%s/issues/%d.json?include=journals,attachments", s.baseURL, issueID)
	if err := s.get(ctx, detailURL, &wrapper); err != nil {
		return nil, err
	}
	return &wrapper.Issue, nil
}

// GetIssueJournals fetches journals for one issue.
func (s *RedmineService) GetIssueJournals(ctx context.Context, issueID int) ([]summary.Journal, error) {
	detail, err := s.fetchIssueDetail(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return convertIssue(*detail).Journals, nil
}

// SearchTimeEntries returns logged hours for the given users in one project
// over [from, to]. Redmine filters one user per query, so users are fetched
// in turn.
func (s *RedmineService) SearchTimeEntries(ctx context.Context, projectID int, userIDs []int, from, to time.Time) ([]summary.TimeEntry, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("redmine base URL not configured")
	}

	var entries []summary.TimeEntry
	for _, userID := range userIDs {
		query := url.Values{}
		query.Set("project_id", fmt.Sprintf("%d", projectID))
		query.Set("user_id", fmt.Sprintf("%d", userID))
		query.Set("from", from.Format("2006-01-02"))
		query.Set("to", to.Format("2006-01-02"))
		query.Set("limit", "100")

		var page redmineTimeEntryList
		if err := s.get(ctx, s.baseURL+"/time_entries.json?"+query.Encode(), &page); err != nil {
			logger.Errorf("[Redmine] time entries for user %d failed: %v", userID, err)
			continue
		}

		for _, te := range page.TimeEntries {
			spentOn, err := time.Parse("2006-01-02", te.SpentOn)
			if err != nil {
				continue
			}
			entries = append(entries, summary.TimeEntry{
				SpentOn:     spentOn,
				Hours:       te.Hours,
				UserName:    te.User.Name,
				IssueID:     te.Issue.ID,
				Comment:     te.Comments,
				ProjectName: te.Project.Name,
			})
		}
	}
	return entries, nil
}

// DownloadFile fetches attachment bytes with the API key attached.
func (s *RedmineService) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Redmine-API-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Redmine download returned %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func convertIssue(in redmineIssue) summary.Issue {
	out := summary.Issue{
		ID:           in.ID,
		ProjectID:    in.Project.ID,
		ProjectName:  in.Project.Name,
		Subject:      in.Subject,
		Status:       in.Status.Name,
		Description:  in.Description,
		AuthorName:   in.Author.Name,
		AssigneeName: in.AssignedTo.Name,
		CreatedOn:    in.CreatedOn,
		UpdatedOn:    in.UpdatedOn,
		ClosedOn:     in.ClosedOn,
		SpentHours:   in.SpentHours,
	}

	if len(in.Attachments) > 0 {
		out.Attachments = make(map[string]string, len(in.Attachments))
		for _, a := range in.Attachments {
			if a.Filename != "" && a.ContentURL != "" {
				out.Attachments[a.Filename] = a.ContentURL
			}
		}
	}

	for _, j := range in.Journals {
		out.Journals = append(out.Journals, summary.Journal{
			UserID:    j.User.ID,
			UserName:  j.User.Name,
			Notes:     j.Notes,
			CreatedOn: j.CreatedOn,
		})
	}

	return out
}
