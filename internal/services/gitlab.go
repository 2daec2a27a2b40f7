package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/pmpulse/backend/internal/models"
	"github.com/pmpulse/backend/internal/services/summary"
	"github.com/pmpulse/backend/pkg/logger"
)

// GitLabService is a REST client for one GitLab instance, implementing the
// pipeline's code-source contract. Project names are resolved through the
// instance's stored watchlist.
type GitLabService struct {
	instance   models.GitLabInstance
	projects   map[int]string
	httpClient *http.Client
}

func NewGitLabService(instance models.GitLabInstance, watchlist []models.GitLabWatchlist) *GitLabService {
	projects := make(map[int]string, len(watchlist))
	for _, w := range watchlist {
		if w.InstanceID != instance.ID || !w.IsIncluded {
			continue
		}
		name := w.Name
		if name == "" {
			name = w.PathWithNS
		}
		projects[w.GitLabProjectID] = name
	}

	return &GitLabService{
		instance:   instance,
		projects:   projects,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *GitLabService) InstanceName() string {
	return s.instance.Name
}

func (s *GitLabService) ProjectName(projectID int) string {
	return s.projects[projectID]
}

type gitLabCommit struct {
	ID            string    `json:"id"`
	ShortID       string    `json:"short_id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	AuthorName    string    `json:"author_name"`
	CommittedDate time.Time `json:"committed_date"`
	WebURL        string    `json:"web_url"`
	Stats         *struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
		Total     int `json:"total"`
	} `json:"stats"`
}

type gitLabDiff struct {
	NewPath string `json:"new_path"`
}

type gitLabMergeRequest struct {
	Title  string `json:"title"`
	State  string `json:"state"`
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	MergedAt       *time.Time `json:"merged_at"`
	UserNotesCount int        `json:"user_notes_count"`
	WebURL         string     `json:"web_url"`
}

func (s *GitLabService) get(ctx context.Context, apiURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", apiURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("PRIVATE-TOKEN", s.instance.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GitLab API returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// GetCommits lists commits with line stats and the file extensions each one
// touched, for the metrics appendix.
func (s *GitLabService) GetCommits(ctx context.Context, projectID int, since, until time.Time) ([]summary.Commit, error) {
	baseURL := fmt.Sprintf("%s/api/v4/projects/%d/repository/commits?since=%s&until=%s&with_stats=true&per_page=100",
		trimTrailingSlash(s.instance.URL), projectID,
		since.Format(time.RFC3339), until.Format(time.RFC3339))

	var commits []summary.Commit
	page := 1

	for {
		var batch []gitLabCommit
		if err := s.get(ctx, fmt.Sprintf("%s&page=%d", baseURL, page), &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, c := range batch {
			commit := summary.Commit{
				ProjectID: projectID,
				Author:    c.AuthorName,
				Date:      c.CommittedDate,
				Message:   c.Message,
				WebURL:    c.WebURL,
			}
			if c.Stats != nil {
				commit.Additions = c.Stats.Additions
				commit.Deletions = c.Stats.Deletions
			}
			commit.Extensions = s.fetchCommitExtensions(ctx, projectID, c.ID)
			commits = append(commits, commit)
		}

		page++
	}

	return commits, nil
}

// fetchCommitExtensions collects the file extensions touched by one commit.
// Failures degrade to an empty list; extensions only feed the metrics
// appendix.
func (s *GitLabService) fetchCommitExtensions(ctx context.Context, projectID int, sha string) []string {
	diffURL := fmt.Sprintf("%s/api/v4/projects/%d/repository/commits/%s/diff",
		trimTrailingSlash(s.instance.URL), projectID, sha)

	var diffs []gitLabDiff
	if err := s.get(ctx, diffURL, &diffs); err != nil {
		logger.Infof("[GitLab] diff for commit %s failed: %v", sha, err)
		return nil
	}

	var exts []string
	for _, d := range diffs {
		if ext := path.Ext(d.NewPath); ext != "" {
			exts = append(exts, ext)
		}
	}
	return exts
}

// GetMergeRequests lists merge requests updated on or after updatedAfter.
func (s *GitLabService) GetMergeRequests(ctx context.Context, projectID int, updatedAfter time.Time) ([]summary.MergeRequest, error) {
	baseURL := fmt.Sprintf("%s/api/v4/projects/%d/merge_requests?updated_after=%s&per_page=100",
		trimTrailingSlash(s.instance.URL), projectID, updatedAfter.Format(time.RFC3339))

	var mrs []summary.MergeRequest
	page := 1

	for {
		var batch []gitLabMergeRequest
		if err := s.get(ctx, fmt.Sprintf("%s&page=%d", baseURL, page), &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, mr := range batch {
			mrs = append(mrs, summary.MergeRequest{
				ProjectID:      projectID,
				Author:         mr.Author.Name,
				Title:          mr.Title,
				State:          mr.State,
				CreatedAt:      mr.CreatedAt,
				UpdatedAt:      mr.UpdatedAt,
				MergedAt:       mr.MergedAt,
				UserNotesCount: mr.UserNotesCount,
				WebURL:         mr.WebURL,
			})
		}

		page++
	}

	return mrs, nil
}

// FetchProject looks up one project's metadata, used when adding watchlist
// entries.
func (s *GitLabService) FetchProject(ctx context.Context, projectID int) (name, pathWithNS string, err error) {
	var project struct {
		Name              string `json:"name"`
		PathWithNamespace string `json:"path_with_namespace"`
	}
	projectURL := fmt.Sprintf("%s/api/v4/projects/%d", trimTrailingSlash(s.instance.URL), projectID)
	if err := s.get(ctx, projectURL, &project); err != nil {
		return "", "", err
	}
	return project.Name, project.PathWithNamespace, nil
}
