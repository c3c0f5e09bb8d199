// Package github wraps the handful of repository-automation calls the bot
// exposes. These are pure passthroughs with no decision logic: failures are
// logged and surface as nil or empty results.
package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v68/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Client struct {
	gh     *gh.Client
	logger *zap.Logger
}

func NewClient(token string, logger *zap.Logger) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		gh:     gh.NewClient(oauth2.NewClient(context.Background(), ts)),
		logger: logger,
	}
}

// PullRequest is the subset of PR fields the bot reports.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	User   string `json:"user"`
}

// CreatePullRequest opens a PR from branch onto base. The branch must
// already be pushed to the remote.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, branch, title, body, base string) *PullRequest {
	if base == "" {
		base = "main"
	}
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
		Title: gh.String(title),
		Head:  gh.String(branch),
		Base:  gh.String(base),
		Body:  gh.String(body),
	})
	if err != nil {
		c.logger.Error("Error creating PR",
			zap.Error(err),
			zap.String("repo", owner+"/"+repo),
			zap.String("branch", branch))
		return nil
	}
	c.logger.Info("Created PR", zap.String("url", pr.GetHTMLURL()))
	return convertPR(pr)
}

// ListRepositories returns the full names of the repositories owned by an
// organization or user.
func (c *Client) ListRepositories(ctx context.Context, orgOrUser string) []string {
	repos, _, err := c.gh.Repositories.ListByUser(ctx, orgOrUser, nil)
	if err != nil {
		c.logger.Error("Error listing repos",
			zap.Error(err),
			zap.String("owner", orgOrUser))
		return nil
	}
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.GetFullName())
	}
	return names
}

// ListPullRequests lists PRs in the given state ("open" by default).
func (c *Client) ListPullRequests(ctx context.Context, owner, repo, state string) []PullRequest {
	if state == "" {
		state = "open"
	}
	prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{State: state})
	if err != nil {
		c.logger.Error("Error listing PRs",
			zap.Error(err),
			zap.String("repo", owner+"/"+repo))
		return nil
	}
	out := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, *convertPR(pr))
	}
	return out
}

// GetPullRequest fetches one PR by number, or nil on any failure.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) *PullRequest {
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		c.logger.Error(fmt.Sprintf("Error fetching PR %d", number),
			zap.Error(err),
			zap.String("repo", owner+"/"+repo))
		return nil
	}
	return convertPR(pr)
}

func convertPR(pr *gh.PullRequest) *PullRequest {
	return &PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
		User:   pr.GetUser().GetLogin(),
	}
}
