// Package discovery holds the outbound collaborators: the tool crawler
// and the social poster. Real network integrations are stubbed at the
// source level; every outbound call carries a bounded timeout and a
// failure is an upstream error, never a fatal one.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/toolvane/toolvane/internal/model"
)

// ErrUpstream signals a failure calling an external collaborator.
var ErrUpstream = errors.New("upstream call failed")

// DefaultTimeout bounds every outbound request.
const DefaultTimeout = 5 * time.Second

// Source fetches candidate tools from one external listing.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]*model.Tool, error)
}

// Crawler aggregates candidate tools across sources.
type Crawler struct {
	sources []Source
	logger  *slog.Logger
}

// NewCrawler creates a Crawler over the given sources.
func NewCrawler(logger *slog.Logger, sources ...Source) *Crawler {
	return &Crawler{
		sources: sources,
		logger:  logger.With("component", "crawler"),
	}
}

// Discover fetches from every source. A failing source is logged and
// skipped; Discover only errors when every source failed, so one flaky
// upstream never hides the others' results.
func (c *Crawler) Discover(ctx context.Context) ([]*model.Tool, error) {
	var discovered []*model.Tool
	failures := 0

	for _, source := range c.sources {
		tools, err := source.Fetch(ctx)
		if err != nil {
			failures++
			c.logger.Warn("source fetch failed",
				"source", source.Name(),
				"error", err,
			)
			continue
		}
		c.logger.Info("source fetched",
			"source", source.Name(),
			"tools", len(tools),
		)
		discovered = append(discovered, tools...)
	}

	if failures > 0 && failures == len(c.sources) {
		return nil, fmt.Errorf("%w: all %d sources failed", ErrUpstream, failures)
	}
	return discovered, nil
}

// NewHTTPClient returns the client used for outbound source calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// ProductHuntSource discovers tools from the Product Hunt API.
// Without a token the API rejects the query; that surfaces as a normal
// upstream error and the crawl moves on.
type ProductHuntSource struct {
	client *http.Client
	url    string
	token  string
}

// NewProductHuntSource creates the Product Hunt source.
func NewProductHuntSource(client *http.Client, token string) *ProductHuntSource {
	return &ProductHuntSource{
		client: client,
		url:    "https://api.producthunt.com/v2/api/graphql",
		token:  token,
	}
}

func (s *ProductHuntSource) Name() string { return "producthunt" }

// Fetch queries the AI tools topic and maps posts to pending tools.
func (s *ProductHuntSource) Fetch(ctx context.Context) ([]*model.Tool, error) {
	query := map[string]string{
		"query": `query { posts(first: 20, topic: "artificial-intelligence") {
			edges { node { id name tagline url } } } }`,
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: producthunt returned HTTP %d", ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Data struct {
			Posts struct {
				Edges []struct {
					Node struct {
						ID      string `json:"id"`
						Name    string `json:"name"`
						Tagline string `json:"tagline"`
						URL     string `json:"url"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"posts"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode producthunt response: %v", ErrUpstream, err)
	}

	tools := make([]*model.Tool, 0, len(payload.Data.Posts.Edges))
	for _, edge := range payload.Data.Posts.Edges {
		node := edge.Node
		if node.Name == "" || node.URL == "" {
			continue
		}
		tools = append(tools, &model.Tool{
			ID:          "ph_" + node.ID,
			Name:        node.Name,
			Description: node.Tagline,
			Category:    "discovered",
			Type:        "freemium",
			URL:         node.URL,
			Tags:        []string{"ai", "new"},
			Status:      model.ToolStatusPending, // needs manual review
			Source:      s.Name(),
		})
	}
	return tools, nil
}

// GitHubSource discovers trending AI repositories as tool candidates.
type GitHubSource struct {
	client *http.Client
	url    string
	token  string
}

// NewGitHubSource creates the GitHub source.
func NewGitHubSource(client *http.Client, token string) *GitHubSource {
	return &GitHubSource{
		client: client,
		url:    "https://api.github.com/search/repositories",
		token:  token,
	}
}

func (s *GitHubSource) Name() string { return "github" }

// Fetch searches for starred AI repositories.
func (s *GitHubSource) Fetch(ctx context.Context) ([]*model.Tool, error) {
	url := s.url + "?q=ai+tools&sort=stars&order=desc&per_page=10"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "token "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: github returned HTTP %d", ErrUpstream, resp.StatusCode)
	}

	var payload struct {
		Items []struct {
			FullName    string `json:"full_name"`
			Description string `json:"description"`
			HTMLURL     string `json:"html_url"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode github response: %v", ErrUpstream, err)
	}

	tools := make([]*model.Tool, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.FullName == "" || item.HTMLURL == "" {
			continue
		}
		tools = append(tools, &model.Tool{
			ID:          "gh_" + sanitizeID(item.FullName),
			Name:        item.FullName,
			Description: item.Description,
			Category:    "discovered",
			Type:        "free",
			URL:         item.HTMLURL,
			Tags:        []string{"ai", "open-source"},
			Status:      model.ToolStatusPending,
			Source:      s.Name(),
		})
	}
	return tools, nil
}

// sanitizeID makes a repo full name safe as a file-backed record id.
func sanitizeID(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
