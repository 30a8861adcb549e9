package discovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/toolvane/toolvane/internal/model"
)

type fakeSource struct {
	name  string
	tools []*model.Tool
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) ([]*model.Tool, error) {
	return f.tools, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDiscover_MergesSources(t *testing.T) {
	crawler := NewCrawler(testLogger(),
		&fakeSource{name: "a", tools: []*model.Tool{{ID: "t1"}, {ID: "t2"}}},
		&fakeSource{name: "b", tools: []*model.Tool{{ID: "t3"}}},
	)

	tools, err := crawler.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(tools) != 3 {
		t.Errorf("expected 3 tools, got %d", len(tools))
	}
}

func TestDiscover_PartialFailureKeepsResults(t *testing.T) {
	crawler := NewCrawler(testLogger(),
		&fakeSource{name: "broken", err: errors.New("rate limited")},
		&fakeSource{name: "working", tools: []*model.Tool{{ID: "t1"}}},
	)

	tools, err := crawler.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if len(tools) != 1 || tools[0].ID != "t1" {
		t.Errorf("expected the working source's tool, got %+v", tools)
	}
}

func TestDiscover_AllSourcesFailed(t *testing.T) {
	crawler := NewCrawler(testLogger(),
		&fakeSource{name: "a", err: errors.New("down")},
		&fakeSource{name: "b", err: errors.New("also down")},
	)

	_, err := crawler.Discover(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestProductHuntSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("auth header = %q", auth)
		}
		w.Write([]byte(`{"data":{"posts":{"edges":[
			{"node":{"id":"1","name":"Writer","tagline":"writes","url":"http://w"}},
			{"node":{"id":"2","name":"","tagline":"no name","url":"http://x"}}
		]}}}`))
	}))
	defer srv.Close()

	source := NewProductHuntSource(srv.Client(), "tok")
	source.url = srv.URL

	tools, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool (nameless skipped), got %d", len(tools))
	}
	tool := tools[0]
	if tool.ID != "ph_1" || tool.Source != "producthunt" {
		t.Errorf("tool = %+v", tool)
	}
	if tool.Status != model.ToolStatusPending {
		t.Errorf("status = %s, want pending", tool.Status)
	}
}

func TestProductHuntSource_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	source := NewProductHuntSource(srv.Client(), "")
	source.url = srv.URL

	_, err := source.Fetch(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestGitHubSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"full_name":"acme/tool","description":"a tool","html_url":"http://gh/acme"},
			{"full_name":"","description":"broken","html_url":"http://gh/x"}
		]}`))
	}))
	defer srv.Close()

	source := NewGitHubSource(srv.Client(), "")
	source.url = srv.URL

	tools, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].ID != "gh_acme_tool" {
		t.Errorf("id = %s, want gh_acme_tool", tools[0].ID)
	}
}

func TestSanitizeID(t *testing.T) {
	if got := sanitizeID("acme/tool.v2"); got != "acme_tool_v2" {
		t.Errorf("sanitizeID() = %s", got)
	}
}

func TestBuildPost(t *testing.T) {
	tool := &model.Tool{
		Name:        "Writer",
		Description: "Writes things.",
		Pricing:     "$10/mo",
		URL:         "http://w",
		Features:    []string{"fast", "accurate", "cheap"},
	}

	first := BuildPost(tool, 0)
	if !strings.Contains(first, "Writer") || !strings.Contains(first, "$10/mo") {
		t.Errorf("variant 0 missing fields: %q", first)
	}

	second := BuildPost(tool, 1)
	// Only the first two features make it into the copy.
	if !strings.Contains(second, "fast, accurate") || strings.Contains(second, "cheap") {
		t.Errorf("variant 1 features wrong: %q", second)
	}

	// Out-of-range variants fall back to the first template.
	if BuildPost(tool, -1) != first || BuildPost(tool, 99) != first {
		t.Error("out-of-range variant should fall back to variant 0")
	}
}
