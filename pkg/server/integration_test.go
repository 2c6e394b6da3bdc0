package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditanalyzer/internal/worker"
	"redditanalyzer/pkg/analysis"
	"redditanalyzer/pkg/collector"
	"redditanalyzer/pkg/config"
	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/pipeline"
	"redditanalyzer/pkg/ratelimit"
	"redditanalyzer/pkg/reddit"
	"redditanalyzer/pkg/report"
	"redditanalyzer/pkg/retry"
	"redditanalyzer/pkg/server"
	"redditanalyzer/pkg/storage"
	"redditanalyzer/pkg/tasks"
)

// mockReddit serves one user with a post and a reply to another comment
func mockReddit(t *testing.T) *httptest.Server {
	write := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		write(w, reddit.TokenResponse{AccessToken: "token", ExpiresIn: 3600})
	})
	mux.HandleFunc("/user/alice/about", func(w http.ResponseWriter, r *http.Request) {
		write(w, reddit.Thing[reddit.Account]{Kind: "t2", Data: reddit.Account{Name: "alice"}})
	})
	mux.HandleFunc("/user/alice/submitted", func(w http.ResponseWriter, r *http.Request) {
		var listing reddit.Listing[reddit.Post]
		listing.Data.Children = []reddit.Thing[reddit.Post]{
			{Kind: "t3", Data: reddit.Post{Name: "t3_p1", Title: "My first post", Subreddit: "golang", Selftext: "hello"}},
		}
		write(w, listing)
	})
	mux.HandleFunc("/user/alice/comments", func(w http.ResponseWriter, r *http.Request) {
		var listing reddit.Listing[reddit.Comment]
		listing.Data.Children = []reddit.Thing[reddit.Comment]{
			{Kind: "t1", Data: reddit.Comment{Name: "t1_c1", Body: "I agree", LinkTitle: "Thread", ParentID: "t1_parent"}},
		}
		write(w, listing)
	})
	mux.HandleFunc(reddit.InfoPath, func(w http.ResponseWriter, r *http.Request) {
		var listing reddit.Listing[reddit.Comment]
		listing.Data.Children = []reddit.Thing[reddit.Comment]{
			{Kind: "t1", Data: reddit.Comment{Name: "t1_parent", Body: "Go is great"}},
		}
		write(w, listing)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// echoService is ready immediately and answers with a fixed report
type echoService struct {
	mu       sync.Mutex
	uploaded string
}

func (e *echoService) Upload(ctx context.Context, path, mimeType string) (*analysis.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.uploaded = string(data)
	e.mu.Unlock()
	return &analysis.Artifact{Name: "files/alice", URI: "mem://alice", MIMEType: mimeType}, nil
}

func (e *echoService) State(ctx context.Context, artifact *analysis.Artifact) (analysis.ArtifactState, error) {
	return analysis.StateActive, nil
}

func (e *echoService) Converse(ctx context.Context, history []analysis.Turn, message string) (string, error) {
	return "# Profile of alice\n\nCurious and agreeable.\n", nil
}

func (e *echoService) Delete(ctx context.Context, artifact *analysis.Artifact) error {
	return nil
}

func (e *echoService) document() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uploaded
}

func TestSubmitPollDownload(t *testing.T) {
	log := logger.NewNopLogger()
	redditAPI := mockReddit(t)

	files, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)

	client := reddit.NewClient(&config.RedditConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		UserAgent:    "test-agent/1.0",
		BaseURL:      redditAPI.URL,
		AuthURL:      redditAPI.URL + "/api/v1/access_token",
		PageSize:     100,
		Timeout:      5 * time.Second,
	}, ratelimit.NewThrottle(ratelimit.NewSlidingWindow(1000, time.Minute)), log)

	service := &echoService{}
	gen := report.New(service, files, report.Options{PollInterval: time.Millisecond, MaxPolls: 3}, log)
	store := tasks.NewStore(log)
	pool := worker.NewPool(2, log)
	orchestrator := pipeline.New(store, collector.New(client, retry.RemoteConfig(1, 1, log), log), gen, pool, log)

	sessions, err := server.NewSessions("integration-secret")
	require.NoError(t, err)
	token, err := sessions.Issue("tester", time.Hour)
	require.NoError(t, err)

	srv := server.New(config.ServerConfig{Mode: "test"}, server.Options{
		Store:    store,
		Pipeline: orchestrator,
		Files:    files,
		Sessions: sessions,
	}, log)
	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)

	do := func(method, path, body string) *http.Response {
		req, err := http.NewRequest(method, api.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := do(http.MethodPost, "/api/tasks", `{"reddit_username":"alice"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var submitted struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&submitted))
	resp.Body.Close()
	require.NotEmpty(t, submitted.TaskID)

	var status struct {
		Status          string `json:"status"`
		Progress        string `json:"progress"`
		TotalPosts      int    `json:"total_posts"`
		ScrapedComments int    `json:"scraped_comments"`
	}
	require.Eventually(t, func() bool {
		resp := do(http.MethodGet, "/api/tasks/"+submitted.TaskID+"/status", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			return false
		}
		return status.Status == "Completed" || status.Status == "Failed"
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, "Completed", status.Status, status.Progress)
	assert.Equal(t, 1, status.TotalPosts)
	assert.Equal(t, 1, status.ScrapedComments)

	doc := service.document()
	assert.Contains(t, doc, "# Reddit User: alice")
	assert.Contains(t, doc, "My first post")
	assert.Contains(t, doc, "Go is great")

	resp = do(http.MethodGet, "/api/tasks/"+submitted.TaskID+"/download", "")
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "# Profile of alice")

	resp = do(http.MethodGet, "/api/tasks/"+submitted.TaskID+"/download", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	abandoned, err := orchestrator.Shutdown(ctx)
	require.NoError(t, err)
	assert.Zero(t, abandoned)
}
