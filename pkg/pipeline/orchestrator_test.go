package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditanalyzer/internal/worker"
	"redditanalyzer/pkg/analysis"
	"redditanalyzer/pkg/collector"
	"redditanalyzer/pkg/errors"
	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/reddit"
	"redditanalyzer/pkg/report"
	"redditanalyzer/pkg/retry"
	"redditanalyzer/pkg/storage"
	"redditanalyzer/pkg/tasks"
)

// stubSource serves a fixed set of posts and comments
type stubSource struct {
	resolveErr error
	posts      []reddit.Post
	comments   []reddit.Comment
}

func (s *stubSource) ResolveUser(ctx context.Context, username string) (*reddit.Account, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return &reddit.Account{Name: username}, nil
}

func (s *stubSource) Submissions(ctx context.Context, username, after string) (*reddit.PostPage, error) {
	return &reddit.PostPage{Posts: s.posts}, nil
}

func (s *stubSource) Comments(ctx context.Context, username, after string) (*reddit.CommentPage, error) {
	return &reddit.CommentPage{Comments: s.comments}, nil
}

func (s *stubSource) ParentComment(ctx context.Context, c reddit.Comment) (*reddit.Comment, error) {
	if c.IsRoot() {
		return nil, nil
	}
	return &reddit.Comment{Body: "parent of " + c.Name}, nil
}

// stubService is an analysis backend that is either ready at once or never
type stubService struct {
	mu        sync.Mutex
	reply     string
	neverDone bool
	uploaded  []string
}

func (s *stubService) Upload(ctx context.Context, path, mimeType string) (*analysis.Artifact, error) {
	s.mu.Lock()
	s.uploaded = append(s.uploaded, path)
	s.mu.Unlock()
	return &analysis.Artifact{Name: "files/1", URI: "uri", MIMEType: mimeType}, nil
}

func (s *stubService) State(ctx context.Context, a *analysis.Artifact) (analysis.ArtifactState, error) {
	if s.neverDone {
		return analysis.StateProcessing, nil
	}
	return analysis.StateActive, nil
}

func (s *stubService) Converse(ctx context.Context, history []analysis.Turn, message string) (string, error) {
	return s.reply, nil
}

func (s *stubService) Delete(ctx context.Context, a *analysis.Artifact) error { return nil }

// recordingGenerator notes whether it was ever called
type recordingGenerator struct {
	mu    sync.Mutex
	calls int
	path  string
	err   error
}

func (g *recordingGenerator) Generate(ctx context.Context, username, document string, progress report.Progress) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.path, g.err
}

type panickingCollector struct{}

func (panickingCollector) Collect(ctx context.Context, username string, progress collector.Progress) (string, error) {
	panic("nil map write")
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func fastCollector(source collector.Source) *collector.Collector {
	policy := retry.RemoteConfig(5, 2, logger.NewNopLogger())
	policy.Sleep = noSleep
	return collector.New(source, policy, logger.NewNopLogger())
}

type harness struct {
	store   *tasks.Store
	scratch *storage.Manager
	orch    *Orchestrator
	log     *logger.TestLogger
}

func newHarness(t *testing.T, c Collector, g Generator) *harness {
	scratch, err := storage.NewManager(t.TempDir())
	require.NoError(t, err)

	tl := logger.NewTestLogger()
	store := tasks.NewStore(tl)
	pool := worker.NewPool(0, logger.NewNopLogger())
	return &harness{
		store:   store,
		scratch: scratch,
		orch:    New(store, c, g, pool, tl),
		log:     tl,
	}
}

func (h *harness) wait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	abandoned, err := h.orch.Shutdown(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, abandoned)
}

func TestAliceScenario(t *testing.T) {
	source := &stubSource{
		posts: []reddit.Post{
			{Name: "t3_3", Title: "Third"},
			{Name: "t3_2", Title: "Second"},
			{Name: "t3_1", Title: "First"},
		},
		comments: []reddit.Comment{
			{Name: "t1_1", Body: "root", ParentID: "t3_1"},
			{Name: "t1_2", Body: "reply", ParentID: "t1_x"},
		},
	}
	service := &stubService{reply: "mocked analysis of alice"}

	h := newHarness(t, fastCollector(source), nil)
	h.orch.generator = report.New(service, h.scratch, report.Options{Sleep: noSleep}, logger.NewNopLogger())

	id, err := h.orch.Submit("alice")
	require.NoError(t, err)
	h.wait(t)

	snap, err := h.store.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, tasks.Completed, snap.Status)
	assert.Equal(t, MsgDone, snap.Progress)
	assert.Equal(t, tasks.Counts{TotalPosts: 3, ScrapedPosts: 3, TotalComments: 2, ScrapedComments: 2}, snap.Counts)

	require.NotEmpty(t, snap.ReportPath)
	content, err := os.ReadFile(snap.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, "mocked analysis of alice", string(content))

	require.Len(t, service.uploaded, 1)
	assert.NoFileExists(t, service.uploaded[0])
}

func TestResolutionFailureScenario(t *testing.T) {
	source := &stubSource{resolveErr: errors.New(errors.ErrorTypeNotFound, 404, "no such user")}
	gen := &recordingGenerator{}

	h := newHarness(t, fastCollector(source), gen)
	id, err := h.orch.Submit("ghost")
	require.NoError(t, err)
	h.wait(t)

	snap, err := h.store.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, tasks.Failed, snap.Status)
	assert.Equal(t, MsgResolution, snap.Progress)
	assert.Empty(t, snap.ReportPath)
	assert.Equal(t, 0, gen.calls, "no document reaches the generator")

	var transitions []string
	for _, msg := range h.log.GetMessages() {
		if msg.Message == "Task status changed" {
			transitions = append(transitions, fmt.Sprintf("%v->%v", msg.Fields["from"], msg.Fields["to"]))
		}
	}
	assert.Equal(t, []string{"Pending->In Progress", "In Progress->Failed"}, transitions)
}

func TestBoundedPollScenario(t *testing.T) {
	source := &stubSource{posts: []reddit.Post{{Title: "only"}}}
	service := &stubService{neverDone: true}

	h := newHarness(t, fastCollector(source), nil)
	h.orch.generator = report.New(service, h.scratch, report.Options{MaxPolls: 4, Sleep: noSleep}, logger.NewNopLogger())

	id, err := h.orch.Submit("alice")
	require.NoError(t, err)
	h.wait(t)

	snap, err := h.store.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, tasks.Failed, snap.Status)
	assert.Equal(t, report.MsgProcessingFailed, snap.Progress)
	assert.Empty(t, snap.ReportPath)

	require.Len(t, service.uploaded, 1)
	assert.NoFileExists(t, service.uploaded[0], "temporary input removed")

	matches, err := filepath.Glob(filepath.Join(h.scratch.GetScratchDir(), "response_output_*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no output file is created")
}

func TestGeneratorFailureUsesItsMessage(t *testing.T) {
	gen := &recordingGenerator{err: fmt.Errorf("%w: boom", report.ErrUpload)}

	h := newHarness(t, fastCollector(&stubSource{}), gen)
	id, err := h.orch.Submit("alice")
	require.NoError(t, err)
	h.wait(t)

	snap, _ := h.store.Lookup(id)
	assert.Equal(t, tasks.Failed, snap.Status)
	assert.Equal(t, report.MsgUploadFailed, snap.Progress)
}

func TestMissingReportFileFailsTask(t *testing.T) {
	gen := &recordingGenerator{path: filepath.Join(t.TempDir(), "vanished.md")}

	h := newHarness(t, fastCollector(&stubSource{}), gen)
	id, err := h.orch.Submit("alice")
	require.NoError(t, err)
	h.wait(t)

	snap, _ := h.store.Lookup(id)
	assert.Equal(t, tasks.Failed, snap.Status)
	assert.Equal(t, report.MsgGenericFailure, snap.Progress)
	assert.Empty(t, snap.ReportPath)
}

func TestPanicBecomesFailedTask(t *testing.T) {
	h := newHarness(t, panickingCollector{}, &recordingGenerator{})

	id, err := h.orch.Submit("alice")
	require.NoError(t, err)
	h.wait(t)

	snap, _ := h.store.Lookup(id)
	assert.Equal(t, tasks.Failed, snap.Status)
	assert.Equal(t, MsgUnexpected, snap.Progress)
	assert.True(t, h.log.HasMessage("task crashed"))
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t, fastCollector(&stubSource{}), &recordingGenerator{})

	_, err := h.orch.Submit("   ")
	assert.ErrorIs(t, err, ErrEmptyUsername)
	assert.Equal(t, 0, h.store.Len())
}

func TestSubmitReturnsDistinctRunningTasks(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, blockingCollector{release: release}, &recordingGenerator{})

	first, err := h.orch.Submit("alice")
	require.NoError(t, err)
	second, err := h.orch.Submit("alice")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, id := range []string{first, second} {
		snap, err := h.store.Lookup(id)
		require.NoError(t, err)
		assert.False(t, snap.Status.Terminal(), "first observed status is non-terminal")
	}

	close(release)
	h.wait(t)
}

type blockingCollector struct {
	release chan struct{}
}

func (b blockingCollector) Collect(ctx context.Context, username string, progress collector.Progress) (string, error) {
	<-b.release
	return "", fmt.Errorf("stopped")
}

// waitingCollector holds the task until the pool is cancelled
type waitingCollector struct{}

func (waitingCollector) Collect(ctx context.Context, username string, progress collector.Progress) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestShutdownFailsQueuedTask(t *testing.T) {
	tl := logger.NewTestLogger()
	store := tasks.NewStore(tl)
	orch := New(store, waitingCollector{}, &recordingGenerator{}, worker.NewPool(1, tl), tl)

	running, err := orch.Submit("alice")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, err := store.Lookup(running)
		return err == nil && snap.Progress == MsgScraping
	}, time.Second, 5*time.Millisecond)

	queued, err := orch.Submit("bob")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	abandoned, err := orch.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, abandoned)

	require.Eventually(t, func() bool {
		snap, err := store.Lookup(queued)
		return err == nil && snap.Status == tasks.Failed
	}, time.Second, 5*time.Millisecond)

	snap, _ := store.Lookup(queued)
	assert.Equal(t, MsgShutdown, snap.Progress)
	assert.True(t, tl.HasMessage("task dropped at shutdown"))
}

func TestSubmitAfterShutdown(t *testing.T) {
	h := newHarness(t, fastCollector(&stubSource{}), &recordingGenerator{})
	h.wait(t)

	_, err := h.orch.Submit("alice")
	assert.ErrorIs(t, err, worker.ErrPoolClosed)
}
