package collector

import (
	"context"
	"fmt"
	"strings"

	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/reddit"
	"redditanalyzer/pkg/retry"
)

// Source is the remote content the collector reads
type Source interface {
	ResolveUser(ctx context.Context, username string) (*reddit.Account, error)
	Submissions(ctx context.Context, username, after string) (*reddit.PostPage, error)
	Comments(ctx context.Context, username, after string) (*reddit.CommentPage, error)
	ParentComment(ctx context.Context, comment reddit.Comment) (*reddit.Comment, error)
}

// Progress receives collection progress. *tasks.Task implements it.
type Progress interface {
	SetProgress(msg string) error
	SetTotals(posts, comments int) error
	PostScraped() error
	CommentScraped() error
	MarkProcessing(msg string) error
}

const (
	feedPosts    = "posts"
	feedComments = "comments"
)

// Collector builds the markdown document describing one user's activity
type Collector struct {
	source Source
	retry  *retry.Config
	logger logger.Logger
}

// New creates a collector. A nil retry config uses retry.RemoteConfig defaults.
func New(source Source, retryCfg *retry.Config, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "collector")
	if retryCfg == nil {
		retryCfg = retry.RemoteConfig(0, 0, log)
	}
	return &Collector{source: source, retry: retryCfg, logger: log}
}

// Collect resolves username, lists both feeds and renders the document. The
// document is returned only once it is complete.
func (c *Collector) Collect(ctx context.Context, username string, progress Progress) (string, error) {
	log := c.logger.WithField("username", username)
	policy := c.retry.WithContext(ctx)

	c.report(progress.SetProgress("Fetching user information..."))
	if !reddit.IsValidUsername(username) {
		c.report(progress.SetProgress("Failed to fetch user data."))
		return "", &ResolutionError{Username: username, Err: ErrInvalidUsername}
	}
	_, err := retry.DoWithResult(func() (*reddit.Account, error) {
		return c.source.ResolveUser(ctx, username)
	}, policy)
	if err != nil {
		c.report(progress.SetProgress("Failed to fetch user data."))
		return "", &ResolutionError{Username: username, Err: err}
	}

	c.report(progress.SetProgress("Counting total posts and comments..."))
	posts, err := c.listPosts(ctx, username, policy)
	if err != nil {
		return "", &EnumerationError{Username: username, Feed: feedPosts, Err: err}
	}
	comments, err := c.listComments(ctx, username, policy)
	if err != nil {
		return "", &EnumerationError{Username: username, Feed: feedComments, Err: err}
	}

	c.report(progress.SetTotals(len(posts), len(comments)))
	c.report(progress.SetProgress(fmt.Sprintf("Total Posts: %d, Total Comments: %d", len(posts), len(comments))))

	var doc strings.Builder
	doc.WriteString(renderHeader(username))

	c.report(progress.SetProgress("Scraping posts..."))
	for i, post := range posts {
		doc.WriteString(renderPost(post))
		c.report(progress.PostScraped())
		c.report(progress.SetProgress(fmt.Sprintf("Scraping posts... (%d/%d)", i+1, len(posts))))
		logger.LogCollectProgress(log, username, feedPosts, i+1, len(posts))
	}

	doc.WriteString(commentsHeading)

	c.report(progress.SetProgress("Scraping comments..."))
	scraped, skipped := 0, 0
	for _, comment := range comments {
		parent, err := retry.DoWithResult(func() (*reddit.Comment, error) {
			return c.source.ParentComment(ctx, comment)
		}, policy)
		if err != nil {
			skipped++
			log.WithError(err).WarnWithFields("skipping comment", map[string]interface{}{
				"comment": comment.Name,
				"parent":  comment.ParentID,
			})
			continue
		}

		doc.WriteString(renderComment(comment, parent))
		scraped++
		c.report(progress.CommentScraped())
		c.report(progress.SetProgress(fmt.Sprintf("Scraping comments... (%d/%d)", scraped, len(comments))))
		logger.LogCollectProgress(log, username, feedComments, scraped, len(comments))
	}

	c.report(progress.MarkProcessing("Scraping completed. Processing data..."))

	log.InfoWithFields("collection finished", map[string]interface{}{
		"posts":            len(posts),
		"comments":         scraped,
		"skipped_comments": skipped,
	})
	return doc.String(), nil
}

// listPosts walks every page of the user's submissions
func (c *Collector) listPosts(ctx context.Context, username string, policy *retry.Config) ([]reddit.Post, error) {
	var posts []reddit.Post
	after := ""
	seen := make(map[string]bool)
	for {
		page, err := retry.DoWithResult(func() (*reddit.PostPage, error) {
			return c.source.Submissions(ctx, username, after)
		}, policy)
		if err != nil {
			return nil, err
		}
		posts = append(posts, page.Posts...)

		if page.After == "" || seen[page.After] {
			return posts, nil
		}
		seen[page.After] = true
		after = page.After
	}
}

// listComments walks every page of the user's comments
func (c *Collector) listComments(ctx context.Context, username string, policy *retry.Config) ([]reddit.Comment, error) {
	var comments []reddit.Comment
	after := ""
	seen := make(map[string]bool)
	for {
		page, err := retry.DoWithResult(func() (*reddit.CommentPage, error) {
			return c.source.Comments(ctx, username, after)
		}, policy)
		if err != nil {
			return nil, err
		}
		comments = append(comments, page.Comments...)

		if page.After == "" || seen[page.After] {
			return comments, nil
		}
		seen[page.After] = true
		after = page.After
	}
}

// report logs progress updates the task refused
func (c *Collector) report(err error) {
	if err != nil {
		c.logger.WithError(err).Debug("progress update rejected")
	}
}
