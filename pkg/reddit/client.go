package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"redditanalyzer/pkg/config"
	"redditanalyzer/pkg/errors"
	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/ratelimit"
)

// tokenSkew renews the access token this long before it expires
const tokenSkew = time.Minute

// Client is an application-only Reddit API client
type Client struct {
	httpClient   *http.Client
	baseURL      string
	authURL      string
	clientID     string
	clientSecret string
	userAgent    string
	pageSize     int
	limiter      *ratelimit.Throttle
	logger       logger.Logger

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Reddit client. A nil limiter paces requests at 60 per minute.
func NewClient(cfg *config.RedditConfig, limiter *ratelimit.Throttle, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if limiter == nil {
		limiter = ratelimit.NewThrottle(ratelimit.NewSlidingWindow(60, time.Minute))
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      baseURL,
		authURL:      authURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		userAgent:    cfg.UserAgent,
		pageSize:     cfg.PageSize,
		limiter:      limiter,
		logger:       log.WithField("component", "reddit"),
	}
}

// doRequest performs an HTTP request after waiting for the rate limiter
func (c *Client) doRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.New(errors.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	c.observeRateLimit(resp)
	return resp, nil
}

// observeRateLimit pauses the limiter when Reddit reports an exhausted quota
func (c *Client) observeRateLimit(resp *http.Response) {
	remaining := resp.Header.Get("X-Ratelimit-Remaining")
	reset := resp.Header.Get("X-Ratelimit-Reset")
	if remaining == "" || reset == "" {
		return
	}

	left, err := strconv.ParseFloat(remaining, 64)
	if err != nil || left >= 1 {
		return
	}
	seconds, err := strconv.Atoi(reset)
	if err != nil || seconds <= 0 {
		return
	}

	wait := time.Duration(seconds) * time.Second
	c.limiter.PauseUntil(time.Now().Add(wait))
	logger.LogRateLimit(c.logger, resp.Request.URL.Path, wait)
}

// accessToken returns a cached bearer token, fetching a new one when needed
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Add(tokenSkew).Before(c.tokenExpiry) {
		return c.token, nil
	}

	if c.clientID == "" || c.clientSecret == "" {
		return "", errors.New(errors.ErrorTypeAuth, 0, "reddit client credentials are not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.New(errors.ErrorTypeUnknown, 0, "failed to create token request: %v", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token TokenResponse
	if err := c.decode(ctx, req, &token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", errors.New(errors.ErrorTypeAuth, http.StatusOK, "token endpoint returned no access token")
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	c.logger.DebugWithFields("obtained access token", map[string]interface{}{
		"expires_in": token.ExpiresIn,
	})
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
}

// getJSON performs an authenticated GET and decodes the JSON response. A 401
// drops the cached token and tries once more with a fresh one.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, target interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var token string
		token, err = c.accessToken(ctx)
		if err != nil {
			return err
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if reqErr != nil {
			return errors.New(errors.ErrorTypeUnknown, 0, "failed to create request: %v", reqErr)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		err = c.decode(ctx, req, target)
		if !errors.Is(err, errors.ErrorTypeAuth) {
			return err
		}
		c.invalidateToken()
	}
	return err
}

// decode sends req and unmarshals a successful response body into target
func (c *Client) decode(ctx context.Context, req *http.Request, target interface{}) error {
	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New(errors.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          req.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.New(errors.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return nil
}

// checkResponseStatus maps an HTTP status to a typed error
func (c *Client) checkResponseStatus(resp *http.Response) error {
	errorType := errors.TypeForStatus(resp.StatusCode)
	if errorType == "" {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}

	var message string
	switch errorType {
	case errors.ErrorTypeAuth:
		message = "authentication required"
		c.logger.WarnWithFields("authentication error", fields)
	case errors.ErrorTypeForbidden:
		message = "access forbidden"
		c.logger.WarnWithFields("access forbidden", fields)
	case errors.ErrorTypeNotFound:
		message = "resource not found"
		c.logger.WarnWithFields("resource not found", fields)
	case errors.ErrorTypeRateLimit:
		message = "rate limit exceeded"
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case errors.ErrorTypeServerError:
		message = "server error"
		c.logger.ErrorWithFields("server error", fields)
	default:
		message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		c.logger.ErrorWithFields("unexpected API error", fields)
	}

	return errors.New(errorType, resp.StatusCode, "%s", message)
}

// ResolveUser fetches the profile of username
func (c *Client) ResolveUser(ctx context.Context, username string) (*Account, error) {
	c.logger.DebugWithFields("resolving user", map[string]interface{}{
		"username": username,
	})

	var thing Thing[Account]
	if err := c.getJSON(ctx, AboutPath(username), nil, &thing); err != nil {
		c.logger.ErrorWithFields("failed to resolve user", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return nil, err
	}

	if thing.Data.Name == "" {
		return nil, errors.New(errors.ErrorTypeNotFound, http.StatusOK, "user %s not found", username)
	}
	if thing.Data.IsSuspended {
		return nil, errors.New(errors.ErrorTypeForbidden, http.StatusOK, "user %s is suspended", username)
	}

	return &thing.Data, nil
}

// Submissions fetches one newest-first page of the user's posts
func (c *Client) Submissions(ctx context.Context, username, after string) (*PostPage, error) {
	var listing Listing[Post]
	if err := c.getJSON(ctx, SubmittedPath(username), ListingParams(after, c.pageSize), &listing); err != nil {
		c.logger.ErrorWithFields("failed to fetch submissions", map[string]interface{}{
			"username": username,
			"after":    after,
			"error":    err.Error(),
		})
		return nil, err
	}

	return &PostPage{Posts: children(&listing), After: listing.Data.After}, nil
}

// Comments fetches one newest-first page of the user's comments
func (c *Client) Comments(ctx context.Context, username, after string) (*CommentPage, error) {
	var listing Listing[Comment]
	if err := c.getJSON(ctx, CommentsPath(username), ListingParams(after, c.pageSize), &listing); err != nil {
		c.logger.ErrorWithFields("failed to fetch comments", map[string]interface{}{
			"username": username,
			"after":    after,
			"error":    err.Error(),
		})
		return nil, err
	}

	return &CommentPage{Comments: children(&listing), After: listing.Data.After}, nil
}

// ParentComment fetches the comment that comment replies to. It returns nil
// without error when comment replies directly to a post.
func (c *Client) ParentComment(ctx context.Context, comment Comment) (*Comment, error) {
	if comment.IsRoot() || !strings.HasPrefix(comment.ParentID, KindComment+"_") {
		return nil, nil
	}

	params := url.Values{}
	params.Set("id", comment.ParentID)
	params.Set("raw_json", "1")

	var listing Listing[Comment]
	if err := c.getJSON(ctx, InfoPath, params, &listing); err != nil {
		return nil, err
	}

	if len(listing.Data.Children) == 0 {
		return nil, errors.New(errors.ErrorTypeNotFound, http.StatusOK, "parent comment %s not found", comment.ParentID)
	}

	parent := listing.Data.Children[0].Data
	if parent.Body == "[deleted]" || parent.Body == "[removed]" {
		return nil, errors.New(errors.ErrorTypeNotFound, http.StatusOK, "parent comment %s was deleted", comment.ParentID)
	}
	return &parent, nil
}
