package reddit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the OAuth API host
	DefaultBaseURL = "https://oauth.reddit.com"

	// DefaultAuthURL is the client-credentials token endpoint
	DefaultAuthURL = "https://www.reddit.com/api/v1/access_token"

	// DefaultPageSize is the number of items requested per listing page
	DefaultPageSize = 100

	// MaxPageSize is the largest page Reddit serves
	MaxPageSize = 100

	// KindComment and KindPost are the fullname prefixes Reddit uses
	KindComment = "t1"
	KindPost    = "t3"
)

// AboutPath returns the path of a user's profile
func AboutPath(username string) string {
	return fmt.Sprintf("/user/%s/about", url.PathEscape(username))
}

// SubmittedPath returns the path of a user's submissions listing
func SubmittedPath(username string) string {
	return fmt.Sprintf("/user/%s/submitted", url.PathEscape(username))
}

// CommentsPath returns the path of a user's comments listing
func CommentsPath(username string) string {
	return fmt.Sprintf("/user/%s/comments", url.PathEscape(username))
}

// InfoPath is the endpoint resolving fullnames to things
const InfoPath = "/api/info"

// ListingParams builds the query for a newest-first listing page
func ListingParams(after string, limit int) url.Values {
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > MaxPageSize {
		limit = MaxPageSize
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", "new")
	params.Set("raw_json", "1")
	if after != "" {
		params.Set("after", after)
	}
	return params
}

// IsValidUsername checks a username against Reddit's naming rules
func IsValidUsername(username string) bool {
	if len(username) < 3 || len(username) > 20 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-') {
			return false
		}
	}

	return true
}

// NormalizeUsername strips surrounding whitespace and a leading "u/" or "/u/"
func NormalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "/")
	if strings.HasPrefix(strings.ToLower(username), "u/") {
		username = username[2:]
	}
	return strings.TrimSpace(username)
}
