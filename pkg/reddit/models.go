package reddit

import "strings"

// Thing is Reddit's envelope for a single typed object
type Thing[T any] struct {
	Kind string `json:"kind"`
	Data T      `json:"data"`
}

// Listing is a paginated collection of things
type Listing[T any] struct {
	Kind string `json:"kind"`
	Data struct {
		After    string     `json:"after"`
		Children []Thing[T] `json:"children"`
	} `json:"data"`
}

// Account is the public profile of a redditor
type Account struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CreatedUTC   float64 `json:"created_utc"`
	LinkKarma    int     `json:"link_karma"`
	CommentKarma int     `json:"comment_karma"`
	IsSuspended  bool    `json:"is_suspended"`
}

// Post is a submission authored by the user
type Post struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Subreddit  string  `json:"subreddit"`
	URL        string  `json:"url"`
	Selftext   string  `json:"selftext"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

// Comment is a comment authored by the user
type Comment struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Body       string  `json:"body"`
	Subreddit  string  `json:"subreddit"`
	LinkID     string  `json:"link_id"`
	LinkTitle  string  `json:"link_title"`
	ParentID   string  `json:"parent_id"`
	CreatedUTC float64 `json:"created_utc"`
}

// IsRoot reports whether the comment replies directly to a post
func (c Comment) IsRoot() bool {
	return c.ParentID == "" || strings.HasPrefix(c.ParentID, KindPost+"_")
}

// PostPage is one page of a user's submissions
type PostPage struct {
	Posts []Post
	After string
}

// CommentPage is one page of a user's comments
type CommentPage struct {
	Comments []Comment
	After    string
}

// TokenResponse is the OAuth token endpoint payload
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

func children[T any](l *Listing[T]) []T {
	items := make([]T, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		items = append(items, child.Data)
	}
	return items
}
