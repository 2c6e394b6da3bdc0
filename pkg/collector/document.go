package collector

import (
	"fmt"
	"strings"

	"redditanalyzer/pkg/reddit"
)

const commentsHeading = "\n## Comments\n\n"

func renderHeader(username string) string {
	return fmt.Sprintf("# Reddit User: %s\n\n## Posts\n\n", username)
}

func renderPost(post reddit.Post) string {
	content := post.Selftext
	if content == "" {
		content = "No Content"
	}
	return fmt.Sprintf("### Title: %s\n**Subreddit:** %s\n**URL:** %s\n**Content:** %s\n\n",
		post.Title, post.Subreddit, post.URL, content)
}

func renderComment(comment reddit.Comment, parent *reddit.Comment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Comment:\n%s\n**Subreddit:** %s\n**Post:** %s\n",
		comment.Body, comment.Subreddit, comment.LinkTitle)
	if parent != nil {
		fmt.Fprintf(&b, "**Parent Comment:** %s\n", parent.Body)
	}
	b.WriteString("\n")
	return b.String()
}
