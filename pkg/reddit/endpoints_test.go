package reddit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "/user/alice/about", AboutPath("alice"))
	assert.Equal(t, "/user/alice/submitted", SubmittedPath("alice"))
	assert.Equal(t, "/user/alice/comments", CommentsPath("alice"))
	assert.Equal(t, "/user/a%2Fb/about", AboutPath("a/b"))
}

func TestListingParams(t *testing.T) {
	params := ListingParams("", 0)
	assert.Equal(t, "100", params.Get("limit"))
	assert.Equal(t, "new", params.Get("sort"))
	assert.False(t, params.Has("after"))

	params = ListingParams("t3_x", 500)
	assert.Equal(t, "100", params.Get("limit"))
	assert.Equal(t, "t3_x", params.Get("after"))
}

func TestIsValidUsername(t *testing.T) {
	assert.True(t, IsValidUsername("alice"))
	assert.True(t, IsValidUsername("Some_User-42"))
	assert.False(t, IsValidUsername("ab"))
	assert.False(t, IsValidUsername("this_name_is_far_too_long"))
	assert.False(t, IsValidUsername("bad.name"))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  alice "))
	assert.Equal(t, "alice", NormalizeUsername("u/alice"))
	assert.Equal(t, "alice", NormalizeUsername("/u/alice"))
	assert.Equal(t, "", NormalizeUsername("   "))
}

func TestCommentIsRoot(t *testing.T) {
	assert.True(t, Comment{ParentID: "t3_abc"}.IsRoot())
	assert.False(t, Comment{ParentID: "t1_abc"}.IsRoot())
}
