package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"redditanalyzer/pkg/config"
)

func testProfile(name string) *Profile {
	return &Profile{
		Name:               name,
		RedditClientID:     "client-" + name,
		RedditClientSecret: "reddit-secret-value",
		RedditUserAgent:    "redditanalyzer-test/1.0",
		GeminiAPIKey:       "gemini-key-value",
	}
}

func TestManagerRoundTrip(t *testing.T) {
	manager, store := NewMockManager()

	require.NoError(t, manager.Store(testProfile("work")))
	assert.False(t, store.profiles["work"].LastModified.IsZero())

	got, err := manager.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "client-work", got.RedditClientID)
	assert.Equal(t, "gemini-key-value", got.GeminiAPIKey)

	require.NoError(t, manager.Store(testProfile("alpha")))
	profiles, err := manager.List()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alpha", profiles[0].Name)

	require.NoError(t, manager.Delete("work"))
	_, err = manager.Retrieve("work")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Equal(t, 1, store.Count())

	assert.ErrorIs(t, manager.Delete("work"), ErrCredentialsNotFound)
}

func TestManagerRejectsIncompleteProfiles(t *testing.T) {
	manager, store := NewMockManager()

	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"no name", func(p *Profile) { p.Name = "" }},
		{"no client id", func(p *Profile) { p.RedditClientID = "" }},
		{"no client secret", func(p *Profile) { p.RedditClientSecret = "" }},
		{"no gemini key", func(p *Profile) { p.GeminiAPIKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile("x")
			tt.mutate(p)
			assert.ErrorIs(t, manager.Store(p), ErrInvalidCredentials)
		})
	}
	assert.Equal(t, 0, store.Count())
}

func TestManagerFallsBackAcrossStores(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	broken.RetrieveError = errors.New("keychain locked")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	require.NoError(t, manager.Store(testProfile("default")))
	assert.Equal(t, 1, working.Count())

	got, err := manager.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "default", got.Name)
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()

	stale := testProfile("shared")
	stale.GeminiAPIKey = "old-key"
	stale.LastModified = time.Now().Add(-time.Hour)
	require.NoError(t, older.Store(stale))

	fresh := testProfile("shared")
	fresh.GeminiAPIKey = "new-key"
	fresh.LastModified = time.Now()
	require.NoError(t, newer.Store(fresh))

	profiles, err := NewManagerWithStores(older, newer).List()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "new-key", profiles[0].GeminiAPIKey)
}

func TestManagerResolve(t *testing.T) {
	manager, _ := NewMockManager()
	require.NoError(t, manager.Store(testProfile(DefaultProfile)))

	cfg := config.DefaultConfig()
	cfg.Gemini.APIKey = "from-env"
	require.NoError(t, manager.Resolve(cfg, ""))

	assert.Equal(t, "client-default", cfg.Reddit.ClientID)
	assert.Equal(t, "reddit-secret-value", cfg.Reddit.ClientSecret)
	assert.Equal(t, "from-env", cfg.Gemini.APIKey, "explicit values win")
	assert.Equal(t, "redditanalyzer-test/1.0", cfg.Reddit.UserAgent)

	empty, _ := NewMockManager()
	assert.ErrorIs(t, empty.Resolve(config.DefaultConfig(), "missing"), ErrCredentialsNotFound)
}

func TestSanitizeProfile(t *testing.T) {
	p := testProfile("work")
	sanitized := SanitizeProfile(p)

	assert.Equal(t, "redd...alue", sanitized.RedditClientSecret)
	assert.Equal(t, "gemi...alue", sanitized.GeminiAPIKey)
	assert.Equal(t, p.RedditClientID, sanitized.RedditClientID)
	assert.Equal(t, "reddit-secret-value", p.RedditClientSecret)
	assert.Equal(t, "********", maskString("short"))
	assert.Nil(t, SanitizeProfile(nil))
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "nested", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(testProfile("work")))
	require.NoError(t, store.Store(testProfile("home")))

	got, err := store.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "client-work", got.RedditClientID)
	assert.True(t, store.Exists("home"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "reddit-secret-value")
	assert.NotContains(t, string(content), "gemini-key-value")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	profiles, err := store.List()
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	require.NoError(t, store.Delete("work"))
	require.NoError(t, store.Delete("home"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file removed with the last profile")
	assert.ErrorIs(t, store.Delete("home"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testProfile("work")))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("work")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testProfile("work")))

	assert.FileExists(t, filepath.Join(dir, ".passphrase"))

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "client-work", got.RedditClientID)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv("REDDIT_CLIENT_ID", "")
	_, err := store.Retrieve("default")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	t.Setenv("REDDIT_CLIENT_ID", "env-client")
	t.Setenv("REDDIT_CLIENT_SECRET", "env-secret")
	t.Setenv("GEMINI_API_KEY", "env-gemini")

	got, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "env-client", got.RedditClientID)
	assert.Equal(t, "default", got.Name)
	assert.True(t, store.Exists("anything"))

	profiles, err := store.List()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "environment", profiles[0].Name)

	assert.ErrorIs(t, store.Store(testProfile("x")), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(testProfile("work")))
	require.NoError(t, store.Store(testProfile("home")))
	require.NoError(t, store.Store(testProfile("work")))

	profiles, err := store.List()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "home", profiles[0].Name)

	require.NoError(t, store.Delete("home"))
	assert.False(t, store.Exists("home"))
	assert.ErrorIs(t, store.Delete("home"), ErrCredentialsNotFound)

	profiles, err = store.List()
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "work", profiles[0].Name)
}

func TestPrintSetupGuide(t *testing.T) {
	var buf bytes.Buffer
	PrintSetupGuide(&buf)

	assert.Contains(t, buf.String(), "reddit.com/prefs/apps")
	assert.Contains(t, buf.String(), "Gemini")
}
