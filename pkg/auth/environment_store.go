package auth

import (
	"os"
	"time"
)

// EnvironmentStore exposes the credential environment variables as a single
// read-only profile. It answers to any profile name.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(profile *Profile) error {
	return ErrStoreUnavailable
}

// Retrieve builds a profile from REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET,
// REDDIT_USER_AGENT and GEMINI_API_KEY
func (e *EnvironmentStore) Retrieve(name string) (*Profile, error) {
	profile := &Profile{
		Name:               name,
		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUserAgent:    os.Getenv("REDDIT_USER_AGENT"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		LastModified:       time.Time{},
	}
	if profile.Name == "" {
		profile.Name = "environment"
	}

	if err := profile.Validate(); err != nil {
		return nil, ErrCredentialsNotFound
	}
	return profile, nil
}

// List returns the environment profile if every variable is set
func (e *EnvironmentStore) List() ([]*Profile, error) {
	profile, err := e.Retrieve("")
	if err != nil {
		return []*Profile{}, nil
	}
	return []*Profile{profile}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists reports whether the environment carries a complete profile
func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}
