package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"redditanalyzer/pkg/config"
)

// DefaultProfile is used when no profile name is given
const DefaultProfile = "default"

// Profile holds the API credentials the analyzer needs
type Profile struct {
	Name               string    `json:"name"`
	RedditClientID     string    `json:"reddit_client_id"`
	RedditClientSecret string    `json:"reddit_client_secret"`
	RedditUserAgent    string    `json:"reddit_user_agent,omitempty"`
	GeminiAPIKey       string    `json:"gemini_api_key"`
	LastModified       time.Time `json:"last_modified"`
}

// Validate reports the first missing required field
func (p *Profile) Validate() error {
	switch {
	case p == nil || p.Name == "":
		return errors.New("profile name is required")
	case p.RedditClientID == "":
		return errors.New("reddit client id is required")
	case p.RedditClientSecret == "":
		return errors.New("reddit client secret is required")
	case p.GeminiAPIKey == "":
		return errors.New("gemini api key is required")
	}
	return nil
}

// ApplyTo fills credentials missing from cfg. Values already present win.
func (p *Profile) ApplyTo(cfg *config.Config) {
	if cfg.Reddit.ClientID == "" {
		cfg.Reddit.ClientID = p.RedditClientID
	}
	if cfg.Reddit.ClientSecret == "" {
		cfg.Reddit.ClientSecret = p.RedditClientSecret
	}
	if p.RedditUserAgent != "" && cfg.Reddit.UserAgent == config.DefaultConfig().Reddit.UserAgent {
		cfg.Reddit.UserAgent = p.RedditUserAgent
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = p.GeminiAPIKey
	}
}

// CredentialStore is the interface for storing and retrieving profiles
type CredentialStore interface {
	// Store saves a profile, replacing any profile with the same name
	Store(profile *Profile) error

	// Retrieve gets the profile called name
	Retrieve(name string) (*Profile, error)

	// List returns all stored profiles
	List() ([]*Profile, error)

	// Delete removes the profile called name
	Delete(name string) error

	// Exists checks if a profile called name is stored
	Exists(name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keychain when
// available, an encrypted file, and the environment, in that order.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the profile in the first store that accepts it
func (m *Manager) Store(profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	profile.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(profile)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the profile from the first store that has it
func (m *Manager) Retrieve(name string) (*Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	for _, store := range m.stores {
		if profile, err := store.Retrieve(name); err == nil && profile != nil {
			return profile, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// List returns all profiles from all stores sorted by name. When a profile
// lives in more than one store the most recently modified copy wins.
func (m *Manager) List() ([]*Profile, error) {
	byName := make(map[string]*Profile)

	for _, store := range m.stores {
		profiles, err := store.List()
		if err != nil {
			continue
		}
		for _, profile := range profiles {
			if existing, ok := byName[profile.Name]; !ok || profile.LastModified.After(existing.LastModified) {
				byName[profile.Name] = profile
			}
		}
	}

	result := make([]*Profile, 0, len(byName))
	for _, profile := range byName {
		result = append(result, profile)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes the profile from every store holding it
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrCredentialsNotFound) && !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	switch {
	case deleted:
		return nil
	case lastErr != nil:
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	default:
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
	}
}

// Resolve fills missing credentials in cfg from the named profile. It is a
// no-op when cfg already carries every credential.
func (m *Manager) Resolve(cfg *config.Config, name string) error {
	if cfg.RequireCredentials() == nil {
		return nil
	}
	profile, err := m.Retrieve(name)
	if err != nil {
		return err
	}
	profile.ApplyTo(cfg)
	return cfg.RequireCredentials()
}

// getConfigDir returns the per-user configuration directory
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "redditanalyzer")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "redditanalyzer")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "redditanalyzer")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "redditanalyzer")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeProfile returns a copy of profile with secrets masked
func SanitizeProfile(profile *Profile) *Profile {
	if profile == nil {
		return nil
	}

	return &Profile{
		Name:               profile.Name,
		RedditClientID:     profile.RedditClientID,
		RedditClientSecret: maskString(profile.RedditClientSecret),
		RedditUserAgent:    profile.RedditUserAgent,
		GeminiAPIKey:       maskString(profile.GeminiAPIKey),
		LastModified:       profile.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
