package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"time"

	"goesbot/pkg/config"
)

// DefaultProfile is used when no profile name is given
const DefaultProfile = "default"

// PassphraseEnv holds the passphrase for the encrypted profile files
const PassphraseEnv = "GOESBOT_PASSPHRASE"

// profile names double as file names
var profileName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Profile is one named set of Twitter OAuth1 keys
type Profile struct {
	Name           string    `json:"name"`
	ConsumerKey    string    `json:"consumer_key"`
	ConsumerSecret string    `json:"consumer_secret"`
	AccessToken    string    `json:"access_token"`
	AccessSecret   string    `json:"access_secret"`
	ScreenName     string    `json:"screen_name,omitempty"`
	SavedAt        time.Time `json:"saved_at"`
}

// Credentials converts the profile into the config representation
func (p *Profile) Credentials() config.Credentials {
	return config.Credentials{
		ConsumerKey:    p.ConsumerKey,
		ConsumerSecret: p.ConsumerSecret,
		AccessToken:    p.AccessToken,
		AccessSecret:   p.AccessSecret,
	}
}

// Validate checks the name and that all four keys are present
func (p *Profile) Validate() error {
	if p == nil || !profileName.MatchString(p.Name) {
		return errors.New("profile name must be letters, digits, '.', '_' or '-'")
	}
	if !p.Credentials().Complete() {
		return errors.New("consumer key, consumer secret, access token and access secret are required")
	}
	return nil
}

// Store keeps profiles by name
type Store interface {
	Load(name string) (*Profile, error)
	Save(p *Profile) error
	Remove(name string) error
	Names() ([]string, error)
}

// AccountCheck confirms creds against the API and returns the account's
// screen name
type AccountCheck func(ctx context.Context, creds config.Credentials) (string, error)

// Manager saves to the first store that accepts a profile and reads from
// whichever store has it
type Manager struct {
	stores []Store
}

func newManager(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// NewManager uses the system keychain when it is reachable and the
// encrypted profile directory when GOESBOT_PASSPHRASE is set
func NewManager() (*Manager, error) {
	var stores []Store
	if ks, err := NewKeychainStore(); err == nil {
		stores = append(stores, ks)
	}

	if pass := os.Getenv(PassphraseEnv); pass != "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		fs, err := NewFileStore(filepath.Join(dir, "profiles"), pass)
		if err != nil {
			return nil, err
		}
		stores = append(stores, fs)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("%w: no keychain and %s is not set", ErrStoreUnavailable, PassphraseEnv)
	}
	return newManager(stores...), nil
}

// Login checks p against the API, records the account it belongs to and
// saves it. A nil check saves without contacting the API.
func (m *Manager) Login(ctx context.Context, p *Profile, check AccountCheck) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if check != nil {
		screenName, err := check(ctx, p.Credentials())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		p.ScreenName = screenName
	}
	return m.Save(p)
}

// Save stores p in the first store that accepts it
func (m *Manager) Save(p *Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	p.SavedAt = time.Now()

	var errs []error
	for _, s := range m.stores {
		err := s.Save(p)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrStoreUnavailable
	}
	return fmt.Errorf("failed to save profile %s: %w", p.Name, errors.Join(errs...))
}

// Load returns the named profile from the first store holding it
func (m *Manager) Load(name string) (*Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	for _, s := range m.stores {
		if p, err := s.Load(name); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: profile %s", ErrCredentialsNotFound, name)
}

// Profiles loads every stored profile once, sorted by name
func (m *Manager) Profiles() ([]*Profile, error) {
	seen := make(map[string]bool)
	var out []*Profile
	for _, s := range m.stores {
		names, err := s.Names()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			p, err := s.Load(name)
			if err != nil {
				return nil, fmt.Errorf("failed to load profile %s: %w", name, err)
			}
			seen[name] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Remove deletes the named profile from every store holding it
func (m *Manager) Remove(name string) error {
	if name == "" {
		name = DefaultProfile
	}

	removed := false
	for _, s := range m.stores {
		err := s.Remove(name)
		switch {
		case err == nil:
			removed = true
		case !errors.Is(err, ErrCredentialsNotFound):
			return fmt.Errorf("failed to remove profile %s: %w", name, err)
		}
	}
	if !removed {
		return fmt.Errorf("%w: profile %s", ErrCredentialsNotFound, name)
	}
	return nil
}

// Resolve fills whatever keys creds is missing from the named stored profile.
// Keys set in the config file or environment always win.
func (m *Manager) Resolve(creds config.Credentials, name string) (config.Credentials, error) {
	if creds.Complete() {
		return creds, nil
	}

	p, err := m.Load(name)
	if err != nil {
		return creds, err
	}

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&creds.ConsumerKey, p.ConsumerKey)
	fill(&creds.ConsumerSecret, p.ConsumerSecret)
	fill(&creds.AccessToken, p.AccessToken)
	fill(&creds.AccessSecret, p.AccessSecret)
	return creds, nil
}

// configDir returns the per-user goesbot configuration directory
func configDir() (string, error) {
	var dir string
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "goesbot")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "goesbot")
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, ".config")
		}
		dir = filepath.Join(base, "goesbot")
	}
	return dir, nil
}

// Masked returns a copy of p with every key masked for display
func Masked(p *Profile) *Profile {
	if p == nil {
		return nil
	}
	masked := *p
	masked.ConsumerKey = mask(p.ConsumerKey)
	masked.ConsumerSecret = mask(p.ConsumerSecret)
	masked.AccessToken = mask(p.AccessToken)
	masked.AccessSecret = mask(p.AccessSecret)
	return &masked
}

// mask keeps the first and last 4 characters of s
func mask(s string) string {
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
