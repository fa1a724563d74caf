package profile

import (
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jholliman/vantage/internal/errors"
)

// Store persists connection profiles as an ordered YAML list.
// Records are upserted by identity: saving a profile whose
// (hostname, username, port) already exists replaces the password and
// display name in place instead of appending a duplicate.
type Store struct {
	mu       sync.Mutex
	path     string
	profiles []Profile
}

// NewStore creates a store backed by the given file path.
// A missing file is treated as an empty store; any other read error
// is returned.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns a copy of all saved profiles in insertion order.
func (s *Store) List() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Find returns the saved profile for the given identity, if any.
func (s *Store) Find(id Identity) (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.profiles {
		if p.Identity() == id {
			return p, true
		}
	}
	return Profile{}, false
}

// Save upserts a profile by identity and writes the store to disk.
func (s *Store) Save(p Profile) error {
	p = p.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.profiles {
		if s.profiles[i].Identity() == p.Identity() {
			s.profiles[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.profiles = append(s.profiles, p)
	}

	return s.flush()
}

// Remove deletes the profile for the given identity and writes the store
// to disk. Removing an absent identity is a no-op.
func (s *Store) Remove(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.profiles[:0]
	for _, p := range s.profiles {
		if p.Identity() != id {
			kept = append(kept, p)
		}
	}
	s.profiles = kept

	return s.flush()
}

// Len returns the number of saved profiles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't read saved connections",
			"Check permissions on "+s.path)
	}

	var profiles []Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Saved connections file is not valid YAML",
			"Fix or delete "+s.path)
	}
	s.profiles = profiles
	return nil
}

func (s *Store) flush() error {
	data, err := yaml.Marshal(s.profiles)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't encode saved connections", "")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't create config directory",
				"Check permissions on "+dir)
		}
	}

	// 0600: the file holds passwords.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write saved connections",
			"Check permissions on "+s.path)
	}
	return nil
}
