// File: internal/session/store.go
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cookie is the persisted form of a browser cookie. The schema is stable so
// session files survive upgrades of the CDP bindings.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// CapturedState is the authentication state lifted out of a live browsing context.
type CapturedState struct {
	Cookies      []Cookie          `json:"cookies"`
	LocalStorage map[string]string `json:"localStorage"`
}

// PersistedSession is the on-disk record, one file per provider.
type PersistedSession struct {
	Provider     string            `json:"provider"`
	Cookies      []Cookie          `json:"cookies"`
	LocalStorage map[string]string `json:"localStorage"`
	SavedAt      time.Time         `json:"savedAt"`
}

// Info describes a stored session file without decoding all of it.
type Info struct {
	Provider    string    `json:"provider"`
	Exists      bool      `json:"exists"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	CookieCount int       `json:"cookieCount"`
}

// Store maps provider names to PersistedSession files under a fixed directory.
// There is no cross-process locking; concurrent writers to the same provider
// race and the last writer wins.
type Store struct {
	dir    string
	logger *zap.Logger
}

// NewStore creates a session store rooted at dir, creating it if necessary.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory %q: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger.Named("session_store")}, nil
}

// Path returns the session file path for a provider.
func (s *Store) Path(provider string) string {
	return filepath.Join(s.dir, provider+"-session.json")
}

// Has reports whether a session file exists for the provider.
func (s *Store) Has(provider string) bool {
	_, err := os.Stat(s.Path(provider))
	return err == nil
}

// Load reads the persisted session for a provider. A missing or malformed
// file yields nil rather than an error; a corrupt session is as useless as an
// absent one, and the adapter falls back to a fresh login either way.
func (s *Store) Load(provider string) *PersistedSession {
	data, err := os.ReadFile(s.Path(provider))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read session file.",
				zap.String("provider", provider), zap.Error(err))
		}
		return nil
	}

	var ps PersistedSession
	if err := json.Unmarshal(data, &ps); err != nil {
		s.logger.Warn("Session file is malformed, ignoring it.",
			zap.String("provider", provider), zap.Error(err))
		return nil
	}
	return &ps
}

// Save writes the captured state as the provider's session. The write is
// whole-file atomic (temp file + rename) and verified by a round-trip decode
// so a torn write can never shadow a previously good session.
func (s *Store) Save(provider string, state CapturedState) error {
	ps := PersistedSession{
		Provider:     provider,
		Cookies:      state.Cookies,
		LocalStorage: state.LocalStorage,
		SavedAt:      time.Now().UTC(),
	}

	data, err := json.MarshalIndent(&ps, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session for %q: %w", provider, err)
	}

	tmp, err := os.CreateTemp(s.dir, provider+"-session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp session file: %w", err)
	}

	// Round-trip verification before the rename makes the write visible.
	verify, err := os.ReadFile(tmpName)
	if err != nil {
		return fmt.Errorf("failed to re-read session file for verification: %w", err)
	}
	var check PersistedSession
	if err := json.Unmarshal(verify, &check); err != nil {
		return fmt.Errorf("session round-trip verification failed for %q: %w", provider, err)
	}

	if err := os.Rename(tmpName, s.Path(provider)); err != nil {
		return fmt.Errorf("failed to install session file for %q: %w", provider, err)
	}

	s.logger.Info("Session saved.",
		zap.String("provider", provider),
		zap.Int("cookies", len(ps.Cookies)),
		zap.Int("local_storage_keys", len(ps.LocalStorage)))
	return nil
}

// Delete removes the provider's session file. It reports whether a file was
// actually removed; deleting an absent session is not an error.
func (s *Store) Delete(provider string) bool {
	err := os.Remove(s.Path(provider))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to delete session file.",
				zap.String("provider", provider), zap.Error(err))
		}
		return false
	}
	s.logger.Info("Session deleted.", zap.String("provider", provider))
	return true
}

// GetInfo describes the stored session for a provider, or nil when absent.
func (s *Store) GetInfo(provider string) *Info {
	path := s.Path(provider)
	st, err := os.Stat(path)
	if err != nil {
		return nil
	}

	info := &Info{
		Provider: provider,
		Exists:   true,
		Path:     path,
		Size:     st.Size(),
		Modified: st.ModTime(),
	}

	if ps := s.Load(provider); ps != nil {
		info.CookieCount = len(ps.Cookies)
		info.Created = ps.SavedAt
	}
	return info
}
