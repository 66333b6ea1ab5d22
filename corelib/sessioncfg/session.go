// Copyright 2024 The Bit Authors
// This file is part of bit-corelib.
//
// Package sessioncfg holds the process-scoped global session: token,
// username, email (§9 "Global session state"). The core never reads this
// as a package-level global — every function that needs it takes a
// *Session parameter explicitly.
package sessioncfg

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Session is the logged-in user's identity, lazily loaded and explicitly
// invalidated before any auth-sensitive read.
type Session struct {
	Token       string `json:"token,omitempty"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`

	mu       sync.Mutex
	loaded   bool
	fs       afero.Fs
	path     string
}

// NewStore returns a Session bound to path but not yet loaded.
func NewStore(fs afero.Fs, path string) *Session {
	return &Session{fs: fs, path: path}
}

// Load reads the session from disk once; subsequent calls are no-ops until
// Invalidate is called.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, afero.ErrFileNotFound) || errors.Is(err, os.ErrNotExist) {
			s.loaded = true
			return nil
		}
		return errors.Wrap(err, "sessioncfg: read")
	}
	var onDisk Session
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		return errors.Wrap(err, "sessioncfg: parse")
	}
	s.Token, s.Username, s.Email, s.ProfileImage = onDisk.Token, onDisk.Username, onDisk.Email, onDisk.ProfileImage
	s.loaded = true
	return nil
}

// Invalidate forces the next Load to re-read from disk — used before
// auth-sensitive operations so a concurrent `login` is observed.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
}

// Save persists the session atomically (write-temp, rename).
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "sessioncfg: marshal")
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "sessioncfg: write temp")
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "sessioncfg: rename")
	}
	s.loaded = true
	return nil
}

// LogEntry is the log metadata attached to every Lane on creation (§4.3).
type LogEntry struct {
	Date         string `json:"date"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// NewLogEntry builds a LogEntry for the given session at the given RFC3339
// timestamp. The caller supplies the timestamp: this package never reads
// the clock, keeping the core testable and deterministic.
func (s *Session) NewLogEntry(nowRFC3339 string) LogEntry {
	return LogEntry{
		Date:         nowRFC3339,
		Username:     s.Username,
		Email:        s.Email,
		ProfileImage: s.ProfileImage,
	}
}
