// Package family tracks the household members who leave reviews and which
// one is currently using the app.
package family

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrUnknownMember   = errors.New("unknown family member")
	ErrDuplicateMember = errors.New("family member already exists")
	ErrEmptyName       = errors.New("name is required")
)

// Session is the list of family members plus the active one.
// Active is empty only when Members is empty.
type Session struct {
	Members []string `json:"members"`
	Active  string   `json:"active"`
}

// Add registers a member. The first member becomes active.
func (s *Session) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if slices.Contains(s.Members, name) {
		return fmt.Errorf("%w: %s", ErrDuplicateMember, name)
	}
	s.Members = append(s.Members, name)
	if s.Active == "" {
		s.Active = name
	}
	return nil
}

// Remove drops a member. If it was active, the first remaining member takes over.
func (s *Session) Remove(name string) error {
	i := slices.Index(s.Members, strings.TrimSpace(name))
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMember, name)
	}
	removed := s.Members[i]
	s.Members = slices.Delete(s.Members, i, i+1)
	if s.Active == removed {
		s.Active = ""
		if len(s.Members) > 0 {
			s.Active = s.Members[0]
		}
	}
	return nil
}

// Switch makes name the active member.
func (s *Session) Switch(name string) error {
	name = strings.TrimSpace(name)
	if !slices.Contains(s.Members, name) {
		return fmt.Errorf("%w: %s", ErrUnknownMember, name)
	}
	s.Active = name
	return nil
}

// Load reads a session from path. A missing file yields an empty session.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Session{Members: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read family file: %w", err)
	}

	s := &Session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse family file %s: %w", path, err)
	}
	if s.Members == nil {
		s.Members = []string{}
	}
	if s.Active != "" && !slices.Contains(s.Members, s.Active) {
		s.Active = ""
	}
	if s.Active == "" && len(s.Members) > 0 {
		s.Active = s.Members[0]
	}
	return s, nil
}

// Save writes the session to path, creating parent directories.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create family dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DefaultPath is where the CLI keeps the session when no path is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "family.json"
	}
	return filepath.Join(dir, "cookbookindex", "family.json")
}
