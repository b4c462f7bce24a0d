// Package session holds the local player's identity. It is loaded and saved
// explicitly and passed to whatever needs it.
package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"arcade/internal/localstats"
)

const (
	KeyPlayerID   = "kaa-player-id"
	KeyPlayerName = "kaa-player-name"
)

type Session struct {
	PlayerID   string
	PlayerName string
}

// Load reads the identity from storage, minting and saving a new player id when none
// is stored or the stored one is not a uuid. Unavailable storage still yields a usable
// session that just won't persist.
func Load(storage localstats.Storage) *Session {
	s := &Session{}
	if storage != nil {
		if id, ok, err := storage.Get(KeyPlayerID); err == nil && ok {
			if parsed, err := uuid.Parse(id); err == nil {
				s.PlayerID = parsed.String()
			}
		}
		if name, ok, err := storage.Get(KeyPlayerName); err == nil && ok {
			s.PlayerName = strings.TrimSpace(name)
		}
	}
	if s.PlayerID == "" {
		s.PlayerID = uuid.NewString()
		if storage != nil {
			storage.Set(KeyPlayerID, s.PlayerID)
		}
	}
	return s
}

// SetName trims and applies name. Blank names are ignored.
func (s *Session) SetName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	s.PlayerName = name
	return true
}

// HasProfile reports whether the player picked a name.
func (s *Session) HasProfile() bool {
	return s.PlayerID != "" && s.PlayerName != ""
}

// Name returns the chosen name or nil.
func (s *Session) Name() *string {
	if s.PlayerName == "" {
		return nil
	}
	n := s.PlayerName
	return &n
}

func (s *Session) Save(storage localstats.Storage) error {
	if storage == nil {
		return localstats.ErrUnavailable
	}
	if err := storage.Set(KeyPlayerID, s.PlayerID); err != nil {
		return fmt.Errorf("saving player id: %w", err)
	}
	if s.PlayerName != "" {
		if err := storage.Set(KeyPlayerName, s.PlayerName); err != nil {
			return fmt.Errorf("saving player name: %w", err)
		}
	}
	return nil
}
