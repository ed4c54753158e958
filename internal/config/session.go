package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Session records who is signed in on this device, at
// ~/.config/vempat/session.json.
type Session struct {
	UID        string    `json:"uid"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	Role       string    `json:"role"`
	Offline    bool      `json:"offline"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// LoadSession returns the saved session, or nil when nobody is signed in.
func LoadSession() (*Session, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "session.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSession writes s with 0600 permissions.
func SaveSession(s *Session) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, "session.json"), data, 0600)
}

// ClearSession removes the saved session.
func ClearSession() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "session.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
