package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings holds operator-mutable state that has to survive restarts,
// unlike the env-only Config. Currently that is just the role handed
// out to linked members, set at runtime via /linkrole.
type Settings struct {
	mu   sync.Mutex
	path string

	data settingsFile
}

type settingsFile struct {
	LinkedRoleID string `yaml:"linked_role_id"`
}

// OpenSettings reads the settings file at path, creating an empty
// settings set if the file does not exist yet.
func OpenSettings(path string) (*Settings, error) {
	s := &Settings{path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

func (s *Settings) LinkedRoleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LinkedRoleID
}

func (s *Settings) SetLinkedRoleID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LinkedRoleID = id
	return s.save()
}

// save writes the file under the lock held by the caller.
func (s *Settings) save() error {
	raw, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}
