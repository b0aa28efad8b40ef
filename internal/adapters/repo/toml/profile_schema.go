package toml

import "fmt"

const currentSchemaVersion = 1

type profileFileSchema struct {
	Version int           `toml:"version"`
	Upload  profileSchema `toml:"upload"`
}

func (s *profileFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s profileFileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported profile schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type profileSchema struct {
	ChatID string `toml:"chat_id"`
	Credit string `toml:"credit"`
}
