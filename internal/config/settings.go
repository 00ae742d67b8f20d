package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/campfire/internal/domain"
)

// Settings is the game content and tuning loaded from a settings file.
type Settings struct {
	World domain.World `json:"world" yaml:"world"`

	// WindowMaxTokens bounds every context window handed to the generator.
	WindowMaxTokens int `json:"window_max_tokens" yaml:"window_max_tokens"`

	// Blocklist words reject player replies when no moderation model is used.
	Blocklist []string `json:"blocklist" yaml:"blocklist"`
}

// DefaultSettings is what runs when no settings file is given.
func DefaultSettings() *Settings {
	return &Settings{
		World:           domain.DefaultWorld(),
		WindowMaxTokens: 4096,
	}
}

// LoadSettings reads path and fills anything it leaves out from
// DefaultSettings. An empty path returns the defaults. Files ending in .yaml
// or .yml are YAML; everything else is JSON with comments and trailing commas
// allowed.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	s, err := ParseSettings(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseSettings decodes data in the format named by ext.
func ParseSettings(data []byte, ext string) (*Settings, error) {
	var s Settings
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing settings: %w", err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
			return nil, fmt.Errorf("parsing settings: %w", err)
		}
	}

	s.fillDefaults()
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) fillDefaults() {
	def := DefaultSettings()
	if s.World.Premise == "" {
		s.World.Premise = def.World.Premise
	}
	if len(s.World.Fields) == 0 {
		s.World.Fields = def.World.Fields
	}
	if len(s.World.NPCs) == 0 {
		s.World.NPCs = def.World.NPCs
	}
	if s.World.ProblemsPerQuest <= 0 {
		s.World.ProblemsPerQuest = def.World.ProblemsPerQuest
	}
	if s.WindowMaxTokens <= 0 {
		s.WindowMaxTokens = def.WindowMaxTokens
	}
}

func (s *Settings) validate() error {
	seen := make(map[string]bool)
	for _, f := range s.World.Fields {
		if f.Key == "" || f.Question == "" {
			return fmt.Errorf("character field needs a key and a question")
		}
		if seen[f.Key] {
			return fmt.Errorf("duplicate character field %q", f.Key)
		}
		seen[f.Key] = true
	}
	npcs := make(map[domain.NPCID]bool)
	for _, n := range s.World.NPCs {
		if n.ID == "" || n.Name == "" {
			return fmt.Errorf("npc needs an id and a name")
		}
		if npcs[n.ID] {
			return fmt.Errorf("duplicate npc %q", n.ID)
		}
		npcs[n.ID] = true
	}
	return nil
}
