package config

import (
	"fmt"
	"os"

	"party-rounds/internal/game"

	"gopkg.in/yaml.v3"
)

// LoadStages overlays the stage table in a YAML file onto base. Stages the
// file omits, or sets to zero, keep their base duration.
//
//	prep: 5
//	game: 45
//	voting: 15
//	results: 10
func LoadStages(path string, base game.StageTable) (game.StageTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read stages file: %w", err)
	}
	var file game.StageTable
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return base, fmt.Errorf("parse stages file %s: %w", path, err)
	}
	if file.Prep < 0 || file.Game < 0 || file.Voting < 0 || file.Results < 0 {
		return base, fmt.Errorf("stages file %s: durations must not be negative", path)
	}
	out := base
	if file.Prep > 0 {
		out.Prep = file.Prep
	}
	if file.Game > 0 {
		out.Game = file.Game
	}
	if file.Voting > 0 {
		out.Voting = file.Voting
	}
	if file.Results > 0 {
		out.Results = file.Results
	}
	return out, nil
}

// ApplyStagesFile loads cfg.StagesFile into cfg.Stages when one is set.
func ApplyStagesFile(cfg *Config) error {
	if cfg.StagesFile == "" {
		return nil
	}
	stages, err := LoadStages(cfg.StagesFile, cfg.Stages)
	if err != nil {
		return err
	}
	cfg.Stages = stages
	return nil
}
