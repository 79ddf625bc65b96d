package game

import "time"

type Stage string

const (
	StagePrep    Stage = "PREP"
	StageGame    Stage = "GAME"
	StageVoting  Stage = "VOTING"
	StageResults Stage = "RESULTS"
)

const fallbackStageSeconds = 30

var nextStages = map[Stage]Stage{
	StagePrep:    StageGame,
	StageGame:    StageVoting,
	StageVoting:  StageResults,
	StageResults: StagePrep,
}

// Advance returns the stage that follows current. Unknown stages restart the
// cycle at PREP.
func Advance(current Stage) Stage {
	if next, ok := nextStages[current]; ok {
		return next
	}
	return StagePrep
}

func (s Stage) Valid() bool {
	_, ok := nextStages[s]
	return ok
}

func Normalize(s Stage) Stage {
	if s.Valid() {
		return s
	}
	return StagePrep
}

func StartsNewRound(from, to Stage) bool {
	return from == StageResults && to == StagePrep
}

// StageTable holds the countdown length of each stage in seconds.
type StageTable struct {
	Prep    int `yaml:"prep" json:"prep"`
	Game    int `yaml:"game" json:"game"`
	Voting  int `yaml:"voting" json:"voting"`
	Results int `yaml:"results" json:"results"`
}

func DefaultStageTable() StageTable {
	return StageTable{
		Prep:    5,
		Game:    30,
		Voting:  15,
		Results: 10,
	}
}

func (t StageTable) Seconds(stage Stage) int {
	var seconds int
	switch stage {
	case StagePrep:
		seconds = t.Prep
	case StageGame:
		seconds = t.Game
	case StageVoting:
		seconds = t.Voting
	case StageResults:
		seconds = t.Results
	default:
		return fallbackStageSeconds
	}
	if seconds <= 0 {
		return fallbackStageSeconds
	}
	return seconds
}

func (t StageTable) Duration(stage Stage) time.Duration {
	return time.Duration(t.Seconds(stage)) * time.Second
}
