package web

type GameSummary struct {
	GameCode     string `json:"game_code"`
	Stage        string `json:"stage"`
	CurrentRound int    `json:"current_round"`
	Players      int    `json:"players"`
}
