package game

import "strings"

func RoundPath(gameCode, roundID string) string {
	return "/game/" + gameCode + "/play/" + roundID
}

func ParseRoundPath(path string) (string, string, bool) {
	const prefix = "/game/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, prefix), "/"), "/")
	if len(parts) != 3 || parts[1] != "play" || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}
