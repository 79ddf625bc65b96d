package game

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxAnswerLength = 140

var ErrAnswerTooLong = fmt.Errorf("answer must be %d characters or fewer", MaxAnswerLength)

// NormalizeAnswer trims a submission; blank submissions are rejected.
func NormalizeAnswer(answer string) (string, bool) {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

func AnswerTooLong(answer string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(answer)) > MaxAnswerLength
}
