package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"party-rounds/internal/game"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength    = 20
	maxContentLength = 80
	maxChoiceLength  = 140
	gameCodeLength   = 6
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("name", func(fl validator.FieldLevel) bool {
			_, err := validateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("content", func(fl validator.FieldLevel) bool {
			_, err := validateContent(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("choice", func(fl validator.FieldLevel) bool {
			_, err := validateChoice(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("answer", func(fl validator.FieldLevel) bool {
			return !game.AnswerTooLong(fl.Field().String())
		})
		_ = engine.RegisterValidation("gamecode", func(fl validator.FieldLevel) bool {
			return validGameCode(fl.Field().String())
		})
		_ = engine.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
			return game.Stage(fl.Field().String()).Valid()
		})
	})
}

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength)
}

func validateChoice(text string) (string, error) {
	return validateText("choice", text, maxChoiceLength)
}

// validateContent accepts an empty theme or prompt; the game falls back to
// its defaults.
func validateContent(text string) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", nil
	}
	return validateText("content", trimmed, maxContentLength)
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len([]rune(trimmed)) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func validGameCode(code string) bool {
	if len(code) != gameCodeLength {
		return false
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if unicode.IsControl(r) {
			return false
		}
		if r == '<' || r == '>' {
			return false
		}
	}
	return true
}
