package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength     = 32
	maxRoomNameLength = 100
	maxGuessLength    = 100
	maxColorLength    = 20
	maxStrokePoints   = 2000
	maxInviteEmails   = 20
	maxLobbyPlayers   = 12
	maxRoundsPerGame  = 20
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
		_ = engine.RegisterValidation("roomname", func(fl validator.FieldLevel) bool {
			_, err := validateRoomName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("guess", func(fl validator.FieldLevel) bool {
			_, err := validateGuess(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("color", func(fl validator.FieldLevel) bool {
			return validateColor(fl.Field().String()) == nil
		})
	})
}

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength)
}

func validateRoomName(name string) (string, error) {
	return validateText("room name", name, maxRoomNameLength)
}

func validateGuess(text string) (string, error) {
	return validateText("guess", text, maxGuessLength)
}

// validateColor accepts #rgb, #rrggbb or a CSS color keyword.
func validateColor(color string) error {
	color = strings.TrimSpace(color)
	if color == "" {
		return errors.New("color is required")
	}
	if len(color) > maxColorLength {
		return fmt.Errorf("color must be %d characters or fewer", maxColorLength)
	}
	if strings.HasPrefix(color, "#") {
		hex := color[1:]
		if len(hex) != 3 && len(hex) != 6 {
			return errors.New("color must be #rgb or #rrggbb")
		}
		for _, r := range hex {
			if !unicode.Is(unicode.ASCII_Hex_Digit, r) {
				return errors.New("color must be #rgb or #rrggbb")
			}
		}
		return nil
	}
	for _, r := range color {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return errors.New("color contains unsupported characters")
		}
	}
	return nil
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

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '"', '.', ',', '!', '?', ':', ';', '&', '(', ')', '/':
			continue
		default:
			return false
		}
	}
	return true
}
