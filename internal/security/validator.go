package security

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"notechat/internal/config"
)

var (
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message too long")
)

// InputValidator handles input validation and sanitization
type InputValidator struct {
	maxMessageLength int
	escapeHTML       bool
	validate         *validator.Validate
}

// NewInputValidator creates a new input validator
func NewInputValidator(config *config.ServerConfig) *InputValidator {
	return &InputValidator{
		maxMessageLength: config.MaxMessageLength,
		escapeHTML:       config.EscapeHTML,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateMessage checks a chat body. Bodies that are blank or longer than
// the limit are rejected, never shortened.
func (v *InputValidator) ValidateMessage(message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	// Length is counted in runes, before any escaping
	if utf8.RuneCountInString(message) > v.maxMessageLength {
		return "", fmt.Errorf("%w (max %d characters)", ErrMessageTooLong, v.maxMessageLength)
	}

	if v.escapeHTML {
		message = html.EscapeString(message)
	}
	return message, nil
}

// ValidateStruct runs the struct-tag rules of s.
func (v *InputValidator) ValidateStruct(s any) error {
	return v.validate.Struct(s)
}

// MaxMessageLength is the configured body limit in runes.
func (v *InputValidator) MaxMessageLength() int {
	return v.maxMessageLength
}
