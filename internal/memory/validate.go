package memory

import (
	"fmt"
	"strings"

	"github.com/recallkb/recall/internal/errors"
)

// ValidateContent checks entry content before it reaches the store.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "content must not be empty", nil)
	}
	if len(content) > MaxContentBytes {
		return errors.New(errors.ErrCodeContentTooLarge,
			fmt.Sprintf("content exceeds %d bytes", MaxContentBytes), nil)
	}
	return nil
}

// ValidateID checks an entry id supplied by a caller.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "id must not be empty", nil)
	}
	return nil
}

// ParseCategory maps a user-supplied string to a Category.
// Empty input falls back to CategoryGeneral.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryGeneral, nil
	}
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !ValidCategory(c) {
		return "", errors.New(errors.ErrCodeInvalidCategory,
			fmt.Sprintf("unknown category %q", s), nil)
	}
	return c, nil
}
