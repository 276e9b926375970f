package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors maps a JSON field name to a human-readable violation.
// A nil or empty map means the record is valid.
type ValidationErrors map[string]string

// Entity is implemented by every record kind the catalog manages.
type Entity interface {
	// Validate checks all field rules and returns every violation at once.
	Validate() ValidationErrors
	// GetTitel returns the title, which is unique within a kind.
	GetTitel() string
	// UniqueKeys returns further unique fields besides the title, keyed by
	// JSON field name. Empty values are left out.
	UniqueKeys() map[string]string
}

var (
	validate = validator.New()

	// same as /^\w.*/u in the old API
	wordStart = regexp.MustCompile(`^\w`)
)

func startsWithWordChar(s string) bool {
	return wordStart.MatchString(s)
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// isISODate accepts calendar dates (yyyy-MM-dd) and full RFC 3339 timestamps.
func isISODate(s string) bool {
	if validate.Var(s, "datetime=2006-01-02") == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

// isISAN checks the ISBN-10/ISBN-13 checksum format used for film numbers.
func isISAN(s string) bool {
	return validate.Var(strings.TrimSpace(s), "isbn") == nil
}

func (v ValidationErrors) orNil() ValidationErrors {
	if len(v) == 0 {
		return nil
	}
	return v
}
