package service

import (
	"fmt"
	"sort"
	"strings"

	"katalog/models"
)

// Error is implemented by every expected failure of a record service.
// The set of implementations is closed; callers switch over the concrete
// types. Anything else returned by a service is an unrecovered store or
// transport failure.
type Error interface {
	error
	serviceError()
}

// ValidationError carries every violated field rule of a candidate.
type ValidationError struct {
	Messages models.ValidationErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %v", e.Messages)
}

// TitleExistsError means another record already uses the title.
type TitleExistsError struct {
	Titel string
	ID    string
}

func (e *TitleExistsError) Error() string {
	return fmt.Sprintf("title %q already exists at %s", e.Titel, e.ID)
}

// KeyExistsError means another record already uses a secondary unique key,
// such as the ISAN of a film.
type KeyExistsError struct {
	Field string
	Value string
	ID    string
}

func (e *KeyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists at %s", e.Field, e.Value, e.ID)
}

// NotFoundError means the record to update does not exist. ID is empty when
// the candidate had no identifier.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %q does not exist", e.ID)
}

// VersionInvalidError means the version token is absent, not a number or
// out of the 32 bit range.
type VersionInvalidError struct {
	Version string
	Missing bool
}

func (e *VersionInvalidError) Error() string {
	if e.Missing {
		return "version is missing"
	}
	return fmt.Sprintf("version %q is not a number", e.Version)
}

// VersionOutdatedError means the supplied version is older than the stored one.
type VersionOutdatedError struct {
	ID      string
	Version int
}

func (e *VersionOutdatedError) Error() string {
	return fmt.Sprintf("version %d of record %s is outdated", e.Version, e.ID)
}

func (*ValidationError) serviceError()      {}
func (*TitleExistsError) serviceError()     {}
func (*KeyExistsError) serviceError()       {}
func (*NotFoundError) serviceError()        {}
func (*VersionInvalidError) serviceError()  {}
func (*VersionOutdatedError) serviceError() {}

// Text renders an expected failure as the message clients receive.
// kind names the record kind, e.g. "Film".
func Text(kind string, err Error) string {
	switch e := err.(type) {
	case *TitleExistsError:
		return fmt.Sprintf("Der Titel %q existiert bereits bei %s.", e.Titel, e.ID)
	case *KeyExistsError:
		if e.Field == "isan" {
			return fmt.Sprintf("Die ISAN-Nummer %q existiert bereits bei %s.", e.Value, e.ID)
		}
		return fmt.Sprintf("Der Wert %q fuer %s existiert bereits bei %s.", e.Value, e.Field, e.ID)
	case *NotFoundError:
		return fmt.Sprintf("Es gibt kein %s mit der ID %q.", kind, e.ID)
	case *VersionInvalidError:
		if e.Missing {
			return "Versionsnummer fehlt"
		}
		return fmt.Sprintf("Die Versionsnummer %q ist ungueltig.", e.Version)
	case *VersionOutdatedError:
		return fmt.Sprintf("Die Versionsnummer \"%d\" ist nicht aktuell.", e.Version)
	case *ValidationError:
		keys := make([]string, 0, len(e.Messages))
		for k := range e.Messages {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, e.Messages[k])
		}
		return strings.Join(msgs, " ")
	}
	return err.Error()
}
