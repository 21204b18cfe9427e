package film

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360/filmgraph/errors"
)

// Film is a row of the films table.
type Film struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Title       string    `json:"title"`
	ReleaseYear int32     `json:"release_year"`
	Summary     string    `json:"summary"`
	RuntimeMins int32     `json:"runtime_mins"`
}

// CreateFilm is the payload for inserting a film. Storage assigns the id and
// both timestamps.
type CreateFilm struct {
	Title       string `json:"title"`
	ReleaseYear int32  `json:"release_year"`
	Summary     string `json:"summary"`
	RuntimeMins int32  `json:"runtime_mins"`
}

// Validate rejects payloads the films table would accept but the API must not.
func (c CreateFilm) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.WrapInvalid(errors.ErrInvalidInput, "CreateFilm", "Validate", "title must not be empty")
	}
	return nil
}

// Page bounds a listing. A nil Limit means unbounded and a nil Offset means zero.
type Page struct {
	Limit  *int32
	Offset *int32
}

// Validate rejects negative bounds.
func (p Page) Validate() error {
	if p.Limit != nil && *p.Limit < 0 {
		return errors.WrapInvalid(errors.ErrInvalidInput, "Page", "Validate",
			fmt.Sprintf("first must not be negative (got %d)", *p.Limit))
	}
	if p.Offset != nil && *p.Offset < 0 {
		return errors.WrapInvalid(errors.ErrInvalidInput, "Page", "Validate",
			fmt.Sprintf("offset must not be negative (got %d)", *p.Offset))
	}
	return nil
}

// ParseID parses the hyphenated textual form of a film id.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q is not a UUID", errors.ErrInvalidID, s)
	}
	return id, nil
}
