package tmdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by the metadata provider.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON renders the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

// OptionalDate is a date the provider may omit, send as null, or send as "".
// All three decode to an absent date.
type OptionalDate struct {
	Date  Date
	Valid bool
}

// UnmarshalJSON treats null and "" as absent and parses anything else.
func (o *OptionalDate) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = OptionalDate{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("release_date: %w", err)
	}
	if s == "" {
		*o = OptionalDate{}
		return nil
	}

	d, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("release_date %q: %w", s, err)
	}
	*o = OptionalDate{Date: d, Valid: true}
	return nil
}

// MarshalJSON renders an absent date as null.
func (o OptionalDate) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return o.Date.MarshalJSON()
}

// Ptr returns the date, or nil when absent.
func (o OptionalDate) Ptr() *Date {
	if !o.Valid {
		return nil
	}
	d := o.Date
	return &d
}

// SearchMovie is one result of a movie search.
type SearchMovie struct {
	ID               int32        `json:"id"`
	Title            string       `json:"title"`
	OriginalTitle    string       `json:"original_title"`
	OriginalLanguage string       `json:"original_language"`
	Overview         *string      `json:"overview"`
	ReleaseDate      OptionalDate `json:"release_date"`
	GenreIDs         []int32      `json:"genre_ids"`
	PosterPath       *string      `json:"poster_path"`
	BackdropPath     *string      `json:"backdrop_path"`
	Popularity       float64      `json:"popularity"`
	Adult            bool         `json:"adult"`
}

// SearchMovieResults is one page of movie search results.
type SearchMovieResults struct {
	Page         int32         `json:"page"`
	TotalPages   int32         `json:"total_pages"`
	TotalResults int32         `json:"total_results"`
	Results      []SearchMovie `json:"results"`
}
