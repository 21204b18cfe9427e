package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/filmgraph/film"
)

// MemoryFilms is an in-memory film.Acquirer.
// Thread-safe for concurrent use from multiple goroutines.
type MemoryFilms struct {
	mu       sync.RWMutex
	films    []film.Film
	now      func() time.Time
	acquired int
	released int

	acquireErr error
	queryErr   error
}

// NewMemoryFilms creates a store holding the given films in order.
func NewMemoryFilms(seed ...film.Film) *MemoryFilms {
	return &MemoryFilms{
		films: append([]film.Film(nil), seed...),
		now:   time.Now,
	}
}

// SeedTitles inserts one film per title, in order, and returns the stored rows.
func (m *MemoryFilms) SeedTitles(titles ...string) []film.Film {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]film.Film, 0, len(titles))
	for i, title := range titles {
		f := m.insertLocked(film.CreateFilm{
			Title:       title,
			ReleaseYear: int32(2000 + i),
			RuntimeMins: 90,
		})
		out = append(out, f)
	}
	return out
}

// FailAcquire makes every subsequent Acquire return err. Pass nil to clear.
func (m *MemoryFilms) FailAcquire(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquireErr = err
}

// FailQueries makes every subsequent storage operation return err. Pass nil to clear.
func (m *MemoryFilms) FailQueries(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// Acquire returns a connection, or the injected acquire error.
func (m *MemoryFilms) Acquire(ctx context.Context) (film.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.acquireErr != nil {
		return nil, m.acquireErr
	}
	m.acquired++
	return &memConn{store: m}, nil
}

// Outstanding returns the number of connections acquired but not yet released.
func (m *MemoryFilms) Outstanding() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.acquired - m.released
}

// Acquired returns the total number of successful acquisitions.
func (m *MemoryFilms) Acquired() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.acquired
}

// Films returns a copy of the stored films.
func (m *MemoryFilms) Films() []film.Film {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]film.Film(nil), m.films...)
}

func (m *MemoryFilms) insertLocked(input film.CreateFilm) film.Film {
	now := m.now().UTC()
	f := film.Film{
		ID:          uuid.New(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Title:       input.Title,
		ReleaseYear: input.ReleaseYear,
		Summary:     input.Summary,
		RuntimeMins: input.RuntimeMins,
	}
	m.films = append(m.films, f)
	return f
}

type memConn struct {
	store    *MemoryFilms
	released bool
}

func (c *memConn) ListFilms(_ context.Context, page film.Page) ([]film.Film, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.store.queryErr != nil {
		return nil, c.store.queryErr
	}

	films := c.store.films
	if page.Offset != nil {
		if int(*page.Offset) >= len(films) {
			return []film.Film{}, nil
		}
		films = films[*page.Offset:]
	}
	if page.Limit != nil && int(*page.Limit) < len(films) {
		films = films[:*page.Limit]
	}
	return append([]film.Film{}, films...), nil
}

func (c *memConn) GetFilm(_ context.Context, id uuid.UUID) (*film.Film, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.store.queryErr != nil {
		return nil, c.store.queryErr
	}

	for _, f := range c.store.films {
		if f.ID == id {
			found := f
			return &found, nil
		}
	}
	return nil, nil
}

func (c *memConn) CreateFilm(_ context.Context, input film.CreateFilm) (*film.Film, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.store.queryErr != nil {
		return nil, c.store.queryErr
	}

	f := c.store.insertLocked(input)
	return &f, nil
}

func (c *memConn) Release() {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if !c.released {
		c.released = true
		c.store.released++
	}
}
