package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filmgraph/errors"
	"github.com/c360/filmgraph/film"
)

func ptr(v int32) *int32 { return &v }

func TestMemoryFilms_ListBounds(t *testing.T) {
	store := NewMemoryFilms()
	store.SeedTitles("A", "B", "C", "D")

	conn, err := store.Acquire(context.Background())
	require.NoError(t, err)
	defer conn.Release()

	tests := []struct {
		name string
		page film.Page
		want []string
	}{
		{"unbounded", film.Page{}, []string{"A", "B", "C", "D"}},
		{"first", film.Page{Limit: ptr(2)}, []string{"A", "B"}},
		{"offset", film.Page{Offset: ptr(3)}, []string{"D"}},
		{"offset then first", film.Page{Limit: ptr(2), Offset: ptr(1)}, []string{"B", "C"}},
		{"offset past end", film.Page{Offset: ptr(10)}, []string{}},
		{"zero first", film.Page{Limit: ptr(0)}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			films, err := conn.ListFilms(context.Background(), tt.page)
			require.NoError(t, err)

			titles := make([]string, 0, len(films))
			for _, f := range films {
				titles = append(titles, f.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestMemoryFilms_CreateThenGet(t *testing.T) {
	store := NewMemoryFilms()
	conn, err := store.Acquire(context.Background())
	require.NoError(t, err)
	defer conn.Release()

	created, err := conn.CreateFilm(context.Background(), film.CreateFilm{Title: "Ran", ReleaseYear: 1985, RuntimeMins: 162})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.False(t, created.UpdatedAt.Before(created.CreatedAt))

	got, err := conn.GetFilm(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	missing, err := conn.GetFilm(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryFilms_ErrorInjection(t *testing.T) {
	store := NewMemoryFilms()
	ctx := context.Background()

	store.FailAcquire(errors.ErrStorageUnavailable)
	_, err := store.Acquire(ctx)
	assert.ErrorIs(t, err, errors.ErrStorageUnavailable)

	store.FailAcquire(nil)
	store.FailQueries(fmt.Errorf("disk on fire"))
	conn, err := store.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	_, err = conn.ListFilms(ctx, film.Page{})
	assert.EqualError(t, err, "disk on fire")
}

func TestMemoryFilms_ReleaseCounting(t *testing.T) {
	store := NewMemoryFilms()

	a, err := store.Acquire(context.Background())
	require.NoError(t, err)
	b, err := store.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.Outstanding())

	a.Release()
	a.Release()
	assert.Equal(t, 1, store.Outstanding())

	b.Release()
	assert.Equal(t, 0, store.Outstanding())
	assert.Equal(t, 2, store.Acquired())
}
