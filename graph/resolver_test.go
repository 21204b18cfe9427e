package graph

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filmgraph/errors"
	"github.com/c360/filmgraph/gateway/graphql"
	"github.com/c360/filmgraph/metric"
	"github.com/c360/filmgraph/testutil"
	"github.com/c360/filmgraph/tmdb"
)

type harness struct {
	films   *testutil.MemoryFilms
	handler http.Handler
	metrics *metric.Metrics
}

func newHarness(t *testing.T, movies MovieSearcher, opts ...graphql.SchemaOption) *harness {
	t.Helper()
	m := metric.NewMetrics()
	films := testutil.NewMemoryFilms()

	schema, err := NewSchema(NewResolver(movies, graphql.NewRecorder(slog.Default(), m)), opts...)
	require.NoError(t, err)

	return &harness{
		films:   films,
		handler: graphql.NewHandler(schema, ContextFunc(films), slog.Default(), m),
		metrics: m,
	}
}

func (h *harness) post(t *testing.T, query string) (int, graphql.Envelope) {
	t.Helper()
	body, err := json.Marshal(graphql.Request{Query: query})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return h.do(t, req)
}

func (h *harness) get(t *testing.T, query string, vars string) (int, graphql.Envelope) {
	t.Helper()
	q := url.Values{}
	q.Set("query", query)
	if vars != "" {
		q.Set("variables", vars)
	}
	return h.do(t, httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil))
}

func (h *harness) do(t *testing.T, req *http.Request) (int, graphql.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env graphql.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	assert.Equal(t, rec.Code, env.Status)
	assert.Zero(t, h.films.Outstanding(), "connections must be released")
	return rec.Code, env
}

func TestNewSchema_BindsEveryField(t *testing.T) {
	_, err := NewSchema(NewResolver(nil, nil))
	require.NoError(t, err)
}

func TestGetFilms(t *testing.T) {
	h := newHarness(t, nil)
	h.films.SeedTitles("Alien", "Brazil", "Casablanca")

	status, env := h.post(t, `{ getFilms { title releaseYear } }`)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, env.Errors)
	assert.JSONEq(t, `{"getFilms":[
		{"title":"Alien","releaseYear":2000},
		{"title":"Brazil","releaseYear":2001},
		{"title":"Casablanca","releaseYear":2002}
	]}`, string(env.Data))
	assert.Equal(t, 1, h.films.Acquired())
}

func TestGetFilms_Pagination(t *testing.T) {
	h := newHarness(t, nil)
	h.films.SeedTitles("Alien", "Brazil", "Casablanca")

	tests := []struct {
		query string
		want  string
	}{
		{`{ getFilms(first: 2) { title } }`, `{"getFilms":[{"title":"Alien"},{"title":"Brazil"}]}`},
		{`{ getFilms(offset: 1) { title } }`, `{"getFilms":[{"title":"Brazil"},{"title":"Casablanca"}]}`},
		{`{ getFilms(first: 1, offset: 2) { title } }`, `{"getFilms":[{"title":"Casablanca"}]}`},
		{`{ getFilms(offset: 5) { title } }`, `{"getFilms":[]}`},
		{`{ getFilms(first: 0) { title } }`, `{"getFilms":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			status, env := h.post(t, tt.query)
			assert.Equal(t, http.StatusOK, status)
			assert.Empty(t, env.Errors)
			assert.JSONEq(t, tt.want, string(env.Data))
		})
	}
}

func TestGetFilms_NegativeBounds(t *testing.T) {
	h := newHarness(t, nil)
	h.films.SeedTitles("Alien")

	for _, query := range []string{`{ getFilms(first: -1) { id } }`, `{ getFilms(offset: -3) { id } }`} {
		status, env := h.post(t, query)
		assert.Equal(t, http.StatusOK, status, query)
		assert.Equal(t, "null", string(env.Data))
		require.Len(t, env.Errors, 1)
		assert.Equal(t, graphql.CodeBadUserInput, env.Errors[0].Extensions["code"])
		assert.Equal(t, "getFilms", env.Errors[0].Path.String())
	}
}

func TestGetFilm(t *testing.T) {
	h := newHarness(t, nil)
	seeded := h.films.SeedTitles("Alien", "Brazil")

	status, env := h.get(t, `query($id: ID!) { getFilm(id: $id) { id title createdAt updatedAt summary runtimeMins } }`,
		fmt.Sprintf(`{"id":%q}`, seeded[1].ID.String()))
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, env.Errors)

	var data struct {
		GetFilm struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			CreatedAt   string `json:"createdAt"`
			UpdatedAt   string `json:"updatedAt"`
			Summary     string `json:"summary"`
			RuntimeMins int32  `json:"runtimeMins"`
		} `json:"getFilm"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, seeded[1].ID.String(), data.GetFilm.ID)
	assert.Equal(t, "Brazil", data.GetFilm.Title)
	assert.Equal(t, int32(90), data.GetFilm.RuntimeMins)

	created, err := time.Parse(time.RFC3339Nano, data.GetFilm.CreatedAt)
	require.NoError(t, err)
	assert.True(t, created.Equal(seeded[1].CreatedAt))
}

func TestGetFilm_Absent(t *testing.T) {
	h := newHarness(t, nil)
	h.films.SeedTitles("Alien")

	status, env := h.post(t, fmt.Sprintf(`{ getFilm(id: %q) { id } }`, uuid.New().String()))
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, env.Errors)
	assert.JSONEq(t, `{"getFilm":null}`, string(env.Data))
}

func TestGetFilm_MalformedID(t *testing.T) {
	h := newHarness(t, nil)

	status, env := h.get(t, `{ getFilm(id: "not-a-uuid") { id } }`, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "null", string(env.Data))
	require.Len(t, env.Errors, 1)
	assert.Equal(t, graphql.CodeBadUserInput, env.Errors[0].Extensions["code"])
	assert.Zero(t, h.films.Acquired(), "storage is not touched for rejected input")

	status, env = h.get(t, `query($id: ID!) { getFilm(id: $id) { id } }`, `{"id":"12345"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, graphql.CodeBadUserInput, env.Errors[0].Extensions["code"])
}

func TestStorageFailures(t *testing.T) {
	h := newHarness(t, nil)
	h.films.SeedTitles("Alien")
	query := fmt.Sprintf(`{ getFilm(id: %q) { title } }`, uuid.New().String())

	h.films.FailQueries(errors.WrapTransient(errors.ErrStorageQuery, "Pool", "GetFilm", "query film"))
	status, env := h.post(t, query)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"getFilm":null}`, string(env.Data))
	require.Len(t, env.Errors, 1)
	assert.Equal(t, graphql.CodeStorage, env.Errors[0].Extensions["code"])
	assert.Equal(t, "getFilm", env.Errors[0].Path.String())
	h.films.FailQueries(nil)

	h.films.FailAcquire(errors.WrapTransient(errors.ErrStorageUnavailable, "Pool", "Acquire", "acquire connection"))
	status, env = h.post(t, query)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, graphql.CodeStorage, env.Errors[0].Extensions["code"])
}

func TestCreateFilm_PartialSuccess(t *testing.T) {
	h := newHarness(t, nil)

	status, env := h.post(t, `mutation {
		kept: createFilm(input: {title: "Metropolis", releaseYear: 1927, summary: "A city of the future.", runtimeMins: 153}) { title releaseYear }
		rejected: createFilm(input: {title: "  ", releaseYear: 2020, summary: "", runtimeMins: 1}) { title }
	}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"kept":{"title":"Metropolis","releaseYear":1927},"rejected":null}`, string(env.Data))
	require.Len(t, env.Errors, 1)
	assert.Equal(t, graphql.CodeBadUserInput, env.Errors[0].Extensions["code"])
	assert.Equal(t, "rejected", env.Errors[0].Path.String())

	stored := h.films.Films()
	require.Len(t, stored, 1)
	assert.Equal(t, "Metropolis", stored[0].Title)
	assert.Equal(t, int32(153), stored[0].RuntimeMins)
}

func TestCreateFilm_MissingInputField(t *testing.T) {
	h := newHarness(t, nil)

	status, env := h.post(t, `mutation { createFilm(input: {title: "Nosferatu", releaseYear: 1922, summary: ""}) { id } }`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, graphql.CodeValidationFailed, env.Errors[0].Extensions["code"])
	assert.Empty(t, h.films.Films())
}

func TestSearchMovies(t *testing.T) {
	var gotQuery url.Values
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"page": 1, "total_pages": 1, "total_results": 2,
			"results": [
				{"id": 603, "title": "The Matrix", "original_title": "The Matrix", "original_language": "en",
				 "overview": "A hacker learns the truth.", "release_date": "1999-03-30", "genre_ids": [28, 878],
				 "poster_path": "/m.jpg", "backdrop_path": null, "popularity": 83.5, "adult": false},
				{"id": 604, "title": "Untitled", "original_title": "Untitled", "original_language": "xx",
				 "overview": null, "release_date": "", "popularity": 0.5, "adult": false}
			]
		}`))
	}))
	defer upstream.Close()

	client := tmdb.NewClient("secret", tmdb.WithBaseURL(upstream.URL))
	h := newHarness(t, client)

	status, env := h.post(t, `{ searchMovies(title: "matrix") {
		page totalPages totalResults
		results { id title originalLanguage overview releaseDate genreIds posterPath backdropPath popularity adult }
	} }`)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, env.Errors)
	assert.Equal(t, "matrix", gotQuery.Get("query"))

	type movie struct {
		ID               int32    `json:"id"`
		Title            string   `json:"title"`
		OriginalLanguage string   `json:"originalLanguage"`
		Overview         *string  `json:"overview"`
		ReleaseDate      *string  `json:"releaseDate"`
		GenreIDs         []int32  `json:"genreIds"`
		PosterPath       *string  `json:"posterPath"`
		BackdropPath     *string  `json:"backdropPath"`
		Popularity       float64  `json:"popularity"`
		Adult            bool     `json:"adult"`
	}
	var data struct {
		SearchMovies struct {
			Page         int32   `json:"page"`
			TotalPages   int32   `json:"totalPages"`
			TotalResults int32   `json:"totalResults"`
			Results      []movie `json:"results"`
		} `json:"searchMovies"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	str := func(s string) *string { return &s }
	want := []movie{
		{
			ID: 603, Title: "The Matrix", OriginalLanguage: "en",
			Overview: str("A hacker learns the truth."), ReleaseDate: str("1999-03-30"),
			GenreIDs: []int32{28, 878}, PosterPath: str("/m.jpg"), Popularity: 83.5,
		},
		{ID: 604, Title: "Untitled", OriginalLanguage: "xx", GenreIDs: []int32{}, Popularity: 0.5},
	}
	if diff := cmp.Diff(want, data.SearchMovies.Results); diff != "" {
		t.Errorf("search results mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int32(2), data.SearchMovies.TotalResults)
	assert.Zero(t, h.films.Acquired(), "search does not touch storage")
}

func TestSearchMovies_Unavailable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	tests := []struct {
		name   string
		movies MovieSearcher
	}{
		{name: "no client", movies: nil},
		{name: "no api key", movies: tmdb.NewClient("")},
		{name: "upstream status", movies: tmdb.NewClient("secret", tmdb.WithBaseURL(upstream.URL))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.movies)
			h.films.SeedTitles("Alien")

			status, env := h.post(t, `{ getFilms { title } searchMovies(title: "x") { page } }`)
			assert.Equal(t, http.StatusOK, status)
			require.Len(t, env.Errors, 1)
			assert.Equal(t, graphql.CodeUpstream, env.Errors[0].Extensions["code"])
			assert.Equal(t, "searchMovies", env.Errors[0].Path.String())
			assert.NotContains(t, env.Errors[0].Message, "secret")
		})
	}
}

func TestResolverMetrics(t *testing.T) {
	h := newHarness(t, nil)
	h.films.SeedTitles("Alien")

	h.post(t, `{ getFilms { title } }`)
	h.post(t, `{ getFilms(first: -1) { title } }`)

	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.ResolverCalls.WithLabelValues("getFilms", "success")))
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.ResolverCalls.WithLabelValues("getFilms", "error")))
}

type filmJSON struct {
	ID          string `json:"id"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	Title       string `json:"title"`
	ReleaseYear int32  `json:"releaseYear"`
	Summary     string `json:"summary"`
	RuntimeMins int32  `json:"runtimeMins"`
}

func TestCreateFilm_ReadBack(t *testing.T) {
	h := newHarness(t, nil)
	const fields = `id createdAt updatedAt title releaseYear summary runtimeMins`

	status, env := h.post(t, `mutation {
		createFilm(input: {title: "Metropolis", releaseYear: 1927, summary: "A city of the future.", runtimeMins: 153}) { `+fields+` }
	}`)
	assert.Equal(t, http.StatusOK, status)
	require.Empty(t, env.Errors)

	var created struct {
		CreateFilm filmJSON `json:"createFilm"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	_, err := uuid.Parse(created.CreateFilm.ID)
	require.NoError(t, err)

	status, env = h.get(t, `query($id: ID!) { getFilm(id: $id) { `+fields+` } }`,
		fmt.Sprintf(`{"id":%q}`, created.CreateFilm.ID))
	assert.Equal(t, http.StatusOK, status)
	require.Empty(t, env.Errors)

	var read struct {
		GetFilm *filmJSON `json:"getFilm"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &read))
	require.NotNil(t, read.GetFilm)
	assert.Equal(t, created.CreateFilm, *read.GetFilm)
	assert.Equal(t, "Metropolis", read.GetFilm.Title)
	assert.Equal(t, int32(1927), read.GetFilm.ReleaseYear)
	assert.Equal(t, "A city of the future.", read.GetFilm.Summary)
	assert.Equal(t, int32(153), read.GetFilm.RuntimeMins)

	createdAt, err := time.Parse(time.RFC3339Nano, read.GetFilm.CreatedAt)
	require.NoError(t, err)
	updatedAt, err := time.Parse(time.RFC3339Nano, read.GetFilm.UpdatedAt)
	require.NoError(t, err)
	assert.False(t, updatedAt.Before(createdAt), "createdAt %s after updatedAt %s", createdAt, updatedAt)
}

func TestIntrospectionQuery(t *testing.T) {
	h := newHarness(t, nil, graphql.WithMaxDepth(15))

	status, env := h.post(t, introspection.Query)
	assert.Equal(t, http.StatusOK, status)
	require.Empty(t, env.Errors)

	var data struct {
		Schema struct {
			Types []struct {
				Name   string `json:"name"`
				Fields []struct {
					Name string            `json:"name"`
					Args []json.RawMessage `json:"args"`
				} `json:"fields"`
			} `json:"types"`
		} `json:"__schema"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	args := map[string][]json.RawMessage{}
	for _, typ := range data.Schema.Types {
		for _, f := range typ.Fields {
			require.NotNil(t, f.Args, "%s.%s", typ.Name, f.Name)
			args[typ.Name+"."+f.Name] = f.Args
		}
	}
	assert.Empty(t, args["Film.title"])
	assert.Len(t, args["Query.getFilms"], 2)
	assert.Len(t, args["Mutation.createFilm"], 1)
	assert.Zero(t, h.films.Acquired(), "introspection does not touch storage")
}
