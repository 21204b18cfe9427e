// Package tmdb is a minimal client for The Movie Database search API.
//
// The client issues one GET per call, decodes the JSON body and returns any
// failure (transport, non-2xx status, decode) as an error wrapping
// errors.ErrUpstream. It does not retry and does not follow pagination.
//
// The provider sends release_date as "" for movies without a date. Both "" and
// null decode to an absent OptionalDate; any other value must be YYYY-MM-DD or
// decoding fails.
package tmdb
