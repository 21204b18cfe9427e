// Package errors provides standardized error handling for filmgraph.
//
// # Overview
//
// The package implements a three-class error classification that maps directly
// onto how the service reports failures to clients and operators:
//
//   - Invalid: malformed requests, malformed identifiers, bad input values.
//     Surfaced to GraphQL clients as BAD_USER_INPUT; at the transport layer
//     these become HTTP 400.
//   - Transient: failures of a backing system, such as connection acquisition,
//     query execution, or the upstream metadata API. Surfaced as field-level
//     GraphQL errors.
//   - Fatal: missing or invalid startup configuration. The process does not start.
//
// Nothing in filmgraph retries automatically; the classes decide how an error
// is reported, not whether it is retried.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "FilmStore", "ListFilms", "query films")
//	errors.WrapInvalid(err, "Resolver", "getFilm", "parse id")
//	errors.WrapFatal(err, "Config", "Validate", "database.url")
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Integration with errors.As/Is
//
// ClassifiedError supports standard library error inspection, and the package
// re-exports Is, As and New so callers rarely need both imports:
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    logger.Warn("operation failed", "component", ce.Component, "class", ce.Class)
//	}
//
//	if errors.Is(err, errors.ErrInvalidID) {
//	    // malformed identifier, distinct from "not found"
//	}
package errors
