// Package graphql executes GraphQL requests against an SDL schema bound to a
// table of field resolvers, and serves them over HTTP.
//
// # Schema
//
// NewSchema loads SDL with gqlparser and checks it against a Resolvers table
// keyed by object type and field name. Construction fails when an object field
// has no resolver, when a resolver names a field the schema does not declare,
// or when a custom scalar has no ScalarCodec. A compiled Schema is immutable
// and safe for concurrent use.
//
// The application context type C is chosen by the caller. Every resolver
// receives the same C value for the duration of one request.
//
// # Execution
//
// Execute runs these phases in order:
//
//  1. reject an empty query
//  2. parse, then validate against the schema
//  3. select the operation, by name when the document has several
//  4. coerce variables
//  5. check selection depth and coerce every field argument in the operation
//  6. execute the selection sets serially
//
// A failure in phases 1 to 5 produces a Result with errors, no data and
// OK() false. Errors raised by resolvers in phase 6 are field errors: they are
// added to the response with a path and a code, the field becomes null, and
// null propagates up to the nearest nullable parent.
//
// Errors carry extensions.code. Resolver errors are classified with the
// errors package: invalid input is BAD_USER_INPUT, storage sentinels are
// STORAGE_ERROR, upstream sentinels are UPSTREAM_ERROR and anything else is
// INTERNAL_ERROR.
//
// # HTTP
//
// Handler decodes GET query parameters or a JSON POST body, builds the
// application context, executes, and writes an Envelope: the GraphQL response
// plus a status field. The status is 200 when the operation executed and 400
// otherwise. Panics are recovered into a 400 envelope.
//
// Server mounts the handler on the configured path together with /health and,
// optionally, the GraphQL Playground on "/".
//
// Configuration example:
//
//	{
//	  "bind_address": ":8080",
//	  "path": "/graphql",
//	  "enable_playground": true,
//	  "enable_cors": true,
//	  "cors_origins": ["https://app.example.com"],
//	  "timeout": "30s",
//	  "max_query_depth": 15
//	}
package graphql
