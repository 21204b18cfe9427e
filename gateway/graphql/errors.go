package graphql

import (
	"context"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/c360/filmgraph/errors"
)

// Error codes placed in extensions.code.
const (
	CodeBadUserInput     = "BAD_USER_INPUT"
	CodeValidationFailed = "GRAPHQL_VALIDATION_FAILED"
	CodeParseFailed      = "GRAPHQL_PARSE_FAILED"
	CodeStorage          = "STORAGE_ERROR"
	CodeUpstream         = "UPSTREAM_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"
	CodeCancelled        = "CANCELLED"
)

// ErrorCode classifies err into one of the extension codes.
func ErrorCode(err error) string {
	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		if code, ok := gqlErr.Extensions["code"].(string); ok {
			return code
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return CodeCancelled
	case errors.Is(err, errors.ErrStorageUnavailable),
		errors.Is(err, errors.ErrStorageQuery):
		return CodeStorage
	case errors.Is(err, errors.ErrUpstream):
		return CodeUpstream
	case errors.IsInvalid(err):
		return CodeBadUserInput
	}
	return CodeInternal
}

// wrapError converts a resolver or adapter error into a GraphQL error with
// a code, keeping any code the error already carries.
func wrapError(err error, path ast.Path, pos *ast.Position) *gqlerror.Error {
	if err == nil {
		return nil
	}

	var out *gqlerror.Error
	var existing *gqlerror.Error
	if errors.As(err, &existing) {
		copied := *existing
		out = &copied
	} else {
		msg := err.Error()
		if errors.IsFatal(err) && ErrorCode(err) == CodeInternal {
			msg = "Internal server error"
		}
		out = &gqlerror.Error{Message: msg}
	}

	if out.Path == nil && path != nil {
		out.Path = path
	}
	if len(out.Locations) == 0 && pos != nil {
		out.Locations = []gqlerror.Location{{Line: pos.Line, Column: pos.Column}}
	}
	out.Extensions = withCode(out.Extensions, ErrorCode(err))
	return out
}

func withCode(ext map[string]any, code string) map[string]any {
	if _, ok := ext["code"]; ok {
		return ext
	}
	out := make(map[string]any, len(ext)+1)
	for k, v := range ext {
		out[k] = v
	}
	out["code"] = code
	return out
}

// newError builds a coded error at an optional source position.
func newError(code string, pos *ast.Position, format string, args ...any) *gqlerror.Error {
	err := &gqlerror.Error{
		Message:    fmt.Sprintf(format, args...),
		Extensions: map[string]any{"code": code},
	}
	if pos != nil {
		err.Locations = []gqlerror.Location{{Line: pos.Line, Column: pos.Column}}
	}
	return err
}

// errorList normalizes the error shapes gqlparser returns and stamps code on
// entries without one.
func errorList(err error, code string) gqlerror.List {
	if err == nil {
		return nil
	}

	var list gqlerror.List
	var single *gqlerror.Error
	switch {
	case errors.As(err, &list):
	case errors.As(err, &single):
		list = gqlerror.List{single}
	default:
		list = gqlerror.List{{Message: err.Error()}}
	}

	out := make(gqlerror.List, 0, len(list))
	for _, e := range list {
		if e == nil {
			continue
		}
		copied := *e
		copied.Extensions = withCode(copied.Extensions, code)
		out = append(out, &copied)
	}
	return out
}
