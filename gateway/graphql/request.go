package graphql

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/c360/filmgraph/errors"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

type gzipReadCloser struct {
	*gzip.Reader
	body io.Closer
}

func (g gzipReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		return err
	}
	return g.body.Close()
}

// DecodeRequest reads a GraphQL request from GET query parameters or a JSON
// POST body. Numbers in variables are decoded without loss of precision.
func DecodeRequest(r *http.Request) (*Request, error) {
	req := &Request{}

	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		req.Query = query.Get("query")
		req.OperationName = query.Get("operationName")
		if raw := query.Get("variables"); raw != "" {
			d := json.NewDecoder(strings.NewReader(raw))
			d.UseNumber()
			if err := decodeOne(d, &req.Variables); err != nil {
				return nil, decodeError(fmt.Errorf("variables are not a JSON object: %w", err))
			}
		}

	case http.MethodPost:
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			return nil, decodeError(fmt.Errorf("unable to parse media type: %w", err))
		}
		if mediaType != "application/json" {
			return nil, decodeError(fmt.Errorf("unsupported content type %q, use application/json", mediaType))
		}

		body := r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			zr, err := gzip.NewReader(body)
			if err != nil {
				return nil, decodeError(fmt.Errorf("unable to read gzip body: %w", err))
			}
			body = gzipReadCloser{Reader: zr, body: body}
			defer body.Close()
		}

		d := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
		d.UseNumber()
		if err := decodeOne(d, req); err != nil {
			return nil, decodeError(fmt.Errorf("not a valid GraphQL request body: %w", err))
		}

	default:
		return nil, decodeError(fmt.Errorf("unsupported method %s, use GET or POST", r.Method))
	}

	return req, nil
}

// decodeOne decodes a single JSON value and rejects anything after it other
// than whitespace.
func decodeOne(d *json.Decoder, v any) error {
	if err := d.Decode(v); err != nil {
		return err
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after the JSON value")
	}
	return nil
}

func decodeError(err error) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidRequest, err), "Handler", "DecodeRequest", "decode request")
}
