package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/filmgraph/errors"
)

const (
	maxLayerSize   = 1 << 20  // JSON config layer
	maxEnvFileSize = 64 << 10 // dotenv file
	maxLayerDepth  = 32
	maxEnvValueLen = 4096
	maxPathLen     = 4096
)

// checkLayerPath accepts .json paths only. Relative paths must stay inside
// the working directory.
func checkLayerPath(path string) error {
	if path == "" {
		return errors.New("empty config path")
	}
	if len(path) > maxPathLen {
		return fmt.Errorf("config path too long: %d > %d", len(path), maxPathLen)
	}
	if filepath.Ext(path) != ".json" {
		return fmt.Errorf("config layer %s is not a .json file", path)
	}
	if filepath.IsAbs(path) {
		return nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cannot get working directory: %w", err)
	}
	rel, err := filepath.Rel(cwd, filepath.Join(cwd, path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("config layer %s resolves outside the working directory", path)
	}
	return nil
}

// statRegular fails unless path is a regular file of at most limit bytes.
// A missing file reports an error matching fs.ErrNotExist.
func statRegular(path string, limit int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > limit {
		return fmt.Errorf("%s is too large: %d bytes > %d", path, info.Size(), limit)
	}
	return nil
}

// readLayer reads one JSON config layer. The document must be an object.
func readLayer(path string) (map[string]any, error) {
	if err := checkLayerPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}
	if err := statRegular(path, maxLayerSize); err != nil {
		return nil, fmt.Errorf("cannot read config layer: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config layer: %w", err)
	}
	if err := checkJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}

	var layer map[string]any
	if err := json.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("config layer %s is not a JSON object: %w", path, err)
	}
	return layer, nil
}

// checkJSONDepth walks the document token by token and fails once objects
// and arrays nest deeper than maxLayerDepth.
func checkJSONDepth(data []byte) error {
	d := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > maxLayerDepth {
				return fmt.Errorf("JSON nesting too deep: %d > %d", depth, maxLayerDepth)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}

// checkEnvValue rejects override values that cannot be a URL, key or address.
func checkEnvValue(key, value string) error {
	if len(value) > maxEnvValueLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvValueLen)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("null byte in environment variable %s", key)
	}
	return nil
}
