// Package codec reads seed files and writes catalog snapshots in JSON or YAML.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"metacatalog/internal/domain"
)

// Importer parses a seed document
type Importer interface {
	Parse(r io.Reader) (*domain.Seed, error)
	Format() string
}

// Exporter writes a catalog snapshot
type Exporter interface {
	Export(snapshot *domain.Snapshot, w io.Writer) error
	Format() string
	ContentType() string
}

// Codec is both an Importer and an Exporter
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for "json" or "yaml" ("yml" is accepted too)
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ForPath picks the codec from a file extension; unknown extensions are YAML
func ForPath(path string) Codec {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONCodec()
	}
	return NewYAMLCodec()
}
