package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"metacatalog/internal/domain"
)

// JSONCodec handles JSON seeds and snapshots
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the media type of exported documents
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Parse reads a seed. Unknown fields are rejected so typos surface early.
func (c *JSONCodec) Parse(r io.Reader) (*domain.Seed, error) {
	var seed domain.Seed
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&seed); err != nil {
		if err == io.EOF {
			return &seed, nil
		}
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &seed, nil
}

// Export writes the snapshot as indented JSON
func (c *JSONCodec) Export(snapshot *domain.Snapshot, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
