package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"metacatalog/internal/domain"
)

// YAMLCodec handles YAML seeds and snapshots. Documents use the same field
// names as the JSON API, so values pass through their JSON form and the
// domain types need a single set of tags.
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the media type of exported documents
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// Parse reads a seed
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Seed, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return &domain.Seed{}, nil
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		return &domain.Seed{}, nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return NewJSONCodec().Parse(bytes.NewReader(data))
}

// Export writes the snapshot as YAML. Keys come out sorted.
func (c *YAMLCodec) Export(snapshot *domain.Snapshot, w io.Writer) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}
