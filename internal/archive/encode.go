package archive

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fraudscrape/internal/model"
)

// Encoder serializes an extracted filing
type Encoder interface {
	Encode(f *model.ExtractedFiling) ([]byte, error)
	// Ext is the object key extension, without the dot
	Ext() string
}

// NewEncoder returns the encoder for name ("json" or "yaml"). Empty selects
// json.
func NewEncoder(name string) (Encoder, error) {
	switch name {
	case "", "json":
		return jsonEncoder{}, nil
	case "yaml", "yml":
		return yamlEncoder{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q (supported: json, yaml)", model.ErrInvalidConfig, name)
	}
}

type jsonEncoder struct{}

func (jsonEncoder) Encode(f *model.ExtractedFiling) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

func (jsonEncoder) Ext() string { return "json" }

type yamlEncoder struct{}

func (yamlEncoder) Encode(f *model.ExtractedFiling) ([]byte, error) {
	return yaml.Marshal(f)
}

func (yamlEncoder) Ext() string { return "yaml" }
