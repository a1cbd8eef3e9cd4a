package bulk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ManifestFilename is the optional per-directory metadata file.
const ManifestFilename = "scriptpad.json"

// manifestSchema validates a manifest before it is applied, so a typo in a
// field name fails loudly instead of being silently dropped.
const manifestSchema = `{
	"type": "object",
	"properties": {
		"scripts": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"description": {"type": "string"}
				},
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}`

// ManifestEntry overrides the metadata derived from a file's name.
type ManifestEntry struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Manifest maps slash-separated relative paths to metadata overrides.
type Manifest struct {
	Scripts map[string]ManifestEntry `json:"scripts"`
}

// LoadManifest reads and validates the manifest at the root of a push
// directory. A missing manifest yields an empty one.
func LoadManifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestFilename)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Manifest{Scripts: map[string]ManifestEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	if err := validateManifest(data); err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Scripts == nil {
		m.Scripts = map[string]ManifestEntry{}
	}
	return &m, nil
}

func validateManifest(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(manifestSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid manifest %s: %s", ManifestFilename, strings.Join(msgs, "; "))
	}

	return nil
}
