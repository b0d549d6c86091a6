package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/liamcoop/pdc/metadata"
)

// LoadItem reads item metadata from a YAML or JSON file. Items without an id
// are named after the file.
func LoadItem(path string) (*metadata.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read item: %w", err)
	}

	var item metadata.Item
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&item)
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&item)
	default:
		return nil, fmt.Errorf("unsupported item format %q (use .yaml, .yml or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse item: %w", path, err)
	}

	if item.ID == "" {
		item.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &item, nil
}
