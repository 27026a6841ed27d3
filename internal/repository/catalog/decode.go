package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/mixdex/internal/domain/item"
)

// Supported catalog file extensions.
const (
	extJSON = ".json"
	extYAML = ".yaml"
	extYML  = ".yml"
	extTOML = ".toml"
)

// supported reports whether path has a catalog file extension.
func supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extJSON, extYAML, extYML, extTOML:
		return true
	}
	return false
}

// decode parses a catalog file holding one item or a list of items.
func decode(path string, data []byte) ([]item.Item, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case extJSON:
		return decodeJSON(data)
	case extYAML, extYML:
		return decodeYAML(data)
	case extTOML:
		return decodeTOML(data)
	}
	return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
}

func decodeJSON(data []byte) ([]item.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	if trimmed[0] == '[' {
		var items []item.Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode json list: %w", err)
		}
		return items, nil
	}
	var it item.Item
	if err := json.Unmarshal(trimmed, &it); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return []item.Item{it}, nil
}

func decodeYAML(data []byte) ([]item.Item, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var items []item.Item
		if err := root.Decode(&items); err != nil {
			return nil, fmt.Errorf("decode yaml list: %w", err)
		}
		return items, nil
	}
	var it item.Item
	if err := root.Decode(&it); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return []item.Item{it}, nil
}

// tomlFile is either a top-level item or an [[items]] array of tables.
type tomlFile struct {
	Items []item.Item `toml:"items"`
}

func decodeTOML(data []byte) ([]item.Item, error) {
	var f tomlFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	if md.IsDefined("items") {
		return f.Items, nil
	}

	var it item.Item
	if _, err := toml.Decode(string(data), &it); err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	return []item.Item{it}, nil
}
