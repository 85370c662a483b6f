package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is the on-disk encoding of dotted namespace files.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// Extensions lists the file extensions recognized for each format.
var Extensions = map[Format][]string{
	JSON: {".json"},
	YAML: {".yaml", ".yml"},
	TOML: {".toml"},
}

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", JSON:
		return JSON, nil
	case YAML, "yml":
		return YAML, nil
	case TOML:
		return TOML, nil
	}
	return "", fmt.Errorf("unknown store format %q (want json, yaml or toml)", s)
}

// formatOf maps a file extension back to its format.
func formatOf(ext string) (Format, bool) {
	for f, exts := range Extensions {
		for _, e := range exts {
			if e == ext {
				return f, true
			}
		}
	}
	return "", false
}

// Decode parses file data of the given format into flat entries. Dotted
// namespaces are flattened; flat namespaces keep top-level keys verbatim.
func Decode(data []byte, format Format, kind Kind) (map[string]string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}

	var tree map[string]any
	switch format {
	case YAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		tree = yamlTree(&doc)
	case TOML:
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	}

	if kind == Dotted {
		return Flatten(tree), nil
	}
	out := make(map[string]string, len(tree))
	for k, v := range tree {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		case map[string]any:
			// nested groups inside a flat file are folded into dotted keys
			for sub, s := range Flatten(val) {
				out[k+"."+sub] = s
			}
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

// yamlTree converts a YAML document into a plain tree. Only mapping nodes
// and scalars are kept; sequences and aliases carry no translations.
func yamlTree(doc *yaml.Node) map[string]any {
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	return yamlMapping(node)
}

func yamlMapping(node *yaml.Node) map[string]any {
	out := make(map[string]any)
	if node.Kind != yaml.MappingNode {
		return out
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		switch val.Kind {
		case yaml.MappingNode:
			out[key] = yamlMapping(val)
		case yaml.ScalarNode:
			if val.Tag == "!!null" {
				out[key] = nil
				continue
			}
			out[key] = val.Value
		}
	}
	return out
}

// Encode renders flat entries in the given format with keys sorted.
// Dotted namespaces are written as nested trees.
func Encode(entries map[string]string, format Format, kind Kind) ([]byte, error) {
	var tree map[string]any
	if kind == Dotted {
		tree = Unflatten(entries)
	} else {
		tree = make(map[string]any, len(entries))
		for k, v := range entries {
			tree[k] = v
		}
	}

	switch format {
	case YAML:
		data, err := yaml.Marshal(yamlNode(tree))
		if err != nil {
			return nil, fmt.Errorf("encoding YAML: %w", err)
		}
		return data, nil
	case TOML:
		data, err := toml.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("encoding TOML: %w", err)
		}
		return data, nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		if err := enc.Encode(tree); err != nil {
			return nil, fmt.Errorf("encoding JSON: %w", err)
		}
		return buf.Bytes(), nil
	}
}

// yamlNode builds a mapping node with sorted keys and double-quoted
// string values so that values such as "yes" or "null" stay strings.
func yamlNode(tree map[string]any) *yaml.Node {
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
		var valNode *yaml.Node
		switch v := tree[k].(type) {
		case map[string]any:
			valNode = yamlNode(v)
		default:
			valNode = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(v), Style: yaml.DoubleQuotedStyle}
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node
}
