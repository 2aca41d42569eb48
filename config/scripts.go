package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aimanaev/pgsqlThreadsExecute/executor"
)

// scriptEntry is one entry under the top-level scripts mapping:
//
//	scripts:
//	  "check connection":
//	    sql: |
//	      SELECT 1 AS value
//	    name: "check connection"   # optional, defaults to the key
//	    params: [true, 42]         # optional positional bind values
//	    timeout: 30                # optional per-statement seconds
type scriptEntry struct {
	SQL     string        `yaml:"sql"`
	Name    string        `yaml:"name"`
	Params  []interface{} `yaml:"params"`
	Timeout int           `yaml:"timeout"`
}

// LoadScripts parses a scripts file into an ordered batch. Document order is
// preserved (transaction mode executes in file order), which is why this
// walks the YAML node tree instead of unmarshalling into a Go map.
func LoadScripts(path string) (*executor.Batch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scripts file: %w", err)
	}
	return ParseScripts(raw)
}

// ParseScripts parses scripts YAML content into an ordered batch. A missing
// top-level scripts key is a configuration error; an empty scripts mapping
// yields an empty batch and the caller decides whether that is fatal.
func ParseScripts(raw []byte) (*executor.Batch, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse scripts file: %w", err)
	}

	root := documentRoot(&doc)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, &executor.ConfigError{Message: "scripts file must be a YAML mapping"}
	}

	scripts := mappingValue(root, "scripts")
	if scripts == nil {
		return nil, &executor.ConfigError{Message: "scripts file must contain a top-level 'scripts' key"}
	}
	if scripts.Kind != yaml.MappingNode {
		return nil, &executor.ConfigError{Message: "'scripts' must be a mapping of named entries"}
	}

	batch := executor.NewBatch()
	for i := 0; i+1 < len(scripts.Content); i += 2 {
		key := scripts.Content[i].Value
		var entry scriptEntry
		if err := scripts.Content[i+1].Decode(&entry); err != nil {
			return nil, fmt.Errorf("script %q: %w", key, err)
		}

		name := entry.Name
		if name == "" {
			name = key
		}

		err := batch.Add(executor.StatementSpec{
			Name:           name,
			SQL:            entry.SQL,
			Params:         entry.Params,
			TimeoutSeconds: entry.Timeout,
		})
		if err != nil {
			return nil, err
		}
	}
	return batch, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

// mappingValue finds the value node for a key in a mapping node.
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}
