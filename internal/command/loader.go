package command

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_commands.yaml
var defaultCommandsYAML []byte

// definition is the YAML shape of one command entry.
type definition struct {
	Keys        []string `yaml:"keys"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Enabled     *bool    `yaml:"enabled"`
}

// LoadDefault builds a registry from the embedded default command set.
func LoadDefault() (*Registry, error) {
	reg := NewRegistry()
	if err := parseInto(reg, defaultCommandsYAML); err != nil {
		return nil, fmt.Errorf("command: parse built-in definitions: %w", err)
	}
	return reg, nil
}

// LoadFile builds a registry from the embedded defaults overlaid with the
// definitions in path. Entries in the file extend or override the defaults.
// Invalid entries are skipped with a warning; the remainder of the registry
// stays usable.
func LoadFile(path string) (*Registry, error) {
	reg, err := LoadDefault()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("command: read definitions %q: %w", path, err)
	}
	if err := parseInto(reg, data); err != nil {
		return nil, fmt.Errorf("command: parse definitions %q: %w", path, err)
	}
	slog.Info("command definitions loaded", "path", path, "total", reg.Len())
	return reg, nil
}

// parseInto decodes a definitions document on top of reg. The YAML document
// is walked as a node tree so the file's entry order carries into the
// registry — the prefix-match tie-break depends on load order.
func parseInto(reg *Registry, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("top level must be a mapping")
	}

	var commands *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "commands" {
			commands = root.Content[i+1]
			break
		}
	}
	if commands == nil {
		return fmt.Errorf("missing top-level \"commands\" mapping")
	}
	if commands.Kind != yaml.MappingNode {
		return fmt.Errorf("\"commands\" must be a mapping")
	}

	for i := 0; i+1 < len(commands.Content); i += 2 {
		name := commands.Content[i].Value
		var def definition
		if err := commands.Content[i+1].Decode(&def); err != nil {
			slog.Warn("skipping malformed command definition",
				"command", name,
				"error", errors.Join(ErrInvalidDefinition, err),
			)
			continue
		}

		enabled := true
		if def.Enabled != nil {
			enabled = *def.Enabled
		}
		action := Action{
			Keys:        def.Keys,
			Description: def.Description,
			Category:    def.Category,
			Enabled:     enabled,
		}
		if err := reg.Register(name, action); err != nil {
			slog.Warn("skipping invalid command definition",
				"command", name,
				"error", err,
			)
		}
	}
	return nil
}
