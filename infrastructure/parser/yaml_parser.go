// Package parser reads configuration files.
package parser

import (
	"fmt"
	"os"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/domain/ports"
	"gopkg.in/yaml.v3"
)

// YamlConfigParser implements ports.ConfigParser for YAML.
type YamlConfigParser struct{}

// NewYamlConfigParser creates a new YamlConfigParser.
func NewYamlConfigParser() ports.ConfigParser {
	return &YamlConfigParser{}
}

// Parse unmarshals YAML bytes over the default configuration. Keys absent
// from data keep their defaults; durations may be written as "30s".
func (p *YamlConfigParser) Parse(data []byte) (*entities.Config, error) {
	cfg := entities.DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ParseFile reads and parses a YAML config file.
func ParseFile(parser ports.ConfigParser, path string) (*entities.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parser.Parse(data)
}
