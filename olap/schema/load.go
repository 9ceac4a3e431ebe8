package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the encoding of config and request documents
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatOf picks a format from a file extension; anything that is not
// .yaml or .yml is read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode decodes a document into target. Unknown fields are rejected.
func Decode(data []byte, format Format, target interface{}) error {
	switch format {
	case FormatYAML:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		return decoder.Decode(target)
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		return decoder.Decode(target)
	}
}

func decodeFile(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := Decode(data, FormatOf(path), target); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads a config file. A relative logica_program path is
// resolved against the config file's directory.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if err := decodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.LogicaProgram != "" && !filepath.IsAbs(cfg.LogicaProgram) {
		cfg.LogicaProgram = filepath.Join(filepath.Dir(path), cfg.LogicaProgram)
	}
	return cfg, nil
}

// Load reads a config file and indexes it
func Load(path string) (*Schema, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg)
}

// LoadRequest reads a request file
func LoadRequest(path string) (Request, error) {
	var req Request
	if err := decodeFile(path, &req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// ParseRequest decodes a JSON request. Unlike LoadRequest it ignores
// unknown fields, since model output often carries extra keys.
func ParseRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}
