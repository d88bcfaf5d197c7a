package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"ribosome.dev/internal/compiler"
)

const (
	MaxTargetLen    = 40
	MaxObjectiveLen = 16

	DefaultExtension = ".mcfunction"
)

// File is the on-disk configuration (ribosome.yaml). CLI flags are applied
// on top of it by the caller.
type File struct {
	Void             bool   `yaml:"ignore_air" json:"ignore_air"`
	Target           string `yaml:"target" json:"target"`
	Objective        string `yaml:"objective" json:"objective"`
	Mode             string `yaml:"mode" json:"mode"`
	IgnoreNBT        bool   `yaml:"ignore_nbt" json:"ignore_nbt"`
	IgnoreBlockState bool   `yaml:"ignore_block_state" json:"ignore_block_state"`

	OutputExtension string `yaml:"output_extension" json:"output_extension"`
	TrailingNewline bool   `yaml:"trailing_newline" json:"trailing_newline"`

	// Optional build index (sqlite) and compile report directory.
	IndexDB   string `yaml:"index_db,omitempty" json:"index_db,omitempty"`
	ReportDir string `yaml:"report_dir,omitempty" json:"report_dir,omitempty"`
}

//go:embed config.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("config.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

func Defaults() File {
	return File{
		Target:          compiler.DefaultTarget,
		Objective:       compiler.DefaultObjective,
		Mode:            compiler.Corner.String(),
		OutputExtension: DefaultExtension,
	}
}

// Load reads path over the defaults and normalizes the result. An empty path
// yields the defaults. Load does not validate: the caller applies its own
// overrides first and then calls Validate once.
func Load(path string) (File, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *File) Normalize() {
	if c == nil {
		return
	}
	c.Target = strings.TrimSpace(c.Target)
	c.Objective = strings.TrimSpace(c.Objective)
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.OutputExtension = strings.TrimSpace(c.OutputExtension)
	c.IndexDB = strings.TrimSpace(c.IndexDB)
	c.ReportDir = strings.TrimSpace(c.ReportDir)

	if c.Target == "" {
		c.Target = compiler.DefaultTarget
	}
	if c.Objective == "" {
		c.Objective = compiler.DefaultObjective
	}
	if c.Mode == "" {
		c.Mode = compiler.Corner.String()
	}
	if c.OutputExtension == "" {
		c.OutputExtension = DefaultExtension
	}
	if !strings.HasPrefix(c.OutputExtension, ".") {
		c.OutputExtension = "." + c.OutputExtension
	}
}

func (c File) Validate() error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("config: schema: %w", err)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	// Limits are in bytes, which the schema's maxLength (code points) does not cover.
	if len(c.Target) > MaxTargetLen {
		return fmt.Errorf("config: target name is too long. Max is %d but got %d", MaxTargetLen, len(c.Target))
	}
	if len(c.Objective) > MaxObjectiveLen {
		return fmt.Errorf("config: objective name is too long. Max is %d but got %d", MaxObjectiveLen, len(c.Objective))
	}
	return nil
}

// Compiler converts a validated file into compiler options.
func (c File) Compiler() (compiler.Config, error) {
	mode, err := compiler.ParseMode(c.Mode)
	if err != nil {
		return compiler.Config{}, fmt.Errorf("config: %w", err)
	}
	return compiler.Config{
		Void:             c.Void,
		Target:           c.Target,
		Objective:        c.Objective,
		Mode:             mode,
		IgnoreNBT:        c.IgnoreNBT,
		IgnoreBlockState: c.IgnoreBlockState,
	}, nil
}
