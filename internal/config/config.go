// Package config loads attest settings.
//
// Settings come from three layers, later ones winning: built-in defaults, a
// config file, then command-line flags. A config file is YAML (attest.yaml,
// attest.yml) or CUE (attest.cue); either form is checked against the
// embedded CUE schema before it is decoded.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/attest/internal/engine"
	"github.com/roach88/attest/internal/harness"
)

//go:embed schema.cue
var schemaSource string

// DefaultRoot is the test directory used when none is configured.
const DefaultRoot = "tests"

// FileNames are the config files Discover looks for, in order.
var FileNames = []string{"attest.yaml", "attest.yml", "attest.cue"}

// Config holds resolved settings for a test run.
type Config struct {
	Root        string
	OnFatal     harness.FatalPolicy
	Timeout     time.Duration
	MaxParallel int
	MaxSteps    uint64
	Include     []string
	Exclude     []string
	Record      string

	// Source is the config file the settings were read from, if any.
	Source string
}

// fileConfig is the on-disk shape shared by YAML and CUE files.
type fileConfig struct {
	Root        string   `yaml:"root" json:"root"`
	OnFatal     string   `yaml:"on_fatal" json:"on_fatal"`
	Timeout     string   `yaml:"timeout" json:"timeout"`
	MaxParallel int      `yaml:"max_parallel" json:"max_parallel"`
	MaxSteps    uint64   `yaml:"max_steps" json:"max_steps"`
	Include     []string `yaml:"include" json:"include"`
	Exclude     []string `yaml:"exclude" json:"exclude"`
	Record      string   `yaml:"record" json:"record"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Root:    DefaultRoot,
		OnFatal: harness.FatalAbort,
	}
}

// ValidationError is a config problem, with its source position when known.
type ValidationError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Discover returns the first config file from FileNames present in dir.
func Discover(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// Load reads the config file at path over the defaults.
//
// Relative root and record paths are resolved against the directory
// containing the file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if filepath.Ext(path) == ".cue" {
		err = decodeCUE(path, data, &fc)
	} else {
		err = decodeYAML(path, data, &fc)
	}
	if err != nil {
		return Config{}, err
	}

	cfg, err := fc.apply(Default(), filepath.Dir(path))
	if err != nil {
		return Config{}, err
	}
	cfg.Source = path
	return cfg, cfg.Validate()
}

// LoadDefault loads the config discovered in dir, or the defaults if there
// is none.
func LoadDefault(dir string) (Config, error) {
	path, ok := Discover(dir)
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks settings that may also come from flags.
func (c Config) Validate() error {
	if c.Root == "" {
		return &ValidationError{Field: "root", Message: "must not be empty"}
	}
	if _, err := harness.ParseFatalPolicy(string(c.OnFatal)); err != nil {
		return &ValidationError{Field: "on_fatal", Message: err.Error()}
	}
	if c.Timeout < 0 {
		return &ValidationError{Field: "timeout", Message: "must not be negative"}
	}
	if c.MaxParallel < 0 {
		return &ValidationError{Field: "max_parallel", Message: "must not be negative"}
	}
	for field, patterns := range map[string][]string{"include": c.Include, "exclude": c.Exclude} {
		for _, p := range patterns {
			if _, err := filepath.Match(p, ""); err != nil {
				return &ValidationError{Field: field, Message: fmt.Sprintf("bad glob pattern %q", p)}
			}
		}
	}
	return nil
}

// WalkerOptions converts the settings into harness walker options.
func (c Config) WalkerOptions() harness.Options {
	return harness.Options{
		OnFatal:     c.OnFatal,
		Timeout:     c.Timeout,
		MaxParallel: c.MaxParallel,
		Include:     c.Include,
		Exclude:     c.Exclude,
	}
}

// EngineOptions converts the settings into script engine options.
func (c Config) EngineOptions() []engine.Option {
	var opts []engine.Option
	if c.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(c.MaxSteps))
	}
	return opts
}

func (fc fileConfig) apply(cfg Config, base string) (Config, error) {
	if fc.Root != "" {
		cfg.Root = resolvePath(base, fc.Root)
	}
	if fc.OnFatal != "" {
		cfg.OnFatal = harness.FatalPolicy(fc.OnFatal)
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return Config{}, &ValidationError{Field: "timeout", Message: err.Error()}
		}
		cfg.Timeout = d
	}
	if fc.MaxParallel != 0 {
		cfg.MaxParallel = fc.MaxParallel
	}
	if fc.MaxSteps != 0 {
		cfg.MaxSteps = fc.MaxSteps
	}
	if fc.Include != nil {
		cfg.Include = fc.Include
	}
	if fc.Exclude != nil {
		cfg.Exclude = fc.Exclude
	}
	if fc.Record != "" {
		cfg.Record = resolvePath(base, fc.Record)
	}
	return cfg, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func decodeYAML(path string, data []byte, fc *fileConfig) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	f, err := cueyaml.Extract(path, data)
	if err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	ctx := cuecontext.New()
	if err := validate(ctx, ctx.BuildFile(f)); err != nil {
		return err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(fc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func decodeCUE(path string, data []byte, fc *fileConfig) error {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := validate(ctx, v); err != nil {
		return err
	}
	if err := v.Decode(fc); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// validate unifies v with the schema and requires a concrete result.
func validate(ctx *cue.Context, v cue.Value) error {
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).
		LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reports the first CUE error with its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	ve := &ValidationError{Field: "config", Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		ve.Field = path[len(path)-1]
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ve.Pos = positions[0]
	}
	return ve
}
