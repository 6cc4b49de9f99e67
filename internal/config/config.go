// Package config loads the terse command line configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/aleksaelezovic/terse/internal/rdfio"
	"github.com/aleksaelezovic/terse/pkg/rdf"
	"github.com/aleksaelezovic/terse/pkg/store"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatNTriple = "nt"
)

var (
	outputFormats = []string{FormatJSON, FormatYAML, FormatNTriple}
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"text", "json", "logfmt"}
)

// Config holds the complete configuration
type Config struct {
	Documents []DocumentConfig `yaml:"documents"`
	Context   ContextConfig    `yaml:"context"`
	Merge     MergeConfig      `yaml:"merge"`
	Output    OutputConfig     `yaml:"output"`
	Log       LogConfig        `yaml:"log"`
}

// DocumentConfig names one input document
type DocumentConfig struct {
	// Path is a file path, or "-" for standard input
	Path string `yaml:"path"`

	// URI is the document's base IRI. Defaults to the file: IRI of Path.
	URI string `yaml:"uri,omitempty"`

	// ContentType overrides detection from the file extension
	ContentType string `yaml:"content_type,omitempty"`
}

// ContextConfig holds the fallback context applied at every document entry
type ContextConfig struct {
	// Vocab is the default vocabulary when no context declares @vocab
	Vocab string `yaml:"vocab,omitempty"`

	// File is a JSON or YAML context document. A top-level @context member
	// is unwrapped.
	File string `yaml:"file,omitempty"`

	// Inline is a context object written directly in the config. It is
	// folded after File.
	Inline yaml.Node `yaml:"inline,omitempty"`
}

// MergeConfig holds merge limits
type MergeConfig struct {
	// MaxDepth bounds nesting while merging a document
	MaxDepth int `yaml:"max_depth"`

	// Workers bounds how many documents are decoded at once
	Workers int `yaml:"workers"`
}

// OutputConfig controls tree and triple output
type OutputConfig struct {
	Format      string `yaml:"format"`
	Indent      string `yaml:"indent"`
	NoArray     bool   `yaml:"no_array"`
	RawLiterals bool   `yaml:"raw_literals"`

	// Base relativizes @id values in tree output
	Base string `yaml:"base,omitempty"`

	// Root selects the node rendered at the top of tree output
	Root string `yaml:"root,omitempty"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Merge: MergeConfig{
			MaxDepth: store.DefaultMaxDepth,
			Workers:  4,
		},
		Output: OutputConfig{
			Format: FormatJSON,
			Indent: "  ",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	var errs []error
	for i, doc := range c.Documents {
		if doc.Path == "" {
			errs = append(errs, fmt.Errorf("documents[%d]: path is required", i))
		}
	}
	if c.Context.Inline.Kind != 0 && c.Context.Inline.Kind != yaml.MappingNode {
		errs = append(errs, errors.New("context.inline must be a mapping"))
	}
	if c.Merge.MaxDepth <= 0 {
		errs = append(errs, errors.New("merge.max_depth must be positive"))
	}
	if c.Merge.Workers < 0 {
		errs = append(errs, errors.New("merge.workers must not be negative"))
	}
	if !slices.Contains(outputFormats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format %q must be one of %v", c.Output.Format, outputFormats))
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q must be one of %v", c.Log.Level, logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q must be one of %v", c.Log.Format, logFormats))
	}
	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file over the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Sources returns the configured documents as loader sources
func (c *Config) Sources() []rdfio.Source {
	sources := make([]rdfio.Source, len(c.Documents))
	for i, doc := range c.Documents {
		sources[i] = rdfio.Source{Path: doc.Path, URI: doc.URI, ContentType: doc.ContentType}
	}
	return sources
}

// Fallback returns the fallback context: nil, a single context object, or
// an array folding the file context then the inline one
func (c *ContextConfig) Fallback() (any, error) {
	var contexts []any

	if c.File != "" {
		doc, err := rdfio.Load(rdfio.Source{Path: c.File})
		if err != nil {
			return nil, fmt.Errorf("load context file: %w", err)
		}
		ctx := doc.Root
		if inner, ok := rdf.Lookup(ctx, rdf.KeywordContext); ok {
			ctx = inner
		}
		contexts = append(contexts, ctx)
	}

	if c.Inline.Kind != 0 {
		ctx, err := rdfio.DecodeYAMLNode(&c.Inline)
		if err != nil {
			return nil, fmt.Errorf("decode inline context: %w", err)
		}
		contexts = append(contexts, ctx)
	}

	switch len(contexts) {
	case 0:
		return nil, nil
	case 1:
		return contexts[0], nil
	default:
		return contexts, nil
	}
}

// StoreOptions builds merge options for one document
func (c *Config) StoreOptions(documentURI string, fallback any) store.Options {
	return store.Options{
		DocumentURI:     documentURI,
		Vocab:           c.Context.Vocab,
		FallbackContext: fallback,
		MaxDepth:        c.Merge.MaxDepth,
	}
}

// TreeOptions builds tree rendering options from the output section
func (c *Config) TreeOptions() store.TreeOptions {
	opts := store.TreeOptions{
		NoArray:     c.Output.NoArray,
		RawLiterals: c.Output.RawLiterals,
		Base:        c.Output.Base,
	}
	if c.Output.Root != "" {
		opts.Root = c.Output.Root
	}
	return opts
}
