// Package main provides the terse binary: it merges JSON-LD style tree
// documents into one graph and renders, flattens or queries the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aleksaelezovic/terse/internal/config"
	"github.com/aleksaelezovic/terse/internal/rdfio"
	"github.com/aleksaelezovic/terse/pkg/rdf"
	"github.com/aleksaelezovic/terse/pkg/store"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "terse"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries global flags and the resolved configuration
type app struct {
	configPath  string
	logLevel    string
	base        string
	vocab       string
	contextPath string
	maxDepth    int

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Merge tree documents into a graph",
		Long: `Terse merges JSON-LD style tree documents (JSON or YAML) into a single
in-memory graph. Identifiers, prefixes and vocabularies are resolved against
each document's base IRI. The graph can be rendered back as a tree, flattened
to triples or queried by subject, predicate and object.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.base, "base", "", "Base IRI for documents without one (such as stdin)")
	flags.StringVar(&a.vocab, "vocab", "", "Default vocabulary IRI")
	flags.StringVar(&a.contextPath, "context", "", "Fallback context document")
	flags.IntVar(&a.maxDepth, "max-depth", store.DefaultMaxDepth, "Maximum nesting depth while merging")

	cmd.AddCommand(
		a.treeCmd(),
		a.triplesCmd(),
		a.selectCmd(),
		a.contextCmd(),
		a.isoCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

// setup loads the config file, applies flag overrides and installs logging
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		loaded, err := config.LoadFromFile(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("vocab") {
		cfg.Context.Vocab = a.vocab
	}
	if flags.Changed("context") {
		cfg.Context.File = a.contextPath
	}
	if flags.Changed("max-depth") {
		cfg.Merge.MaxDepth = a.maxDepth
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger
	return nil
}

// newLogger builds a console logger exposed through slog
func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	formatter := log.TextFormatter
	switch cfg.Format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}

	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       formatter,
		Prefix:          appName,
	})
	return slog.New(handler), nil
}

// sources returns the documents named on the command line, or the
// configured ones when there are none
func (a *app) sources(args []string) ([]rdfio.Source, error) {
	sources := a.cfg.Sources()
	if len(args) > 0 {
		sources = make([]rdfio.Source, len(args))
		for i, path := range args {
			sources[i] = rdfio.Source{Path: path}
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no documents: pass file paths, - for stdin, or configure documents")
	}
	if a.base != "" {
		for i := range sources {
			if sources[i].URI == "" {
				sources[i].URI = a.base
			}
		}
	}
	return sources, nil
}

// load decodes documents in parallel and merges them in order into one graph
func (a *app) load(ctx context.Context, sources []rdfio.Source) (*store.Graph, []rdfio.Document, error) {
	fallback, err := a.cfg.Context.Fallback()
	if err != nil {
		return nil, nil, err
	}

	docs, err := rdfio.LoadAll(ctx, sources, a.cfg.Merge.Workers)
	if err != nil {
		return nil, nil, err
	}

	g, err := store.NewGraph(nil, store.Options{Logger: a.logger})
	if err != nil {
		return nil, nil, err
	}
	for _, doc := range docs {
		opts := a.cfg.StoreOptions(doc.URI, fallback)
		opts.Logger = a.logger
		if _, err := g.Merge(doc.Root, opts); err != nil {
			return nil, nil, fmt.Errorf("merge %s: %w", doc.Path, err)
		}
	}

	a.logger.Info("graph loaded", "documents", len(docs), "nodes", g.Len(), "literals", g.LiteralCount())
	return g, docs, nil
}

func (a *app) loadArgs(cmd *cobra.Command, args []string) (*store.Graph, error) {
	sources, err := a.sources(args)
	if err != nil {
		return nil, err
	}
	g, _, err := a.load(cmd.Context(), sources)
	return g, err
}

func (a *app) treeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [documents...]",
		Short: "Render the merged graph as a tree document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.outputFlags(cmd); err != nil {
				return err
			}
			g, err := a.loadArgs(cmd, args)
			if err != nil {
				return err
			}

			opts := a.cfg.TreeOptions()
			var out []byte
			switch a.cfg.Output.Format {
			case config.FormatYAML:
				out, err = g.YAML(opts)
			case config.FormatJSON:
				out, err = g.JSON(opts, a.cfg.Output.Indent)
			default:
				return fmt.Errorf("tree output does not support format %q", a.cfg.Output.Format)
			}
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), out)
		},
	}

	flags := cmd.Flags()
	flags.StringP("format", "f", "", "Output format (json, yaml)")
	flags.Bool("no-array", false, "Collapse single-element value arrays")
	flags.Bool("raw", false, "Render plain literals as bare scalars")
	flags.String("root", "", "Identifier of the node to render at the top")
	flags.String("relative-to", "", "Base IRI to relativize identifiers against")
	return cmd
}

// outputFlags applies tree output flags over the output config
func (a *app) outputFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("format") {
		a.cfg.Output.Format, err = flags.GetString("format")
	}
	if err == nil && flags.Changed("no-array") {
		a.cfg.Output.NoArray, err = flags.GetBool("no-array")
	}
	if err == nil && flags.Changed("raw") {
		a.cfg.Output.RawLiterals, err = flags.GetBool("raw")
	}
	if err == nil && flags.Changed("root") {
		a.cfg.Output.Root, err = flags.GetString("root")
	}
	if err == nil && flags.Changed("relative-to") {
		a.cfg.Output.Base, err = flags.GetString("relative-to")
	}
	if err != nil {
		return err
	}
	return a.cfg.Validate()
}

func (a *app) triplesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "triples [documents...]",
		Short: "Flatten the merged graph into triples",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadArgs(cmd, args)
			if err != nil {
				return err
			}
			return a.writeTriples(cmd.OutOrStdout(), g.Triples(), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", config.FormatNTriple, "Output format (nt, json)")
	return cmd
}

func (a *app) writeTriples(w io.Writer, triples []rdf.Triple, format string) error {
	switch format {
	case config.FormatNTriple:
		_, err := io.WriteString(w, rdf.SerializeTriplesCanonical(triples))
		return err
	case config.FormatJSON:
		rows := make([]any, len(triples))
		for i, t := range triples {
			rows[i] = []any{t.Subject, t.Predicate, t.Object}
		}
		out, err := rdf.MarshalTreeIndent(rows, a.cfg.Output.Indent)
		if err != nil {
			return err
		}
		return writeLine(w, out)
	default:
		return fmt.Errorf("unsupported triples format %q", format)
	}
}

func (a *app) selectCmd() *cobra.Command {
	var (
		subject   string
		predicate string
		object    string
		literal   string
		column    string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "select [documents...]",
		Short: "Query the merged graph by subject, predicate and object",
		Long: `Select prints the triples matching every given constraint. Subject,
predicate and object are identifiers; --object may also be a JSON value
object such as '{"@value": "Alice"}'. --literal is a JSON literal template
matched against the fields it names. --column projects the matches onto
subject, predicate or object and prints the distinct values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadArgs(cmd, args)
			if err != nil {
				return err
			}

			p := &store.Pattern{}
			if subject != "" {
				p.Subject = subject
			}
			if predicate != "" {
				p.Predicate = predicate
			}
			if object != "" {
				p.Object = parseTerm(object)
			}
			if literal != "" {
				p.Literal = parseTerm(literal)
			}

			if column == "" {
				return a.writeTriples(cmd.OutOrStdout(), g.MatchTriples(g.Select(p)), format)
			}

			c, err := parseColumn(column)
			if err != nil {
				return err
			}
			out, err := rdf.MarshalTreeIndent(g.Terms(g.SelectColumn(p, c)), a.cfg.Output.Indent)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), out)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&subject, "subject", "s", "", "Subject identifier")
	flags.StringVarP(&predicate, "predicate", "p", "", "Predicate identifier")
	flags.StringVarP(&object, "object", "o", "", "Object identifier or JSON value object")
	flags.StringVarP(&literal, "literal", "l", "", "JSON literal template")
	flags.StringVar(&column, "column", "", "Project onto a column (subject, predicate, object)")
	flags.StringVarP(&format, "format", "f", config.FormatNTriple, "Output format for matches (nt, json)")
	return cmd
}

// parseTerm reads a command line term as JSON, falling back to the raw text
func parseTerm(text string) any {
	v, err := rdfio.DecodeJSON([]byte(text))
	if err != nil {
		return text
	}
	return v
}

func parseColumn(name string) (store.Column, error) {
	for _, c := range []store.Column{store.ColumnSubject, store.ColumnPredicate, store.ColumnObject} {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown column %q", name)
}

func (a *app) contextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context [document]",
		Short: "Print the context in effect at the top of a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := a.sources(args)
			if err != nil {
				return err
			}
			fallback, err := a.cfg.Context.Fallback()
			if err != nil {
				return err
			}
			doc, err := rdfio.Load(sources[0])
			if err != nil {
				return err
			}

			ctx := rdf.EffectiveRootContext(doc.Root, doc.URI, a.cfg.Context.Vocab, fallback)
			out, err := rdf.MarshalTreeIndent(ctx, a.cfg.Output.Indent)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), out)
		},
	}
}

func (a *app) isoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "iso <expected> <actual>",
		Short: "Check whether two documents produce isomorphic graphs",
		Long: `Iso merges each document into its own graph and compares the flattened
statements up to blank node renaming. Either side may be an N-Triples file,
so a document can be checked against expected statements.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var triples [2][]rdf.Triple
			for i, path := range args {
				sources, err := a.sources([]string{path})
				if err != nil {
					return err
				}
				g, _, err := a.load(cmd.Context(), sources)
				if err != nil {
					return err
				}
				triples[i], err = rdfio.FlattenTriples(g.Triples())
				if err != nil {
					return err
				}
			}

			if !rdf.AreGraphsIsomorphic(triples[0], triples[1]) {
				return fmt.Errorf("graphs differ: %d and %d triples", len(triples[0]), len(triples[1]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "isomorphic (%d triples)\n", len(triples[0]))
			return nil
		},
	}
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
