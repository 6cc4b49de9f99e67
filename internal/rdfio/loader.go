package rdfio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// Stdin is the source path that reads standard input
const Stdin = "-"

// Source names one input document
type Source struct {
	// Path is a file path, or Stdin
	Path string
	// URI is the document's base IRI; empty means the file: IRI of Path
	URI string
	// ContentType overrides detection from the file extension
	ContentType string
}

// Document is a decoded input document
type Document struct {
	Source
	Root any
}

// FileURI returns the file: IRI of a local path
func FileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// Load reads and decodes one document
func Load(src Source) (Document, error) {
	contentType := src.ContentType
	if contentType == "" {
		contentType = ContentTypeForPath(src.Path)
	}
	parser, err := NewParser(contentType)
	if err != nil {
		return Document{}, err
	}

	var reader io.Reader = os.Stdin
	if src.Path != Stdin {
		f, err := os.Open(src.Path)
		if err != nil {
			return Document{}, fmt.Errorf("failed to open document: %w", err)
		}
		defer f.Close()
		reader = f
		if src.URI == "" {
			src.URI = FileURI(src.Path)
		}
	}

	root, err := parser.Parse(reader)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", src.Path, err)
	}
	return Document{Source: src, Root: root}, nil
}

// LoadAll decodes documents concurrently, at most limit at a time when limit
// is positive, and returns them in source order. The first failure cancels
// documents not yet started.
func LoadAll(ctx context.Context, sources []Source, limit int) ([]Document, error) {
	docs := make([]Document, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := Load(src)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
