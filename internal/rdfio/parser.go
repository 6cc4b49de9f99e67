package rdfio

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aleksaelezovic/terse/pkg/rdf"
	"github.com/buger/jsonparser"
	"gopkg.in/yaml.v3"
)

const (
	ContentTypeJSONLD = "application/ld+json"
	ContentTypeJSON   = "application/json"
	ContentTypeYAML   = "application/yaml"
)

// Parser decodes a tree document. Objects decode to *rdf.Object in source
// key order and numbers to json.Number.
type Parser interface {
	// Parse parses a document from a reader
	Parse(reader io.Reader) (any, error)

	// ContentType returns the MIME type this parser handles
	ContentType() string
}

// NewParser creates a document parser based on the content type
func NewParser(contentType string) (Parser, error) {
	// Normalize content type (remove parameters like charset)
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = strings.TrimSpace(ct[:idx])
	}

	switch ct {
	case ContentTypeJSONLD, ContentTypeJSON, "text/json":
		return &JSONParser{}, nil
	case ContentTypeYAML, "application/x-yaml", "text/yaml", "text/x-yaml":
		return &YAMLParser{}, nil
	case ContentTypeNTriples, "text/plain":
		return &NTriplesParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// ContentTypeForPath guesses a content type from a file extension,
// defaulting to JSON-LD
func ContentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ContentTypeYAML
	case ".json":
		return ContentTypeJSON
	case ".nt":
		return ContentTypeNTriples
	default:
		return ContentTypeJSONLD
	}
}

// JSONParser parses JSON and JSON-LD documents
type JSONParser struct{}

func (p *JSONParser) ContentType() string {
	return ContentTypeJSONLD
}

func (p *JSONParser) Parse(reader io.Reader) (any, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return DecodeJSON(data)
}

// DecodeJSON decodes a JSON document, keeping object key order
func DecodeJSON(data []byte) (any, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}
	return decodeJSONValue(value, dataType)
}

func decodeJSONValue(value []byte, dataType jsonparser.ValueType) (any, error) {
	switch dataType {
	case jsonparser.Object:
		obj := rdf.NewObject()
		err := jsonparser.ObjectEach(value, func(key, v []byte, dt jsonparser.ValueType, _ int) error {
			k, err := jsonparser.ParseString(key)
			if err != nil {
				return fmt.Errorf("invalid object key %q: %w", key, err)
			}
			child, err := decodeJSONValue(v, dt)
			if err != nil {
				return err
			}
			obj.Set(k, child)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error parsing JSON object: %w", err)
		}
		return obj, nil

	case jsonparser.Array:
		items := []any{}
		var itemErr error
		_, err := jsonparser.ArrayEach(value, func(v []byte, dt jsonparser.ValueType, _ int, err error) {
			if itemErr != nil {
				return
			}
			if err != nil {
				itemErr = err
				return
			}
			child, err := decodeJSONValue(v, dt)
			if err != nil {
				itemErr = err
				return
			}
			items = append(items, child)
		})
		if err == nil {
			err = itemErr
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing JSON array: %w", err)
		}
		return items, nil

	case jsonparser.String:
		return jsonparser.ParseString(value)
	case jsonparser.Number:
		return json.Number(string(value)), nil
	case jsonparser.Boolean:
		return jsonparser.ParseBoolean(value)
	case jsonparser.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected JSON value %q", value)
	}
}

// YAMLParser parses YAML documents. Anchored mappings decode to one shared
// object, so aliases become references to the same node when merged.
type YAMLParser struct{}

func (p *YAMLParser) ContentType() string {
	return ContentTypeYAML
}

func (p *YAMLParser) Parse(reader io.Reader) (any, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return DecodeYAML(data)
}

// DecodeYAML decodes the first document of a YAML stream
func DecodeYAML(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}
	return DecodeYAMLNode(&root)
}

// DecodeYAMLNode decodes an already parsed YAML node, such as a document
// embedded in a configuration file
func DecodeYAMLNode(n *yaml.Node) (any, error) {
	d := &yamlDecoder{
		mappings: make(map[*yaml.Node]*rdf.Object),
		active:   make(map[*yaml.Node]bool),
	}
	return d.decode(n)
}

type yamlDecoder struct {
	mappings map[*yaml.Node]*rdf.Object
	active   map[*yaml.Node]bool
}

func (d *yamlDecoder) decode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.decode(n.Content[0])
	case yaml.AliasNode:
		return d.decode(n.Alias)
	case yaml.MappingNode:
		return d.decodeMapping(n)
	case yaml.SequenceNode:
		if d.active[n] {
			return nil, fmt.Errorf("line %d: sequence contains itself", n.Line)
		}
		d.active[n] = true
		defer delete(d.active, n)

		items := make([]any, 0, len(n.Content))
		for _, child := range n.Content {
			v, err := d.decode(child)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case yaml.ScalarNode:
		return decodeYAMLScalar(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func (d *yamlDecoder) decodeMapping(n *yaml.Node) (any, error) {
	if obj, ok := d.mappings[n]; ok {
		return obj, nil
	}
	obj := rdf.NewObject()
	d.mappings[n] = obj

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: object keys must be scalars", keyNode.Line)
		}
		if keyNode.ShortTag() == "!!merge" {
			if err := d.mergeKeys(obj, valueNode); err != nil {
				return nil, err
			}
			continue
		}
		v, err := d.decode(valueNode)
		if err != nil {
			return nil, err
		}
		obj.Set(keyNode.Value, v)
	}
	return obj, nil
}

// mergeKeys applies a "<<" merge key: fields not already present are copied
func (d *yamlDecoder) mergeKeys(obj *rdf.Object, n *yaml.Node) error {
	sources := []*yaml.Node{n}
	if n.Kind == yaml.SequenceNode {
		sources = n.Content
	}
	for _, src := range sources {
		v, err := d.decode(src)
		if err != nil {
			return err
		}
		fields, ok := rdf.Fields(v)
		if !ok {
			return fmt.Errorf("line %d: merge value must be a mapping", src.Line)
		}
		for _, f := range fields {
			if _, exists := obj.Get(f.Key); !exists {
				obj.Set(f.Key, f.Value)
			}
		}
	}
	return nil
}

func decodeYAMLScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return json.Number(strconv.FormatInt(i, 10)), nil
		}
		return floatNumber(n)
	case "!!float":
		return floatNumber(n)
	default:
		// Strings, timestamps and binary values keep their source text
		return n.Value, nil
	}
}

func floatNumber(n *yaml.Node) (any, error) {
	var f float64
	if err := n.Decode(&f); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return n.Value, nil
	}
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
}
