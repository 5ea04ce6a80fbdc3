package gpath

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/tidwall/gjson"
)

// Document is a parsed response body with an optional root path that is
// implicitly prepended to every expression evaluated through it.
type Document struct {
	tree any
	root string
}

// New wraps an already decoded tree.
func New(tree any) *Document {
	return &Document{tree: tree}
}

// ParseJSON parses a JSON body. Numbers are decoded as float64.
func ParseJSON(body []byte) (*Document, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidDocument)
	}
	return &Document{tree: gjson.ParseBytes(body).Value()}, nil
}

// ParseXML parses an XML body into the same tree shape as JSON. The root
// element name is the single top-level key, attributes appear as "@name",
// repeated child elements become lists and leaf elements become strings.
func ParseXML(body []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: empty XML document", ErrInvalidDocument)
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			v, err := decodeElement(dec, start)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
			}
			return &Document{tree: map[string]any{start.Name.Local: v}}, nil
		}
	}
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (any, error) {
	node := map[string]any{}
	for _, a := range start.Attr {
		node["@"+a.Name.Local] = a.Value
	}
	var text strings.Builder
	children := 0
	repeated := map[string]bool{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			children++
			name := t.Name.Local
			existing, seen := node[name]
			switch {
			case !seen:
				node[name] = child
			case repeated[name]:
				node[name] = append(existing.([]any), child)
			default:
				node[name] = []any{existing, child}
				repeated[name] = true
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			s := strings.TrimSpace(text.String())
			if children == 0 && len(start.Attr) == 0 {
				return s, nil
			}
			if s != "" {
				node["#text"] = s
			}
			return node, nil
		}
	}
}

// Parse picks XML for */xml and *+xml content types and JSON otherwise.
func Parse(contentType string, body []byte) (*Document, error) {
	if isXML(contentType) {
		return ParseXML(body)
	}
	return ParseJSON(body)
}

func isXML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.HasSuffix(mt, "/xml") || strings.HasSuffix(mt, "+xml")
}

// Tree returns the decoded value tree.
func (d *Document) Tree() any { return d.tree }

// Root returns the root path, empty when none is set.
func (d *Document) Root() string { return d.root }

// WithRoot returns a copy of d whose expressions are evaluated below root.
// Roots compose: d.WithRoot("a").WithRoot("b") is rooted at "a.b".
func (d *Document) WithRoot(root string) *Document {
	return &Document{tree: d.tree, root: JoinRoot(d.root, root)}
}

// JoinRoot prefixes expr with root. An expression starting with an index
// is appended directly so "[7]" under root "items" becomes "items[7]".
func JoinRoot(root, expr string) string {
	root = strings.TrimSpace(root)
	expr = strings.TrimSpace(expr)
	switch {
	case root == "" || root == "$":
		return expr
	case expr == "" || expr == "$":
		return root
	case strings.HasPrefix(expr, "["):
		return root + expr
	}
	return root + "." + expr
}

// Get evaluates expr (prefixed with the document root) against the tree.
func (d *Document) Get(expr string) (any, error) {
	return Evaluate(d.tree, JoinRoot(d.root, expr))
}

// GetString evaluates expr and renders the result as a string.
func (d *Document) GetString(expr string) (string, error) {
	v, err := d.Get(expr)
	if err != nil {
		return "", err
	}
	return ToString(v), nil
}

// GetFloat evaluates expr and coerces the result to a number.
func (d *Document) GetFloat(expr string) (float64, error) {
	v, err := d.Get(expr)
	if err != nil {
		return 0, err
	}
	n, ok := toNumber(v)
	if !ok {
		return 0, &TypeMismatchError{Expr: JoinRoot(d.root, expr), Op: "GetFloat", Value: v, Want: "a number"}
	}
	return n, nil
}

// GetInt evaluates expr and coerces the result to an integer.
func (d *Document) GetInt(expr string) (int, error) {
	n, err := d.GetFloat(expr)
	if err != nil {
		return 0, err
	}
	if n != float64(int(n)) {
		return 0, &TypeMismatchError{Expr: JoinRoot(d.root, expr), Op: "GetInt", Value: n, Want: "an integer"}
	}
	return int(n), nil
}

// GetList evaluates expr and requires a list result.
func (d *Document) GetList(expr string) ([]any, error) {
	v, err := d.Get(expr)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, &TypeMismatchError{Expr: JoinRoot(d.root, expr), Op: "GetList", Value: v, Want: "a list"}
	}
	return list, nil
}
