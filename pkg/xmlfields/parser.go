// Package xmlfields extracts flat field values from SOAP/XML payloads,
// matching elements by local name only so that namespace prefixes can vary.
package xmlfields

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

const (
	errorElement       = "campoErroneo"
	errorNameElement   = "nombre"
	errorDetailElement = "descripcion"
)

// DefaultRecordElements are the repeated elements of multi-record CN responses.
var DefaultRecordElements = []string{"registro", "notificacion"}

// FieldError is a field-level error descriptor (campoErroneo).
type FieldError struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Result is the flat view of a parsed document or record.
type Result struct {
	Values      map[string]*string
	ErrorFields []FieldError
	// Malformed is set when the input was not well-formed XML.
	Malformed bool
	// Matched is false when a selector was given and no record carried it.
	Matched bool
}

// Get returns the value of name, or "" when absent.
func (r Result) Get(name string) string {
	if v, ok := r.Values[name]; ok && v != nil {
		return *v
	}
	return ""
}

// Ptr returns the value of name, or nil when absent.
func (r Result) Ptr(name string) *string {
	return r.Values[name]
}

// Has reports whether name was present in the document.
func (r Result) Has(name string) bool {
	return r.Values[name] != nil
}

type options struct {
	records     []string
	selectorKey string
	selectorVal string
}

// Option configures Parse.
type Option func(*options)

// WithRecords declares which elements delimit records.
func WithRecords(names ...string) Option {
	return func(o *options) { o.records = names }
}

// WithSelector picks the record whose keyField equals value.
func WithSelector(keyField, value string) Option {
	return func(o *options) {
		o.selectorKey = keyField
		o.selectorVal = value
		if len(o.records) == 0 {
			o.records = DefaultRecordElements
		}
	}
}

// Parse extracts fields from data. Without a selector the first occurrence of
// each field anywhere in the document wins. With a selector, values come from
// the matching record first and from the enclosing document otherwise; if no
// record matches, every field is nil.
func Parse(data []byte, fields []string, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	top, records, err := scan(data, fields, o.records)
	if err != nil {
		return emptyResult(fields, true)
	}
	if o.selectorKey == "" {
		top.Matched = true
		return top
	}
	for _, rec := range records {
		if rec.Get(o.selectorKey) != o.selectorVal {
			continue
		}
		for _, f := range fields {
			if rec.Values[f] == nil {
				rec.Values[f] = top.Values[f]
			}
		}
		if len(rec.ErrorFields) == 0 {
			rec.ErrorFields = top.ErrorFields
		}
		rec.Matched = true
		return rec
	}
	return emptyResult(fields, false)
}

// ParseRecords returns the document-level fields and every record in order.
// Fields found inside records are not visible at document level.
func ParseRecords(data []byte, fields []string, recordElements ...string) (Result, []Result, error) {
	if len(recordElements) == 0 {
		recordElements = DefaultRecordElements
	}
	top, records, err := scan(data, fields, recordElements)
	if err != nil {
		return emptyResult(fields, true), nil, err
	}
	top.Matched = true
	return top, records, nil
}

func emptyResult(fields []string, malformed bool) Result {
	r := Result{Values: make(map[string]*string, len(fields)), Malformed: malformed}
	for _, f := range fields {
		r.Values[f] = nil
	}
	return r
}

type frame struct {
	name     string
	text     strings.Builder
	hasChild bool
}

func scan(data []byte, fields, recordNames []string) (Result, []Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Result{}, nil, errors.New("empty document")
	}
	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[f] = true
	}
	isRecord := make(map[string]bool, len(recordNames))
	for _, r := range recordNames {
		isRecord[r] = true
	}

	top := emptyResult(fields, false)
	var records []Result
	var current *Result
	recordDepth := -1

	var stack []*frame
	var fieldErr *FieldError
	errDepth := -1

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if n := len(stack); n > 0 {
				stack[n-1].hasChild = true
			}
			name := t.Name.Local
			stack = append(stack, &frame{name: name})
			switch {
			case current == nil && isRecord[name]:
				rec := emptyResult(fields, false)
				current = &rec
				recordDepth = len(stack)
			case fieldErr == nil && name == errorElement:
				fieldErr = &FieldError{}
				errDepth = len(stack)
			}

		case xml.CharData:
			if n := len(stack); n > 0 {
				stack[n-1].text.Write(t)
			}

		case xml.EndElement:
			n := len(stack)
			if n == 0 {
				continue
			}
			f := stack[n-1]
			stack = stack[:n-1]
			value := strings.TrimSpace(f.text.String())

			target := &top
			if current != nil {
				target = current
			}
			switch {
			case fieldErr != nil && n == errDepth:
				target.ErrorFields = append(target.ErrorFields, *fieldErr)
				fieldErr, errDepth = nil, -1
			case fieldErr != nil && n == errDepth+1 && !f.hasChild:
				switch f.name {
				case errorNameElement:
					fieldErr.Name = value
				case errorDetailElement:
					fieldErr.Description = value
				}
			case current != nil && n == recordDepth:
				records = append(records, *current)
				current, recordDepth = nil, -1
			case fieldErr == nil && wanted[f.name] && !f.hasChild && target.Values[f.name] == nil:
				v := value
				target.Values[f.name] = &v
			}
		}
	}
	if len(stack) != 0 {
		return Result{}, nil, errors.New("unexpected end of document")
	}
	return top, records, nil
}

// charsetReader decodes documents declared in a non UTF-8 charset (CN
// gateways occasionally answer in ISO-8859-1).
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
