package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var errTrailingData = errors.New("trailing data after JSON document")

// lookup is an optional path into a decoded JSON document.
type lookup []string

var (
	eventIDLookups   = []lookup{{"id"}}
	eventTypeLookups = []lookup{{"event"}}
	commodityLookups = []lookup{
		{"data", "commodity_code"},
		{"data", "commodity"},
	}
)

func decodePayload(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	// trailing data after the first value is not a valid document
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return tree, nil
}

// probe walks the path and returns a non-empty scalar as text. Strings are
// returned verbatim, numbers in their literal form.
func (l lookup) probe(tree any) (string, bool) {
	node := tree
	for _, key := range l {
		obj, ok := node.(map[string]any)
		if !ok {
			return "", false
		}
		node, ok = obj[key]
		if !ok {
			return "", false
		}
	}
	switch v := node.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

// firstOf returns the first header value that is set, then the first lookup
// that resolves.
func firstOf(header string, tree any, lookups []lookup) (string, bool) {
	if v := strings.TrimSpace(header); v != "" {
		return v, true
	}
	for _, l := range lookups {
		if v, ok := l.probe(tree); ok {
			return v, true
		}
	}
	return "", false
}
