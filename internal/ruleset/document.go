// Package ruleset reads and writes rule source documents.
//
// A document is a JSON object with a "version" token, a "rules" list and any
// number of other top-level keys. Rule records are kept as raw JSON so a
// merge can carry custom rules through verbatim, including fields this
// version of the tool does not know about.
package ruleset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/solatis/antiseptic/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	keyVersion = "version"
	keyRules   = "rules"
)

// Document is a parsed rule source.
type Document struct {
	Version string
	Rules   []json.RawMessage
	// Meta holds top-level keys other than version and rules.
	Meta map[string]json.RawMessage

	hasRules bool
}

// New returns a document with an empty rules section.
func New(version string) *Document {
	return &Document{Version: version, Rules: []json.RawMessage{}, Meta: map[string]json.RawMessage{}, hasRules: true}
}

// HasRules reports whether the source declared a rules collection.
func (d *Document) HasRules() bool {
	return d.hasRules
}

// Parse decodes a JSON rule source.
// A missing or null "rules" key is not an error here; callers that need
// rules check HasRules.
func Parse(data []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to parse rule source: %w", err)
	}
	if top == nil {
		return nil, fmt.Errorf("failed to parse rule source: document is null")
	}

	doc := &Document{Meta: make(map[string]json.RawMessage)}

	if raw, ok := top[keyVersion]; ok {
		v, err := decodeVersion(raw)
		if err != nil {
			return nil, err
		}
		doc.Version = v
	}

	if raw, ok := top[keyRules]; ok && !isNull(raw) {
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("%w: rules is not a list", types.ErrMissingRuleSection)
		}
		doc.Rules = records
		doc.hasRules = true
	}

	for k, v := range top {
		if k == keyVersion || k == keyRules {
			continue
		}
		doc.Meta[k] = v
	}

	return doc, nil
}

// ParseYAML decodes a YAML rule source with the same shape as the JSON form.
func ParseYAML(data []byte) (*Document, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse rule source: %w", err)
	}
	converted, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to convert YAML rule source: %w", err)
	}
	return Parse(converted)
}

// ParseFile reads a rule source from disk, choosing YAML for .yaml/.yml files.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(path, data)
}

// ParseBytes decodes data using the format implied by name's extension.
func ParseBytes(name string, data []byte) (*Document, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

// RecordID extracts the id of a raw rule record.
// Returns false when the record is not an object or has no string id.
func RecordID(record json.RawMessage) (types.RuleID, bool) {
	var r struct {
		ID *string `json:"id"`
	}
	if err := json.Unmarshal(record, &r); err != nil || r.ID == nil || *r.ID == "" {
		return "", false
	}
	return types.RuleID(*r.ID), true
}

// Encode renders the document in canonical form: keys sorted at every level,
// tab indentation, no HTML escaping, trailing newline.
func (d *Document) Encode() ([]byte, error) {
	top := make(map[string]any, len(d.Meta)+2)
	for k, raw := range d.Meta {
		v, err := decodeAny(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", k, err)
		}
		top[k] = v
	}
	if d.Version != "" {
		top[keyVersion] = d.Version
	}

	records := make([]any, 0, len(d.Rules))
	for i, raw := range d.Rules {
		v, err := decodeAny(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to encode rule %d: %w", i, err)
		}
		records = append(records, v)
	}
	top[keyRules] = records

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "\t")
	if err := enc.Encode(top); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile persists the document atomically: write to a temp file in the
// target directory, then rename over the target.
func WriteFile(path string, d *Document) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// decodeVersion accepts a string token or a bare JSON number, keeping the
// number's textual form so the codec can validate it.
func decodeVersion(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("%w: version must be a string", types.ErrInvalidVersionFormat)
}

// decodeAny decodes raw JSON keeping numbers as json.Number so integer
// weights round-trip without float conversion.
func decodeAny(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
