// Package manifest loads the dictionary-shaped test manifest: a textual
// `$key` substitution pass followed by an ordinary document decode. It is
// deliberately STL-unaware: it hands the CLI and the pkg/stl facade a
// loosely typed tree of role instances; checking those against declared
// roles is the semantic analyzer's job.
package manifest

import (
	"fmt"
	"regexp"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"
)

// RoleInstance is one entry of the manifest's `roles` list: a
// fully-qualified role name plus its declared field values, still untyped
// until the semantic analyzer checks Fields against the linked RoleDecl.
type RoleInstance struct {
	Role   string                 `yaml:"role" mapstructure:"role"`
	Fields map[string]interface{} `mapstructure:",remain"`
}

// Document is the parsed manifest: the three documented top-level keys,
// nothing more.
type Document struct {
	STLFiles []string       `yaml:"stl_files"`
	Roles    []RoleInstance `yaml:"-"`
	Test     []string       `yaml:"test"`
}

// rawDocument mirrors Document's shape for the initial go-yaml decode,
// before mapstructure turns each `roles` entry's remaining keys into
// RoleInstance.Fields.
type rawDocument struct {
	STLFiles []string                 `yaml:"stl_files"`
	Roles    []map[string]interface{} `yaml:"roles"`
	Test     []string                 `yaml:"test"`
}

var substitutionPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// Substitute replaces every `$key` occurrence in text with the matching
// value from args. Substitution is textual and non-recursive: a
// substituted value is never itself re-scanned for further `$key`
// occurrences.
func Substitute(text string, args map[string]string) string {
	return substitutionPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := match[1:]
		if v, ok := args[key]; ok {
			return v
		}
		return match
	})
}

// Load runs the substitution pass over text, decodes the result as YAML,
// and mapstructure-decodes each roles entry into a RoleInstance.
func Load(text string, args map[string]string) (*Document, error) {
	substituted := Substitute(text, args)

	var raw rawDocument
	if err := yaml.Unmarshal([]byte(substituted), &raw); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}

	doc := &Document{STLFiles: raw.STLFiles, Test: raw.Test}
	for i, r := range raw.Roles {
		var inst RoleInstance
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &inst})
		if err != nil {
			return nil, fmt.Errorf("manifest: roles[%d]: %w", i, err)
		}
		if err := dec.Decode(r); err != nil {
			return nil, fmt.Errorf("manifest: roles[%d]: %w", i, err)
		}
		doc.Roles = append(doc.Roles, inst)
	}

	for _, name := range doc.Test {
		if !doc.hasRole(name) {
			return nil, fmt.Errorf("manifest: test entry %q has no matching roles entry", name)
		}
	}

	return doc, nil
}

func (d *Document) hasRole(fqName string) bool {
	for _, r := range d.Roles {
		if r.Role == fqName {
			return true
		}
	}
	return false
}
