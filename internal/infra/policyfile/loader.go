package policyfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"sawa/internal/domain/cancellation"
)

// Document is the on-disk layout of a policy file.
//
//	extend_builtin: true
//	policies:
//	  - name: super_strict
//	    display_name: Super Strict
//	    rules:
//	      - {days_before_checkin: 30, refund_percent: 100}
//	      - {days_before_checkin: 0, refund_percent: 0}
type Document struct {
	// ExtendBuiltin keeps the built-in tables; file entries with the same name replace them.
	ExtendBuiltin bool                  `yaml:"extend_builtin"`
	Policies      []cancellation.Policy `yaml:"policies"`
}

// Load reads path and builds a registry from it. An empty path yields the built-in registry.
func Load(path string) (*cancellation.Registry, error) {
	if path == "" {
		return cancellation.DefaultRegistry, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policyfile: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("policyfile %s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes a policy document, rejecting unknown keys.
func Parse(data []byte) (*cancellation.Registry, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	policies := doc.Policies
	if doc.ExtendBuiltin {
		policies = append(cancellation.BuiltinPolicies(), policies...)
	}
	return cancellation.NewRegistry(policies)
}
