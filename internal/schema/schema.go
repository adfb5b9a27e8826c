// Package schema isolates the storage-schema contract the compiler targets.
//
// The contract is fixed per deployment:
//   - every RDF resource is a node labelled ResourceLabel
//   - the node's URI is stored in the IdentityProperty property
//   - resource-valued predicates are directed edges typed by the full predicate URI
//   - literal-valued predicates are node properties keyed by the full predicate URI
//   - rdf:type (TypePredicate) is encoded as extra node labels named by the class URI
//
// Reconfiguring the compiler for a different fixed schema means passing a
// different Schema value; no rendering code hard-codes these names.
package schema

import (
	"fmt"
	"regexp"

	"github.com/roach88/graphpush/internal/ir"
)

// Schema holds the storage-schema constants.
type Schema struct {
	// ResourceLabel is the label every resource node carries.
	ResourceLabel string `json:"resource_label"`

	// IdentityProperty is the node property holding the resource URI.
	IdentityProperty string `json:"identity_property"`

	// TypePredicate is the predicate URI encoded as node labels.
	TypePredicate string `json:"type_predicate"`
}

// Defaults for the standard RDF-on-property-graph layout.
const (
	DefaultResourceLabel    = "Resource"
	DefaultIdentityProperty = "uri"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Default returns the standard schema: label Resource, identity property uri,
// rdf:type as labels.
func Default() Schema {
	return Schema{
		ResourceLabel:    DefaultResourceLabel,
		IdentityProperty: DefaultIdentityProperty,
		TypePredicate:    ir.RDFType,
	}
}

// Validate checks that the label and identity property are plain
// identifiers (they are emitted as query tokens, never as parameters) and
// that a type predicate is set.
func (s Schema) Validate() error {
	if !identifierPattern.MatchString(s.ResourceLabel) {
		return &ConfigError{Field: "resource_label", Message: fmt.Sprintf("%q is not a plain identifier", s.ResourceLabel)}
	}
	if !identifierPattern.MatchString(s.IdentityProperty) {
		return &ConfigError{Field: "identity_property", Message: fmt.Sprintf("%q is not a plain identifier", s.IdentityProperty)}
	}
	if s.TypePredicate == "" {
		return &ConfigError{Field: "type_predicate", Message: "type predicate is required"}
	}
	return nil
}

// IsTypePredicate reports whether t is the configured rdf:type URI.
func (s Schema) IsTypePredicate(t ir.Term) bool {
	u, ok := t.(ir.URI)
	return ok && u.Value == s.TypePredicate
}
