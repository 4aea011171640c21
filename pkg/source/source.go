// Package source rebuilds a text field's original value for result
// materialization.
package source

import (
	mserrors "SearchMapper/pkg/errors"
	"SearchMapper/pkg/mapping"
)

// CanDerive reports whether Derive can succeed for m. Callers on hot paths
// check this instead of relying on the error.
func CanDerive(m *mapping.TextFieldMapping) bool {
	return reason(m) == ""
}

// Derive returns the stored value unchanged. Analyzed postings cannot give
// the original text back, so the field must be stored and must not copy to
// other fields.
func Derive(m *mapping.TextFieldMapping, stored *string) (string, error) {
	if r := reason(m); r != "" {
		return "", mserrors.UnsupportedDerivation(m.Name(), r)
	}
	if stored == nil {
		return "", mserrors.Internal("no stored value for field [%s]", m.Name()).WithContext("field", m.Name())
	}
	return *stored, nil
}

// StoredValues looks up stored values by field and document.
type StoredValues interface {
	StoredFieldValues(field string, docID uint32) []string
}

// DeriveDocument derives every value of m for docID in stored order. A
// document without stored values yields ok=false.
func DeriveDocument(m *mapping.TextFieldMapping, values StoredValues, docID uint32) (derived []string, ok bool, err error) {
	if r := reason(m); r != "" {
		return nil, false, mserrors.UnsupportedDerivation(m.Name(), r)
	}
	vs := values.StoredFieldValues(m.Name(), docID)
	if len(vs) == 0 {
		return nil, false, nil
	}
	return vs, true, nil
}

func reason(m *mapping.TextFieldMapping) string {
	switch {
	case !m.Stored():
		return "field is not stored"
	case len(m.CopyTo()) > 0:
		return "field has copy_to targets"
	default:
		return ""
	}
}
