// Package fielddata gates and builds the in-memory term ordinals that text
// fields use in place of doc values.
package fielddata

import (
	mserrors "SearchMapper/pkg/errors"
	"SearchMapper/pkg/mapping"
)

// CanEnable fails exactly when the field is not indexed: ordinals are
// rebuilt from postings, so there must be postings to scan.
func CanEnable(m *mapping.TextFieldMapping) error {
	if !m.Indexed() {
		return mserrors.FielddataDisabled(m.Name())
	}
	return nil
}

// Filter decides which terms make it into a segment's ordinals.
type Filter struct {
	Min            float64
	Max            float64
	MinSegmentSize int
}

// BuildFilter reads the frequency filter configured on m.
func BuildFilter(m *mapping.TextFieldMapping) Filter {
	ff := m.FrequencyFilter()
	return Filter{Min: ff.Min, Max: ff.Max, MinSegmentSize: ff.MinSegmentSize}
}

// Bypass reports whether a segment is too small to be filtered.
func (f Filter) Bypass(segmentDocs int) bool {
	return segmentDocs < f.MinSegmentSize
}

// Accept reports whether a term with docFreq documents in a segment of
// segmentDocs documents is loaded.
func (f Filter) Accept(docFreq, segmentDocs int) bool {
	if f.Bypass(segmentDocs) {
		return true
	}
	df := float64(docFreq)
	return df >= bound(f.Min, segmentDocs) && df <= bound(f.Max, segmentDocs)
}

// bound turns a configured bound into a document count. Values above 1 are
// absolute, the rest are ratios.
func bound(b float64, segmentDocs int) float64 {
	if b > 1 {
		return b
	}
	return b * float64(segmentDocs)
}
