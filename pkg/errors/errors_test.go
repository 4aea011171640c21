package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

func TestSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *Error
		want   bool
	}{
		{"validation", Validation("f", "bad"), ErrValidation, true},
		{"unknown analyzer is a validation error", UnknownAnalyzer("f", "analyzer", "x"), ErrValidation, true},
		{"fielddata is a validation error", FielddataDisabled("f"), ErrValidation, true},
		{"merge conflict is not", MergeConflict("f", "store", false, true), ErrValidation, false},
		{"merge conflict", MergeConflict("f", "store", false, true), ErrMergeConflict, true},
		{"wrapped", fmt.Errorf("put: %w", UnsupportedDerivation("f", "not stored")), ErrUnsupportedDerivation, true},
		{"internal", Internal("broken"), ErrInternal, true},
		{"plain error", stderrors.New("x"), ErrValidation, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.err, tt.target))
		})
	}
}

func TestMergeConflictMessage(t *testing.T) {
	err := MergeConflict("title", "index_prefixes", "{min_chars=2, max_chars=5}", "null")
	assert.Equal(t, "Cannot update parameter [index_prefixes] from [{min_chars=2, max_chars=5}] to [null]", err.Error())
	v, ok := err.Lookup("parameter")
	assert.True(t, ok)
	assert.Equal(t, "index_prefixes", v)
	assert.Equal(t, CodeMergeConflict, GetCode(err))
}

func TestCombinedErrors(t *testing.T) {
	err := multierr.Append(MergeConflict("f", "store", false, true), MergeConflict("f", "index", true, false))
	assert.True(t, Is(err, ErrMergeConflict))
	assert.Len(t, multierr.Errors(err), 2)
}

func TestWithContextDoesNotMutate(t *testing.T) {
	base := WithCode(CodeValidation, "bad")
	withField := base.WithContext("field", "title")
	_, ok := base.Lookup("field")
	assert.False(t, ok)
	v, _ := withField.Lookup("field")
	assert.Equal(t, "title", v)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "x"))
	inner := Validation("f", "bad")
	w := Wrapf(inner, "while building [%s]", "f")
	assert.Equal(t, CodeValidation, w.Code)
	assert.Equal(t, inner, Cause(w))
	assert.True(t, Is(w, ErrValidation))
}
