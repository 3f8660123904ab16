package errors

import (
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesOpKindAndWrappedError(t *testing.T) {
	err := New("smg.Foo", NotFound, fmt.Errorf("note 7 missing"))
	assert.Equal(t, "smg.Foo: not_found: note 7 missing", err.Error())
}

func TestErrorMessageOmitsWrappedErrorWhenNil(t *testing.T) {
	err := New("smg.Foo", InvalidConfig, nil)
	assert.Equal(t, "smg.Foo: invalid_config", err.Error())
}

func TestUnwrapExposesUnderlyingError(t *testing.T) {
	inner := fmt.Errorf("boom")
	err := New("op", IoFailure, inner)
	assert.Same(t, inner, goerrors.Unwrap(err))
}

func TestOfFindsKindThroughWrappedStandardErrors(t *testing.T) {
	inner := New("op", DecodeFailure, nil)
	wrapped := fmt.Errorf("context: %w", inner)

	kind, ok := Of(wrapped)
	assert.True(t, ok)
	assert.Equal(t, DecodeFailure, kind)
}

func TestOfReturnsFalseForPlainErrors(t *testing.T) {
	_, ok := Of(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestIsMatchesSameKindRegardlessOfMessage(t *testing.T) {
	a := New("opA", NotFound, fmt.Errorf("x"))
	b := New("opB", NotFound, fmt.Errorf("y"))
	assert.True(t, goerrors.Is(a, b))
}

func TestIsRejectsDifferentKind(t *testing.T) {
	a := New("op", NotFound, nil)
	b := New("op", IoFailure, nil)
	assert.False(t, goerrors.Is(a, b))
}
