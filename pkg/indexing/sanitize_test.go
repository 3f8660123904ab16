package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTextReplacesControlCharactersWithSpace(t *testing.T) {
	assert.Equal(t, "Hello World Test", SanitizeText("Hello\x00World\x01Test"))
}

func TestSanitizeTextPreservesTabNewlineAndCarriageReturn(t *testing.T) {
	in := "Line 1\nLine 2\tTabbed\rCarriage"
	assert.Equal(t, in, SanitizeText(in))
}

func TestSanitizeTextEmptyStringIsNoOp(t *testing.T) {
	assert.Equal(t, "", SanitizeText(""))
}
