package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContent_Deterministic(t *testing.T) {
	a := Content("the same text")
	b := Content("the same text")
	assert.Equal(t, a, b)
}

func TestContent_LineEndingInvariant(t *testing.T) {
	tests := []struct {
		name string
		lf   string
		crlf string
	}{
		{"single line break", "one\ntwo", "one\r\ntwo"},
		{"trailing newline", "body\n", "body\r\n"},
		{"multiple breaks", "a\nb\nc\n", "a\r\nb\r\nc\r\n"},
		{"mixed", "a\nb\r\nc", "a\r\nb\r\nc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Content(tt.lf), Content(tt.crlf))
		})
	}
}

func TestContent_DistinctInputsDiffer(t *testing.T) {
	assert.NotEqual(t, Content("alpha"), Content("beta"))
}

func TestContent_Format(t *testing.T) {
	digest := Content("anything")
	assert.Len(t, digest, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", digest)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a\nb\n", Normalize("a\r\nb\r\n"))
	assert.Equal(t, "untouched\n", Normalize("untouched\n"))
}
