package encoding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tokcount/internal/port"
)

func TestTiktokenProvider_ImplementsProvider(t *testing.T) {
	var _ port.EncodingProvider = (*TiktokenProvider)(nil)
	var _ port.Encoder = (*Encoder)(nil)
}

func TestTiktokenProvider_GoldenCounts(t *testing.T) {
	p := NewTiktokenProvider(true, zaptest.NewLogger(t))

	enc, err := p.Resolve("cl100k_base")
	require.NoError(t, err)
	assert.Equal(t, "cl100k_base", enc.Name())

	tests := []struct {
		text     string
		expected int
	}{
		{"", 0},
		{"hello world", 2},
		{"tiktoken is great!", 6},
		{"The quick brown fox jumps over the lazy dog", 9},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Len(t, enc.Encode(tt.text), tt.expected)
		})
	}
}

func TestTiktokenProvider_SpecialTokensAsText(t *testing.T) {
	p := NewTiktokenProvider(true, nil)

	enc, err := p.Resolve("cl100k_base")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		tokens := enc.Encode("before <|endoftext|> after")
		assert.Greater(t, len(tokens), 3)
	})
}

func TestTiktokenProvider_ResolveIsMemoized(t *testing.T) {
	p := NewTiktokenProvider(true, nil)

	first, err := p.Resolve("cl100k_base")
	require.NoError(t, err)
	second, err := p.Resolve("cl100k_base")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestTiktokenProvider_UnknownEncoding(t *testing.T) {
	p := NewTiktokenProvider(true, nil)

	enc, err := p.Resolve("not_a_real_encoding")
	require.Error(t, err)
	assert.Nil(t, enc)
	assert.True(t, errors.Is(err, port.ErrUnknownEncoding))
	assert.Contains(t, err.Error(), "not_a_real_encoding")
}
