package llm

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventReader(t *testing.T) {
	body := ": keep-alive\n\n" +
		"data: {\"a\":1}\n\n" +
		"event: message\n" +
		"data: line one\n" +
		"data: line two\n\n" +
		"data: tail"

	r := NewEventReader(strings.NewReader(body))

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(first))

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(second))

	third, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "tail", string(third))

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestApplyOptions(t *testing.T) {
	opts := ApplyOptions(Options{Model: "default", Temperature: 0.7},
		[]Option{WithModel("other"), WithMaxTokens(64), WithoutThinking()})

	assert.Equal(t, "other", opts.Model)
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 64, opts.MaxTokens)
	assert.True(t, opts.DisableThinking)
}
