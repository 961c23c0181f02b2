package llm

import (
	"context"
	"testing"

	"codepilot-be/pkg/apperror"

	"github.com/stretchr/testify/assert"
)

func TestUnconfiguredProviderFailsFast(t *testing.T) {
	p := NewUnconfiguredProvider("gemini", "API_KEY environment variable not set.")

	_, err := p.Generate(context.Background(), "sys", "hello")
	assert.True(t, apperror.IsConfiguration(err))
	assert.EqualError(t, err, "API_KEY environment variable not set.")

	stream, err := p.StreamChat(context.Background(), "sys", nil, "hello")
	assert.Nil(t, stream)
	assert.True(t, apperror.IsConfiguration(err))
}
