package llm

import (
	"context"

	"codepilot-be/pkg/apperror"
)

// UnconfiguredProvider stands in for a backend whose credentials were
// missing at startup. Every call fails before any network I/O.
type UnconfiguredProvider struct {
	name   string
	reason string
}

var _ LLMProvider = (*UnconfiguredProvider)(nil)

func NewUnconfiguredProvider(name, reason string) *UnconfiguredProvider {
	return &UnconfiguredProvider{name: name, reason: reason}
}

func (p *UnconfiguredProvider) Name() string {
	return p.name
}

func (p *UnconfiguredProvider) Generate(context.Context, string, string, ...Option) (string, error) {
	return "", apperror.Configuration("%s", p.reason)
}

func (p *UnconfiguredProvider) StreamChat(context.Context, string, []Message, string, ...Option) (Stream, error) {
	return nil, apperror.Configuration("%s", p.reason)
}
