package kafka

import (
	"context"

	"github.com/graphetch/graphetch/internal/domain/auth"
)

// AuthEvents publishes auth lifecycle events keyed by user id so a consumer
// sees one user's events in order.
type AuthEvents struct {
	p *Producer
}

var _ auth.EventSink = (*AuthEvents)(nil)

func NewAuthEvents(p *Producer) *AuthEvents { return &AuthEvents{p: p} }

func (s *AuthEvents) Publish(ctx context.Context, ev auth.Event) error {
	return s.p.PublishJSON(ctx, KeyFromInt64(ev.UserID), ev)
}
