package store

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/fundwatch/internal/funds/domain"
)

var tracer = otel.Tracer("favorites-store")

// tracedStore wraps a FavoriteStore with spans
type tracedStore struct {
	backend string
	next    domain.FavoriteStore
}

// WithTracing decorates next so every call records a span
func WithTracing(backend string, next domain.FavoriteStore) domain.FavoriteStore {
	return &tracedStore{backend: backend, next: next}
}

func (s *tracedStore) List(ctx context.Context, user domain.UserKey) ([]string, error) {
	ctx, span := tracer.Start(ctx, "favorites.List",
		trace.WithAttributes(
			attribute.String("store.backend", s.backend),
			attribute.String("user.key", string(user)),
		),
	)
	defer span.End()

	favorites, err := s.next.List(ctx, user)
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(favorites)))
	return favorites, nil
}

func (s *tracedStore) Add(ctx context.Context, user domain.UserKey, code string) error {
	ctx, span := tracer.Start(ctx, "favorites.Add",
		trace.WithAttributes(
			attribute.String("store.backend", s.backend),
			attribute.String("user.key", string(user)),
			attribute.String("fund.code", code),
		),
	)
	defer span.End()

	if err := s.next.Add(ctx, user, code); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func (s *tracedStore) Remove(ctx context.Context, user domain.UserKey, code string) error {
	ctx, span := tracer.Start(ctx, "favorites.Remove",
		trace.WithAttributes(
			attribute.String("store.backend", s.backend),
			attribute.String("user.key", string(user)),
			attribute.String("fund.code", code),
		),
	)
	defer span.End()

	if err := s.next.Remove(ctx, user, code); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
