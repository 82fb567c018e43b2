package cmp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dibollinger/CookieBlock-Crawler-Prototype/internal/model"
)

// Resolver runs the registered adapters against a rendered page and
// returns the first one whose platform fingerprint matches. Registration
// order is the priority order.
type Resolver struct {
	adapters []Adapter
	logger   *slog.Logger
}

// NewResolver creates a resolver over all supported platforms, in the
// default priority order.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		adapters: []Adapter{
			NewCookiebot(logger),
			NewOneTrust(logger),
			NewTermly(logger),
		},
		logger: logger,
	}
}

// NewSingleResolver creates a resolver restricted to one platform, for
// crawls that target a known provider.
func NewSingleResolver(target model.CMP, logger *slog.Logger) (*Resolver, error) {
	r := NewResolver(logger)
	for _, a := range r.adapters {
		if a.CMP() == target {
			r.adapters = []Adapter{a}
			return r, nil
		}
	}
	return nil, fmt.Errorf("no adapter for platform %q", target)
}

// Resolve detects which platform the page uses. The first adapter that
// reports a fingerprint wins, even when it could not extract an
// identifier; a fingerprinted page is never attributed to a lower
// priority platform. ErrNotDetected is returned when no adapter matches.
func (r *Resolver) Resolve(ctx context.Context, page RenderedPage) (Adapter, *model.Identifier, error) {
	for _, a := range r.adapters {
		id, present, err := a.Detect(ctx, page)
		if !present {
			if err != nil {
				return nil, nil, fmt.Errorf("%s detection failed: %w", a.CMP(), err)
			}
			continue
		}
		if err != nil {
			return a, nil, fmt.Errorf("%s detected but unusable: %w", a.CMP(), err)
		}
		r.logger.Debug("consent platform detected", "cmp", a.CMP().String(), "identifier", id.Value)
		return a, id, nil
	}
	return nil, nil, ErrNotDetected
}
