package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/superdarn-canada/radarsync/internal/transfer"
)

// ErrEndpointNotFound means no search result could be verified as the
// mirror. The resolver never falls back to an unverified endpoint:
// transferring against the wrong endpoint is a correctness hazard, not a
// convenience trade-off.
var ErrEndpointNotFound = errors.New("mirror: no verified mirror endpoint found")

// EndpointSearcher is the slice of the transfer client the resolver needs.
type EndpointSearcher interface {
	SearchEndpoints(ctx context.Context, query string) ([]transfer.Endpoint, error)
}

// ResolverConfig identifies the mirror: the search query plus the two
// fields a candidate must match to be trusted.
type ResolverConfig struct {
	Query             string // display-name substring to search for
	ContactEmail      string // expected maintainer address
	DescriptionMarker string // expected substring of the description
}

// Resolver locates the mirror endpoint in the service's endpoint directory.
type Resolver struct {
	client EndpointSearcher
	cfg    ResolverConfig
	logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(client EndpointSearcher, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{client: client, cfg: cfg, logger: logger}
}

// Resolve searches for the mirror and returns the first result (in service
// order, no re-sorting) whose contact email and description both match the
// expected values. No match is a hard failure.
func (r *Resolver) Resolve(ctx context.Context) (transfer.Endpoint, error) {
	candidates, err := r.client.SearchEndpoints(ctx, r.cfg.Query)
	if err != nil {
		return transfer.Endpoint{}, fmt.Errorf("mirror: endpoint search: %w", err)
	}

	for _, ep := range candidates {
		if strings.Contains(ep.ContactEmail, r.cfg.ContactEmail) &&
			strings.Contains(ep.Description, r.cfg.DescriptionMarker) {
			r.logger.Info("mirror endpoint resolved",
				slog.String("id", ep.ID),
				slog.String("display_name", ep.DisplayName),
			)

			return ep, nil
		}
	}

	r.logger.Warn("endpoint search returned no verifiable mirror",
		slog.String("query", r.cfg.Query),
		slog.Int("candidates", len(candidates)),
	)

	return transfer.Endpoint{}, fmt.Errorf("%w: query %q", ErrEndpointNotFound, r.cfg.Query)
}
