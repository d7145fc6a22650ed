package gateway

import (
	"fmt"

	"github.com/angeloszaimis/migration-gateway/internal/assignment"
	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/upstream"
	"github.com/angeloszaimis/migration-gateway/pkg/metrics"
)

// Gateway turns an assignment decision into a concrete healthy
// upstream. When the assigned system's upstream is down the request
// falls back along the chain cognito -> native -> legacy so traffic
// keeps flowing during a partial outage.
type Gateway struct {
	resolver  *assignment.Resolver
	upstreams map[feature.System]*upstream.Upstream
}

func New(resolver *assignment.Resolver, upstreams map[feature.System]*upstream.Upstream) *Gateway {
	return &Gateway{
		resolver:  resolver,
		upstreams: upstreams,
	}
}

// Route resolves the assignment for (feature, user) and reserves a
// healthy upstream for it. The returned system is the one actually
// serving the request, which may differ from the assignment after a
// fallback. Callers must DecrementConn on the returned upstream.
func (g *Gateway) Route(f feature.Feature, userID string) (*upstream.Upstream, feature.System, error) {
	assigned := g.resolver.Resolve(f, userID)
	metrics.AssignmentsTotal.WithLabelValues(string(f), string(assigned)).Inc()

	for _, sys := range fallbackChain(assigned) {
		up, ok := g.upstreams[sys]
		if !ok || !up.IsHealthy() {
			continue
		}

		up.IncrementConn()
		return up, sys, nil
	}

	return nil, "", fmt.Errorf("no healthy upstream for feature %q (assigned %q)", f, assigned)
}

// Resolver returns the resolver routing decisions are made with.
func (g *Gateway) Resolver() *assignment.Resolver {
	return g.resolver
}

// Upstreams returns the configured upstream map.
func (g *Gateway) Upstreams() map[feature.System]*upstream.Upstream {
	return g.upstreams
}

func fallbackChain(sys feature.System) []feature.System {
	switch sys {
	case feature.SystemCognito:
		return []feature.System{feature.SystemCognito, feature.SystemNative, feature.SystemLegacy}
	case feature.SystemNative:
		return []feature.System{feature.SystemNative, feature.SystemLegacy}
	default:
		return []feature.System{feature.SystemLegacy}
	}
}
