package upstream

import (
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
)

// Upstream is one backing platform behind the gateway, with health
// status, connection tracking and response time monitoring.
type Upstream struct {
	system            feature.System
	url               *url.URL
	proxy             *httputil.ReverseProxy
	mutex             sync.Mutex
	isHealthy         bool
	activeConnections int
	ewmaResponseTime  time.Duration
	hasEWMA           bool
}

const ewmaAlpha = 0.2

// New creates an Upstream for the given system. Upstreams start
// healthy.
func New(system feature.System, u *url.URL) *Upstream {
	return &Upstream{
		system:    system,
		url:       u,
		proxy:     httputil.NewSingleHostReverseProxy(u),
		isHealthy: true,
	}
}

// System returns the backing system this upstream implements.
func (u *Upstream) System() feature.System {
	return u.system
}

// URL returns the upstream base URL.
func (u *Upstream) URL() *url.URL {
	return u.url
}

// ReverseProxy returns the HTTP reverse proxy for this upstream.
func (u *Upstream) ReverseProxy() *httputil.ReverseProxy {
	return u.proxy
}

// IncrementConn increments the active connection count.
func (u *Upstream) IncrementConn() {
	u.mutex.Lock()
	u.activeConnections++
	u.mutex.Unlock()
}

// DecrementConn decrements the active connection count.
func (u *Upstream) DecrementConn() {
	u.mutex.Lock()
	if u.activeConnections > 0 {
		u.activeConnections--
	}
	u.mutex.Unlock()
}

// ActiveConnections returns the current number of active connections.
func (u *Upstream) ActiveConnections() int {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.activeConnections
}

// IsHealthy returns true if the upstream is currently healthy.
func (u *Upstream) IsHealthy() bool {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.isHealthy
}

// SetHealthy updates the upstream's health status.
// Returns true if the status changed.
func (u *Upstream) SetHealthy(healthy bool) (changed bool) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if u.isHealthy == healthy {
		return false
	}

	u.isHealthy = healthy
	return true
}

// RecordResponse updates the exponentially weighted moving average
// response time with the latest request duration.
func (u *Upstream) RecordResponse(duration time.Duration) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		u.ewmaResponseTime = duration
		u.hasEWMA = true
		return
	}
	//ewma = (1 - α) * ewma + α * latest
	u.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(u.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the moving average response time, 0 before any
// response has been recorded.
func (u *Upstream) EWMATime() time.Duration {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	if !u.hasEWMA {
		return 0
	}

	return u.ewmaResponseTime
}
