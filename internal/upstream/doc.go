// Package upstream models the backing platforms the gateway proxies
// to, tracking health status, active connections and EWMA response
// times per upstream.
package upstream
