// Package handler contains the gateway's HTTP surface: the proxy
// handler routing feature traffic to upstreams and the admin API for
// operators.
package handler
