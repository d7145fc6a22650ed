// Package gateway maps resolved assignments to healthy upstreams,
// falling back toward the legacy system when the assigned upstream is
// unavailable.
package gateway
