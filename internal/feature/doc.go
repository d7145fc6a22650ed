// Package feature defines the fixed set of routable features and the
// systems and modes they can be routed to. Every feature targets one of
// two backing systems (legacy or native); authentication additionally
// supports a dedicated cognito path.
package feature
