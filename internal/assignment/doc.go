// Package assignment resolves which backing system serves a feature
// for a given user. Resolution is deterministic for identified users
// under per-user splitting (hash of the user id against the split
// percentage, cached per session) and random per call for anonymous
// traffic.
package assignment
