// Package monitor evaluates native-system statistics against
// configured thresholds after every recorded sample and force-reverts
// all features to the legacy system on breach. The rolled-back state
// is terminal until an operator resets it.
package monitor
