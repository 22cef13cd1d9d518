// Package trialkit provides shared HTTP helpers used across the
// application's modules, most notably detection of datastar requests
// and construction of Server-Sent Event streams for them.
package trialkit
