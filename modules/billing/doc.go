// Package billing exposes the trial-subscription flow over HTTP: the
// processor webhook endpoint, the browser return/cancel redirects, the
// subscribe action and a per-user live stream of view-state updates
// pushed as datastar signal patches.
//
// The webhook boundary owns verification and parsing; only verified,
// parseable events reach the trial service, and business no-ops
// (orphans, duplicates, conflicts) are acknowledged with 200 so the
// processor never retries over outcomes it cannot fix.
package billing
