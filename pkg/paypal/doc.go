// Package paypal is a thin client for the billing processor's REST API plus
// a verifier for its webhook transmissions.
//
// The client covers exactly the three calls the trial funnel needs: creating
// a subscription, fetching a subscription's status (reconciliation fallback
// poll), and fetching a plan (diagnostics). Credentials are exchanged for
// bearer tokens via OAuth2 client credentials; tokens are cached and
// refreshed transparently. Every call carries a bounded timeout.
//
// The verifier authenticates inbound webhooks against the processor's
// certificate chain: it fetches and caches the signing certificate, checks
// the chain against the configured roots, reconstructs the canonical signing
// string (transmission id, transmission time, webhook id, CRC-32 of the raw
// body) and verifies the RSA-SHA256 signature. Verification fails closed.
package paypal
