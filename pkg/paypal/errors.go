package paypal

import "errors"

// Processor API errors. These surface to the UI layer as user-visible
// failures and never cause a subscription state transition by themselves.
var (
	// ErrAuth indicates the processor rejected our credentials.
	ErrAuth = errors.New("paypal: authentication with processor failed")

	// ErrInvalidPlan indicates the processor does not recognize the plan id.
	ErrInvalidPlan = errors.New("paypal: plan not recognized by processor")

	// ErrNetwork indicates a transport-level failure, including timeouts.
	// Retryable by the caller; never auto-retried here.
	ErrNetwork = errors.New("paypal: network failure talking to processor")

	// ErrMalformedResponse indicates the processor answered, but the response
	// lacked a parseable id or an approval link.
	ErrMalformedResponse = errors.New("paypal: malformed processor response")

	// ErrNotFound indicates the requested resource does not exist on the
	// processor side.
	ErrNotFound = errors.New("paypal: resource not found on processor")
)

// Webhook verification errors. A failed verification means the event must
// never reach the state machine.
var (
	// ErrVerificationFailed is the umbrella for any webhook authenticity
	// failure: missing headers, certificate fetch or chain problems, or a
	// signature mismatch.
	ErrVerificationFailed = errors.New("paypal: webhook verification failed")

	// ErrCertUnavailable indicates the signing certificate could not be
	// fetched or parsed.
	ErrCertUnavailable = errors.New("paypal: signing certificate unavailable")

	// ErrUntrustedCert indicates the certificate chain does not lead to a
	// trusted processor root.
	ErrUntrustedCert = errors.New("paypal: signing certificate not issued by trusted root")
)
