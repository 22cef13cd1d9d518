// Package trial reconciles paid-trial subscription attempts against an
// external billing processor.
//
// An Attempt tracks one user's run at establishing a trial subscription
// through the states none, pending_creation, approval_pending and the
// terminal states active, cancelled and failed. Authoritative status
// comes only from verified processor webhooks or the reconciliation
// poll; terminal states are sticky, so racing transitions resolve by
// whichever terminal outcome lands first rather than by locking.
//
// The service arms a one-shot reconciliation check when the processor
// confirms creation: if no settling webhook arrives before the deadline,
// the subscription is polled directly and an ACTIVE result activates
// the attempt while anything else abandons it.
//
// Applied transitions are published to the owning user's topic on a
// broadcast.Hub so presentation layers can follow along live.
//
// Attempt persistence is pluggable via AttemptStore, with in-memory,
// Redis and PostgreSQL implementations provided.
package trial
