// Package broadcast provides a topic-keyed publish/subscribe hub for pushing
// events from request-handling code to live user sessions.
//
// The hub offers at-most-once delivery with no durability and no replay:
// subscribers only see messages published while they are subscribed, and a
// session that attaches late must reconcile from authoritative state instead.
// Sends never block; messages are dropped for slow consumers.
package broadcast
