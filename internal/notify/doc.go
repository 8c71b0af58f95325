// Package notify turns endpoint state transitions into chat messages.
//
// Lifecycle, down and "up after downtime" messages are sent right away.
// Recoveries with no known down time are held by a Coalescer for a quiet
// window and flushed as one message, so a burst of endpoints coming back
// together produces a single post.
package notify
