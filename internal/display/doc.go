// Package display carries snapshots to the external rendering collaborator
// over Redis Pub/Sub and watches for display attach/detach events.
package display
