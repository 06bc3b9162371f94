// Package session keeps the in-memory current-service view consistent with
// the store across app lifecycle transitions (foreground/background) and
// external-display attach/detach events.
package session
