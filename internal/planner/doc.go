// Package planner implements the service operations layer.
//
// Orchestrates use cases over the hymn library and worship services: today's
// service creation, add/remove/reorder/clear, activation, and plan loading
// with orphan pruning. Depends on domain interfaces, not concrete
// implementations.
package planner
