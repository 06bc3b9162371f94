// Package config provides environment-based configuration.
//
// Loads infrastructure settings (database, redis, logging) from environment
// variables with defaults and validates required fields. The planner core
// itself takes no configuration.
package config
