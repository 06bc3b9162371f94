// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling and tern for embedded schema migrations.
// Repositories implement domain interfaces: HymnRepository, ServiceRepository.
package database
