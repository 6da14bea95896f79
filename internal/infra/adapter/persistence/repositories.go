// Package persistence picks the repository implementations for the
// configured database driver.
package persistence

import (
	"database/sql"
	"fmt"

	"newssense/internal/infra/adapter/persistence/postgres"
	"newssense/internal/infra/adapter/persistence/sqlite"
	"newssense/internal/infra/db"
	"newssense/internal/repository"
	"newssense/internal/resilience/circuitbreaker"
)

// Repositories bundles the stores used by the API and the ingestion job.
type Repositories struct {
	Users    repository.UserRepository
	Articles repository.ArticleRepository
	Saved    repository.SavedArticleRepository

	// IngestArticles is the article store used by ingestion. On PostgreSQL
	// its writes go through Breaker so a down database fails fast.
	IngestArticles repository.ArticleRepository
	// Breaker is nil for SQLite.
	Breaker *circuitbreaker.DBCircuitBreaker
}

// New returns the repositories for driver backed by conn.
func New(driver string, conn *sql.DB) (Repositories, error) {
	switch driver {
	case db.DriverPostgres, "":
		breaker := circuitbreaker.NewDBCircuitBreaker(conn)
		return Repositories{
			Users:          postgres.NewUserRepo(conn),
			Articles:       postgres.NewArticleRepo(conn),
			Saved:          postgres.NewSavedArticleRepo(conn),
			IngestArticles: postgres.NewArticleRepo(breaker),
			Breaker:        breaker,
		}, nil
	case db.DriverSQLite:
		articles := sqlite.NewArticleRepo(conn)
		return Repositories{
			Users:          sqlite.NewUserRepo(conn),
			Articles:       articles,
			Saved:          sqlite.NewSavedArticleRepo(conn),
			IngestArticles: articles,
		}, nil
	default:
		return Repositories{}, fmt.Errorf("repositories: unsupported driver %q", driver)
	}
}
