package repository

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	"github.com/opensource-finance/leadscore/internal/domain"
	_ "github.com/lib/pq"
)

// openPostgres connects with PostgresURL when set, otherwise with a URL
// built from the individual settings.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	dsn := cfg.PostgresURL
	if dsn == "" {
		dsn = postgresDSN(cfg)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}

// postgresDSN builds a postgres:// URL so credentials containing spaces
// or quotes survive intact.
func postgresDSN(cfg domain.RepositoryConfig) string {
	host := cmpOr(cfg.PostgresHost, "localhost")
	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + strconv.Itoa(port),
		Path:   "/" + cmpOr(cfg.PostgresDB, "leadscore"),
	}
	if cfg.PostgresUser != "" {
		u.User = url.UserPassword(cfg.PostgresUser, cfg.PostgresPassword)
	}

	q := url.Values{}
	q.Set("sslmode", cmpOr(cfg.PostgresSSLMode, "disable"))
	q.Set("application_name", "leadscore")
	q.Set("connect_timeout", "10")
	u.RawQuery = q.Encode()

	return u.String()
}

func cmpOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
