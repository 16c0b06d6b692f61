// Package postgres opens the shared database handle. Repositories get a
// plain *sql.DB; connection options live with the caller's config.
package postgres

import (
	"database/sql"
	"fmt"
	"time"
)

type ConnectionInfo struct {
	Host     string
	Port     int
	Username string
	DBName   string
	SSLMode  string
	Password string
}

func NewPostgresConnection(info ConnectionInfo) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s password=%s",
		info.Host,
		info.Port,
		info.Username,
		info.DBName,
		info.SSLMode,
		info.Password,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func Close(db *sql.DB) {
	if db == nil {
		return
	}
	_ = db.Close()
}
