package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema holds the DDL for the ticket tables. Statements are
// idempotent so EnsureSchema is safe to run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		subject     VARCHAR(255) NOT NULL,
		description TEXT NULL,
		department  VARCHAR(100) NOT NULL,
		priority    VARCHAR(16) NOT NULL,
		status      VARCHAR(16) NOT NULL DEFAULT 'open',
		created_at  DATETIME NOT NULL,
		resolved_at DATETIME NULL,
		PRIMARY KEY (id),
		KEY idx_tickets_status (status),
		KEY idx_tickets_priority (priority),
		KEY idx_tickets_department (department),
		KEY idx_tickets_created_at (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ticket_attachments (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		ticket_id     BIGINT UNSIGNED NOT NULL,
		original_name VARCHAR(255) NOT NULL,
		path          VARCHAR(255) NOT NULL,
		size_bytes    BIGINT NOT NULL DEFAULT 0,
		mime_type     VARCHAR(127) NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL,
		PRIMARY KEY (id),
		KEY idx_ticket_attachments_ticket_id (ticket_id),
		CONSTRAINT fk_ticket_attachments_ticket
			FOREIGN KEY (ticket_id) REFERENCES tickets (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the ticket tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
