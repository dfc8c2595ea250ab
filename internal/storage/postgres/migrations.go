package postgres

import (
	"database/sql"
	"fmt"
)

// migrations are applied in order on startup. Statements are idempotent so
// re-running on an existing database is safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		subtotal DOUBLE PRECISION NOT NULL,
		tax_amount DOUBLE PRECISION NOT NULL,
		service_charge_amount DOUBLE PRECISION NOT NULL,
		total_amount DOUBLE PRECISION NOT NULL,
		ocr_data JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		id TEXT PRIMARY KEY,
		bill_id TEXT NOT NULL REFERENCES bills(id),
		name TEXT NOT NULL,
		email TEXT,
		total_owed DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		bill_id TEXT NOT NULL REFERENCES bills(id),
		name TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		quantity INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES items(id),
		participant_id TEXT NOT NULL REFERENCES participants(id),
		bill_id TEXT NOT NULL REFERENCES bills(id),
		portion DOUBLE PRECISION NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bills_owner ON bills(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_bill ON participants(bill_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_bill ON items(bill_id)`,
	`CREATE INDEX IF NOT EXISTS idx_allocations_item ON allocations(item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_allocations_participant ON allocations(participant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_allocations_bill ON allocations(bill_id)`,
}

// Migrate brings the schema up to date.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
