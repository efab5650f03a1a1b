package storage

import "database/sql"

// schema is idempotent DDL for all persisted tables.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS principals (
		id          BIGSERIAL PRIMARY KEY,
		username    TEXT NOT NULL UNIQUE,
		first_name  TEXT NOT NULL DEFAULT '',
		last_name   TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		is_active   BOOLEAN NOT NULL DEFAULT TRUE,
		is_staff    BOOLEAN NOT NULL DEFAULT FALSE,
		has_usable_password BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS auth_tokens (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL UNIQUE REFERENCES principals(id) ON DELETE CASCADE,
		token      TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS inventories (
		id      BIGSERIAL PRIMARY KEY,
		name    TEXT NOT NULL,
		date    DATE NOT NULL,
		user_id BIGINT NOT NULL REFERENCES principals(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventories_user_id ON inventories(user_id)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		id                  BIGSERIAL PRIMARY KEY,
		inventory_id        BIGINT NOT NULL REFERENCES inventories(id) ON DELETE CASCADE,
		department          INTEGER NOT NULL,
		asset_group         INTEGER NOT NULL,
		category            TEXT NOT NULL,
		inventory_number    TEXT NOT NULL,
		asset_component     BIGINT NOT NULL,
		sub_number          INTEGER NOT NULL,
		acquisition_date    DATE NOT NULL,
		asset_description   TEXT NOT NULL,
		quantity            INTEGER NOT NULL,
		initial_value       NUMERIC(10,2) NOT NULL,
		last_inventory_room TEXT NOT NULL,
		current_room        TEXT,
		scanned             BOOLEAN
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_items_inventory_id ON inventory_items(inventory_id)`,
}

// InitSchema creates all tables if they do not exist
func InitSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
