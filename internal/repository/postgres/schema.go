package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id            TEXT PRIMARY KEY,
        name          TEXT NOT NULL,
        email         TEXT NOT NULL UNIQUE,
        password_hash TEXT NOT NULL DEFAULT '',
        role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
        phone         TEXT NOT NULL DEFAULT '',
        avatar        TEXT NOT NULL DEFAULT '',
        created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS products (
        id               TEXT PRIMARY KEY,
        name             TEXT NOT NULL,
        description      TEXT NOT NULL,
        price            DOUBLE PRECISION NOT NULL CHECK (price >= 0),
        image_urls       TEXT[] NOT NULL DEFAULT '{}',
        image_public_ids TEXT[] NOT NULL DEFAULT '{}',
        category         TEXT NOT NULL,
        brand            TEXT NOT NULL,
        stock            INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
        rating           DOUBLE PRECISION NOT NULL DEFAULT 0,
        num_reviews      INTEGER NOT NULL DEFAULT 0,
        created_by       TEXT NOT NULL DEFAULT '',
        is_featured      BOOLEAN NOT NULL DEFAULT FALSE,
        created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS reviews (
        id         TEXT PRIMARY KEY,
        product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
        user_id    TEXT NOT NULL,
        name       TEXT NOT NULL,
        rating     SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
        comment    TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE (product_id, user_id)
    )`,
	`CREATE TABLE IF NOT EXISTS orders (
        id               TEXT PRIMARY KEY,
        user_id          TEXT NOT NULL,
        shipping_address JSONB NOT NULL,
        payment_method   TEXT NOT NULL,
        payment_result   JSONB,
        items_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
        tax_price        DOUBLE PRECISION NOT NULL DEFAULT 0,
        shipping_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
        total_price      DOUBLE PRECISION NOT NULL DEFAULT 0,
        is_paid          BOOLEAN NOT NULL DEFAULT FALSE,
        paid_at          TIMESTAMPTZ,
        is_delivered     BOOLEAN NOT NULL DEFAULT FALSE,
        delivered_at     TIMESTAMPTZ,
        status           TEXT NOT NULL DEFAULT 'Processing',
        created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS order_items (
        order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
        position   INTEGER NOT NULL,
        product_id TEXT NOT NULL,
        name       TEXT NOT NULL,
        image      TEXT NOT NULL DEFAULT '',
        price      DOUBLE PRECISION NOT NULL CHECK (price >= 0),
        quantity   INTEGER NOT NULL CHECK (quantity > 0),
        PRIMARY KEY (order_id, position)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews (product_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_products_created ON products (created_at DESC)`,
}

// Migrate creates the tables the repositories use when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB, logger *logrus.Logger) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement %d: %w", i+1, err)
		}
	}
	logger.Info("Repository: Postgres schema is up to date")
	return nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// withTx runs fn inside a transaction, committing on success and rolling back on error or panic.
func withTx(ctx context.Context, db *sql.DB, log *logrus.Logger, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Errorf("Repository: Failed to begin transaction: %v", err)
		return fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("Repository: Recovered from panic, rolling back transaction")
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			log.Warnf("Repository: Rolling back transaction due to error: %v", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Errorf("Repository: Failed to rollback transaction: %v", rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				log.Errorf("Repository: Failed to commit transaction: %v", cErr)
				err = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	return fn(tx)
}
