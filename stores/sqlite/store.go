package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"apparel-studio/core"
	"apparel-studio/stores/record"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		password_hash BLOB,
		created_at INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS designs (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		product_id TEXT,
		data BLOB,
		created_at INTEGER,
		PRIMARY KEY (user_id, id)
	);`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		data BLOB,
		created_at INTEGER,
		PRIMARY KEY (user_id, id)
	);`,
}

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}
	// One connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	store, err := NewStoreWithDB(db)
	if err != nil {
		log.Fatalf("failed to initialise sqlite schema: %v", err)
	}
	return store
}

// NewStoreWithDB wraps an open database and ensures the schema exists.
func NewStoreWithDB(db *sql.DB) (*sqliteStore, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &sqliteStore{db}, nil
}

// DesignStore implementation
func (s *sqliteStore) SaveDesign(ctx context.Context, design *core.SavedDesign) error {
	log := logrus.WithFields(logrus.Fields{"user_id": design.UserID, "design_id": design.ID})

	data, err := json.Marshal(design)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM designs WHERE user_id = ? AND id = ?", design.UserID, design.ID).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("design %s: %w", design.ID, core.ErrAlreadyExists)
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO designs (id, user_id, product_id, data, created_at) VALUES (?, ?, ?, ?, ?)",
		design.ID, design.UserID, design.ProductID, data, nanos(design.CreatedAt))
	if err != nil {
		log.WithError(err).Error("Failed to insert design")
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info("Design saved successfully")
	return nil
}

func (s *sqliteStore) ListDesigns(ctx context.Context, userID string) ([]*core.SavedDesign, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM designs WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	designs := []*core.SavedDesign{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var design core.SavedDesign
		if err := json.Unmarshal(data, &design); err != nil {
			return nil, fmt.Errorf("decode design: %w", err)
		}
		designs = append(designs, &design)
	}
	return designs, rows.Err()
}

func (s *sqliteStore) GetDesign(ctx context.Context, userID, id string) (*core.SavedDesign, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM designs WHERE user_id = ? AND id = ?", userID, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id}).Warn("Design not found for user")
			return nil, fmt.Errorf("design %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}

	var design core.SavedDesign
	if err := json.Unmarshal(data, &design); err != nil {
		return nil, fmt.Errorf("decode design: %w", err)
	}
	return &design, nil
}

func (s *sqliteStore) DeleteDesign(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM designs WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id}).Info("Design deleted successfully")
	return nil
}

// OrderStore implementation
func (s *sqliteStore) CreateOrder(ctx context.Context, order *core.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO orders (id, user_id, data, created_at) VALUES (?, ?, ?, ?)",
		order.ID, order.UserID, data, nanos(order.CreatedAt))
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to insert order")
		return err
	}
	logrus.WithFields(logrus.Fields{"user_id": order.UserID, "order_id": order.ID}).Info("Order created successfully")
	return nil
}

func (s *sqliteStore) ListOrders(ctx context.Context, userID string) ([]*core.Order, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM orders WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*core.Order{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var order core.Order
		if err := json.Unmarshal(data, &order); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		orders = append(orders, &order)
	}
	return orders, rows.Err()
}

func (s *sqliteStore) GetOrder(ctx context.Context, userID, id string) (*core.Order, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM orders WHERE user_id = ? AND id = ?", userID, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}

	var order core.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &order, nil
}

// UserStore implementation
func (s *sqliteStore) CreateUser(ctx context.Context, user *core.User) error {
	email := record.NormalizeEmail(user.Email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE email = ?", email).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("user %s: %w", email, core.ErrAlreadyExists)
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	_, err = tx.ExecContext(ctx, "INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, email, user.Name, user.PasswordHash, nanos(user.CreatedAt))
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	logrus.WithField("user_id", user.ID).Info("User created successfully")
	return nil
}

func (s *sqliteStore) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	email = record.NormalizeEmail(email)

	var (
		user      core.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?", email).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, core.ErrNotFound)
		}
		return nil, err
	}
	user.CreatedAt = unixNano(createdAt)
	return &user, nil
}
