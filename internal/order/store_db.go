package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	seq               BIGSERIAL,
	payment_intent_id TEXT PRIMARY KEY,
	order_id          TEXT NOT NULL,
	items             JSONB NOT NULL,
	total             DOUBLE PRECISION NOT NULL,
	status            TEXT NOT NULL,
	customer_info     JSONB,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ
)`

const orderColumns = `order_id, payment_intent_id, items, total, status, customer_info, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens a pgx-backed *sql.DB and checks connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.PingContext)
}

func (s *PostgresStore) Put(ctx context.Context, o Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO orders (order_id, payment_intent_id, items, total, status, customer_info, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (payment_intent_id) DO UPDATE SET
				order_id      = EXCLUDED.order_id,
				items         = EXCLUDED.items,
				total         = EXCLUDED.total,
				status        = EXCLUDED.status,
				customer_info = EXCLUDED.customer_info,
				created_at    = EXCLUDED.created_at,
				updated_at    = EXCLUDED.updated_at
		`, o.OrderID, o.PaymentIntentID, items, o.Total, o.Status, nullJSON(o.CustomerInfo), o.CreatedAt, o.UpdatedAt)
		return err
	})
}

func (s *PostgresStore) Get(ctx context.Context, paymentIntentID string) (Order, bool, error) {
	var o Order
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, paymentIntentID)
		var err error
		o, err = scanOrder(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, err
	}
	return o, true, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Order, error) {
	var out []Order

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY seq ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Order, 0, 16)
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return err
			}
			out = append(out, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, paymentIntentID, status string, at time.Time) (Order, error) {
	var o Order
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			UPDATE orders SET status = $2, updated_at = $3
			WHERE payment_intent_id = $1
			RETURNING `+orderColumns, paymentIntentID, status, at.UTC())
		var err error
		o, err = scanOrder(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(sc scanner) (Order, error) {
	var (
		o            Order
		items        []byte
		customerInfo []byte
		updatedAt    sql.NullTime
	)
	if err := sc.Scan(&o.OrderID, &o.PaymentIntentID, &items, &o.Total, &o.Status, &customerInfo, &o.CreatedAt, &updatedAt); err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode items: %w", err)
	}
	if len(customerInfo) > 0 {
		o.CustomerInfo = json.RawMessage(customerInfo)
	}
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		o.UpdatedAt = &t
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
