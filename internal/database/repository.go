package database

import (
	"context"
	"fmt"
	"time"

	"forex-entry-bot/internal/market"
	"forex-entry-bot/internal/orders"
	"forex-entry-bot/internal/strategy"
)

// Repository provides data access for decisions and placed orders.
// It implements strategy.DecisionRecorder.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check.
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// RecordDecision inserts one evaluation decision.
func (r *Repository) RecordDecision(ctx context.Context, d strategy.Decision) error {
	query := `
		INSERT INTO decisions (id, symbol, side, signal, entry_price, score, strength, factors, rejection, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Pool.Exec(
		ctx, query,
		d.ID, d.Symbol, string(d.Side), string(d.Signal), d.EntryPrice,
		d.Score, d.Strength, d.Factors, string(d.Rejection), d.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the latest decisions for a symbol, newest first.
func (r *Repository) RecentDecisions(ctx context.Context, symbol string, limit int) ([]strategy.Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, symbol, side, signal, entry_price, score, strength, factors, rejection, evaluated_at
		FROM decisions
		WHERE symbol = $1
		ORDER BY evaluated_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var out []strategy.Decision
	for rows.Next() {
		var d strategy.Decision
		var side, signal, rejection string
		if err := rows.Scan(
			&d.ID, &d.Symbol, &side, &signal, &d.EntryPrice,
			&d.Score, &d.Strength, &d.Factors, &rejection, &d.EvaluatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.Side = market.Side(side)
		d.Signal = strategy.SignalType(signal)
		d.Rejection = strategy.RejectReason(rejection)
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveOrder records a placed order.
func (r *Repository) SaveOrder(ctx context.Context, o orders.Order) error {
	query := `
		INSERT INTO placed_orders (client_order_id, symbol, side, price, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (client_order_id) DO UPDATE SET status = EXCLUDED.status
	`
	_, err := r.db.Pool.Exec(
		ctx, query,
		o.ClientOrderID, o.Symbol, string(o.Side), o.Price, o.Quantity, o.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// UpdateOrderStatus transitions a stored order.
func (r *Repository) UpdateOrderStatus(ctx context.Context, clientOrderID, status string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE placed_orders SET status = $2 WHERE client_order_id = $1`,
		clientOrderID, status,
	)
	return err
}

// PruneDecisions deletes decisions older than the retention window.
func (r *Repository) PruneDecisions(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM decisions WHERE evaluated_at < $1`,
		time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune decisions: %w", err)
	}
	return tag.RowsAffected(), nil
}
