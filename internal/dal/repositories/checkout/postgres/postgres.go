package postgresrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopkit/order/internal/dal/interfaces/icheckoutrepo"
	"github.com/shopkit/order/internal/service/models/checkoutstate"
)

const tableCheckout = "checkout_state"

var errStateNotFound = errors.New("checkout state not found")

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresCheckoutRepository persists checkout contexts keyed by order
// hash, in the same store as the draft orders they belong to.
type PostgresCheckoutRepository struct {
	conn GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresCheckoutRepository creates a new Postgres checkout repository.
func NewPostgresCheckoutRepository(conn GenericConn) *PostgresCheckoutRepository {
	return &PostgresCheckoutRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var _ icheckoutrepo.ICheckoutRepository = (*PostgresCheckoutRepository)(nil)

// Get loads the checkout context of a draft.
func (r *PostgresCheckoutRepository) Get(ctx context.Context, hash string) (*checkoutstate.State, error) {
	query, args, err := r.sb.Select("hash", "current_step", "messages", "flags", "updated_at").
		From(tableCheckout).
		Where(sq.Eq{"hash": hash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var (
		messages, flags []byte
		state           = checkoutstate.New(hash)
	)
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&state.OrderHash, &state.CurrentStep, &messages, &flags, &state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errStateNotFound
		}

		return nil, fmt.Errorf("failed to scan checkout state: %w", err)
	}

	// Corrupt JSON degrades to an empty context, the checkout restarts
	// from the first step instead of failing.
	if err := json.Unmarshal(messages, &state.Messages); err != nil {
		state.Messages = map[string][]string{}
	}
	if err := json.Unmarshal(flags, &state.Flags); err != nil {
		state.Flags = map[string]bool{}
	}

	return state, nil
}

// Save upserts the checkout context.
func (r *PostgresCheckoutRepository) Save(ctx context.Context, state *checkoutstate.State) error {
	messages, err := json.Marshal(state.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode step messages: %w", err)
	}
	flags, err := json.Marshal(state.Flags)
	if err != nil {
		return fmt.Errorf("failed to encode checkout flags: %w", err)
	}

	query, args, err := r.sb.Insert(tableCheckout).
		Columns("hash", "current_step", "messages", "flags", "updated_at").
		Values(state.OrderHash, state.CurrentStep, messages, flags, time.Now()).
		Suffix(`ON CONFLICT (hash) DO UPDATE SET
			current_step = EXCLUDED.current_step,
			messages = EXCLUDED.messages,
			flags = EXCLUDED.flags,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save checkout state: %w", err)
	}

	return nil
}

// Delete removes the checkout context of a draft.
func (r *PostgresCheckoutRepository) Delete(ctx context.Context, hash string) error {
	query, args, err := r.sb.Delete(tableCheckout).Where(sq.Eq{"hash": hash}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete checkout state: %w", err)
	}

	return nil
}
