package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopkit/order/internal/dal/interfaces/ibasketrepo"
	"github.com/shopkit/order/internal/service/models/basket"
	"github.com/shopkit/order/internal/service/models/currency"
	"github.com/shopkit/order/internal/service/models/product"
	"github.com/shopkit/order/internal/service/ordererr"
)

const tableBaskets = "baskets"

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// BasketDal represents a basket data access layer model.
type BasketDal struct {
	Id        int64     `db:"id"`
	Uid       int64     `db:"uid"`
	Hash      string    `db:"hash"`
	Products  []byte    `db:"products"`
	Currency  string    `db:"currency"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ToModel converts BasketDal to the service layer Basket model.
func (d *BasketDal) ToModel() *basket.Basket {
	return &basket.Basket{
		ID:        d.Id,
		UserID:    d.Uid,
		Hash:      d.Hash,
		Products:  product.ListFromJSON(d.Products),
		Currency:  currency.ParseOrDefault(d.Currency),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// PostgresBasketRepository represents a Postgres basket repository.
type PostgresBasketRepository struct {
	conn GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresBasketRepository creates a new Postgres basket repository.
func NewPostgresBasketRepository(conn GenericConn) *PostgresBasketRepository {
	return &PostgresBasketRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var _ ibasketrepo.IBasketRepository = (*PostgresBasketRepository)(nil)

var basketColumns = []string{"id", "uid", "hash", "products", "currency", "created_at", "updated_at"}

// Insert creates a basket row and returns its id.
func (r *PostgresBasketRepository) Insert(ctx context.Context, b *basket.Basket) (int64, error) {
	query, args, err := r.sb.Insert(tableBaskets).
		Columns("uid", "hash", "products", "currency", "created_at", "updated_at").
		Values(b.UserID, b.Hash, product.ListToJSON(b.Products), b.Currency.String(), b.CreatedAt, b.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert query: %w", err)
	}

	var id int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert basket: %w", err)
	}

	return id, nil
}

func (r *PostgresBasketRepository) getOne(ctx context.Context, where sq.Sqlizer) (*basket.Basket, error) {
	query, args, err := r.sb.Select(basketColumns...).
		From(tableBaskets).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal BasketDal
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&dal.Id, &dal.Uid, &dal.Hash, &dal.Products, &dal.Currency,
		&dal.CreatedAt, &dal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererr.ErrBasketNotFound
		}

		return nil, fmt.Errorf("failed to scan basket: %w", err)
	}

	return dal.ToModel(), nil
}

// GetByID retrieves a basket by id.
func (r *PostgresBasketRepository) GetByID(ctx context.Context, id int64) (*basket.Basket, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetByUser retrieves the basket of a user.
func (r *PostgresBasketRepository) GetByUser(ctx context.Context, userID int64) (*basket.Basket, error) {
	return r.getOne(ctx, sq.Eq{"uid": userID})
}

// GetByHash retrieves the basket bound to an in-process order hash.
func (r *PostgresBasketRepository) GetByHash(ctx context.Context, hash string) (*basket.Basket, error) {
	return r.getOne(ctx, sq.Eq{"hash": hash})
}

// Update persists a basket.
func (r *PostgresBasketRepository) Update(ctx context.Context, b *basket.Basket) error {
	query, args, err := r.sb.Update(tableBaskets).
		Set("hash", b.Hash).
		Set("products", product.ListToJSON(b.Products)).
		Set("currency", b.Currency.String()).
		Set("updated_at", b.UpdatedAt).
		Where(sq.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update basket: %w", err)
	}

	return nil
}

// Delete removes a basket row.
func (r *PostgresBasketRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete(tableBaskets).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete basket: %w", err)
	}

	return nil
}
