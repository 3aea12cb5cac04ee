package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopkit/order/internal/dal/interfaces/iorderrepo"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/ordererr"
)

const (
	tableOrders = "orders"
	tableDrafts = "orders_process"
)

// GenericConn is an interface that works with both pgxpool.Pool and pgx.Tx
type GenericConn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// OrderDal represents an order data access layer model. The JSON blob
// columns stay raw bytes here; decoding is the row codec's job.
type OrderDal struct {
	Id               int64     `db:"id"`
	Hash             string    `db:"hash"`
	OrderId          int64     `db:"order_id"`
	InvoiceId        int64     `db:"invoice_id"`
	CustomerId       int64     `db:"customer_id"`
	Customer         []byte    `db:"customer"`
	AddressInvoice   []byte    `db:"address_invoice"`
	AddressDelivery  []byte    `db:"address_delivery"`
	Currency         string    `db:"currency"`
	Articles         []byte    `db:"articles"`
	Data             []byte    `db:"data"`
	PaymentId        int64     `db:"payment_id"`
	PaymentMethod    string    `db:"payment_method"`
	PaidStatus       int64     `db:"paid_status"`
	PaidDate         time.Time `db:"paid_date"`
	PaidData         []byte    `db:"paid_data"`
	ShippingId       int64     `db:"shipping_id"`
	ShippingStatus   int64     `db:"shipping_status"`
	Status           int64     `db:"status"`
	Successful       bool      `db:"successful"`
	NoAutoInvoice    bool      `db:"no_auto_invoice"`
	Comments         []byte    `db:"comments"`
	History          []byte    `db:"history"`
	FrontendMessages []byte    `db:"frontend_messages"`
	StatusMails      []byte    `db:"status_mails"`
	CUser            int64     `db:"c_user"`
	CDate            time.Time `db:"c_date"`
}

// ToModel converts the dal row into the service layer Order.
func (d *OrderDal) ToModel(stage order.Stage) (*order.Order, error) {
	return order.FromRow(order.Row{
		"id":               d.Id,
		"hash":             d.Hash,
		"order_id":         d.OrderId,
		"invoice_id":       d.InvoiceId,
		"customer_id":      d.CustomerId,
		"customer":         d.Customer,
		"address_invoice":  d.AddressInvoice,
		"address_delivery": d.AddressDelivery,
		"currency":         d.Currency,
		"articles":         d.Articles,
		"data":             d.Data,
		"payment_id":       d.PaymentId,
		"payment_method":   d.PaymentMethod,
		"paid_status":      d.PaidStatus,
		"paid_date":        d.PaidDate,
		"paid_data":        d.PaidData,
		"shipping_id":      d.ShippingId,
		"shipping_status":  d.ShippingStatus,
		"status":           d.Status,
		"successful":       d.Successful,
		"no_auto_invoice":  d.NoAutoInvoice,
		"comments":         d.Comments,
		"history":          d.History,
		"frontend_messages": d.FrontendMessages,
		"status_mails":     d.StatusMails,
		"c_user":           d.CUser,
		"c_date":           d.CDate,
	}, stage)
}

// PostgresOrderRepository persists orders in both lifecycle tables.
type PostgresOrderRepository struct {
	conn GenericConn
	sb   sq.StatementBuilderType
}

// NewPostgresOrderRepository creates a new Postgres order repository.
func NewPostgresOrderRepository(conn GenericConn) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var _ iorderrepo.IOrderRepository = (*PostgresOrderRepository)(nil)

var orderColumns = []string{
	"id", "hash", "order_id", "invoice_id", "customer_id", "customer",
	"address_invoice", "address_delivery", "currency", "articles", "data",
	"payment_id", "payment_method", "paid_status", "paid_date", "paid_data",
	"shipping_id", "shipping_status", "status", "successful", "no_auto_invoice",
	"comments", "history", "frontend_messages", "status_mails", "c_user", "c_date",
}

func insertValues(o *order.Order) map[string]interface{} {
	r := o.ToRow()

	return map[string]interface{}{
		"hash":             o.Hash,
		"order_id":         o.OrderID,
		"invoice_id":       o.InvoiceID,
		"customer_id":      o.CustomerID,
		"customer":         r["customer"],
		"address_invoice":  r["address_invoice"],
		"address_delivery": r["address_delivery"],
		"currency":         o.Currency.String(),
		"articles":         r["articles"],
		"data":             r["data"],
		"payment_id":       o.PaymentID,
		"payment_method":   o.PaymentMethod,
		"paid_status":      int64(o.PaidStatus),
		"paid_date":        o.PaidDate,
		"paid_data":        r["paid_data"],
		"shipping_id":      o.ShippingID,
		"shipping_status":  int64(o.ShippingStatus),
		"status":           int64(o.Status),
		"successful":       o.Successful,
		"no_auto_invoice":  o.NoAutoInvoice,
		"comments":         r["comments"],
		"history":          r["history"],
		"frontend_messages": r["frontend_messages"],
		"status_mails":     r["status_mails"],
		"c_user":           o.CreatedBy,
		"c_date":           o.CreatedAt,
	}
}

func (r *PostgresOrderRepository) insert(ctx context.Context, table string, o *order.Order) (int64, error) {
	query, args, err := r.sb.Insert(table).
		SetMap(insertValues(o)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert query: %w", err)
	}

	var id int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	return id, nil
}

func (r *PostgresOrderRepository) scanOne(ctx context.Context, table string, stage order.Stage, where sq.Sqlizer) (*order.Order, error) {
	query, args, err := r.sb.Select(orderColumns...).
		From(table).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal OrderDal
	err = r.conn.QueryRow(ctx, query, args...).Scan(
		&dal.Id, &dal.Hash, &dal.OrderId, &dal.InvoiceId, &dal.CustomerId,
		&dal.Customer, &dal.AddressInvoice, &dal.AddressDelivery, &dal.Currency,
		&dal.Articles, &dal.Data, &dal.PaymentId, &dal.PaymentMethod,
		&dal.PaidStatus, &dal.PaidDate, &dal.PaidData, &dal.ShippingId,
		&dal.ShippingStatus, &dal.Status, &dal.Successful, &dal.NoAutoInvoice,
		&dal.Comments, &dal.History, &dal.FrontendMessages, &dal.StatusMails,
		&dal.CUser, &dal.CDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererr.ErrOrderNotFound
		}

		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	return dal.ToModel(stage)
}

func (r *PostgresOrderRepository) update(ctx context.Context, table string, o *order.Order, where sq.Sqlizer) error {
	values := insertValues(o)
	delete(values, "hash")
	delete(values, "c_date")
	delete(values, "c_user")

	query, args, err := r.sb.Update(table).
		SetMap(values).
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ordererr.ErrOrderNotFound
	}

	return nil
}

// Insert creates a final order row and returns its id.
func (r *PostgresOrderRepository) Insert(ctx context.Context, o *order.Order) (int64, error) {
	return r.insert(ctx, tableOrders, o)
}

// GetByID retrieves a final order by numeric id.
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.scanOne(ctx, tableOrders, order.StageFinal, sq.Eq{"id": id})
}

// GetByHash retrieves a final order by hash.
func (r *PostgresOrderRepository) GetByHash(ctx context.Context, hash string) (*order.Order, error) {
	return r.scanOne(ctx, tableOrders, order.StageFinal, sq.Eq{"hash": hash})
}

// Update persists a final order.
func (r *PostgresOrderRepository) Update(ctx context.Context, o *order.Order) error {
	return r.update(ctx, tableOrders, o, sq.Eq{"id": o.ID})
}

// Delete removes a final order row.
func (r *PostgresOrderRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete(tableOrders).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	return nil
}

// Search retrieves final orders based on filter criteria.
func (r *PostgresOrderRepository) Search(ctx context.Context, params iorderrepo.SearchParams) ([]order.Order, error) {
	query := r.sb.Select(orderColumns...).From(tableOrders)

	if len(params.CustomerIDs) > 0 {
		query = query.Where(sq.Eq{"customer_id": params.CustomerIDs})
	}
	if params.PaidStatus != nil {
		query = query.Where(sq.Eq{"paid_status": int64(*params.PaidStatus)})
	}
	if params.Successful != nil {
		query = query.Where(sq.Eq{"successful": *params.Successful})
	}

	query = query.OrderBy("c_date DESC")
	if params.Limit > 0 {
		query = query.Limit(uint64(params.Limit))
	}
	if params.Offset > 0 {
		query = query.Offset(uint64(params.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	return r.scanMany(ctx, sql, args, order.StageFinal)
}

// InsertDraft creates an in-process order row.
func (r *PostgresOrderRepository) InsertDraft(ctx context.Context, o *order.Order) (int64, error) {
	return r.insert(ctx, tableDrafts, o)
}

// GetDraftByHash retrieves an in-process order by hash.
func (r *PostgresOrderRepository) GetDraftByHash(ctx context.Context, hash string) (*order.Order, error) {
	return r.scanOne(ctx, tableDrafts, order.StageDraft, sq.Eq{"hash": hash})
}

// UpdateDraft persists an in-process order.
func (r *PostgresOrderRepository) UpdateDraft(ctx context.Context, o *order.Order) error {
	return r.update(ctx, tableDrafts, o, sq.Eq{"hash": o.Hash})
}

// DeleteDraft removes an in-process order row.
func (r *PostgresOrderRepository) DeleteDraft(ctx context.Context, hash string) error {
	query, args, err := r.sb.Delete(tableDrafts).Where(sq.Eq{"hash": hash}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete in-process order: %w", err)
	}

	return nil
}

// LinkDraft binds a draft row to its promoted final order.
func (r *PostgresOrderRepository) LinkDraft(ctx context.Context, hash string, orderID int64) error {
	query, args, err := r.sb.Update(tableDrafts).
		Set("order_id", orderID).
		Where(sq.Eq{"hash": hash}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build link query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to link in-process order: %w", err)
	}

	return nil
}

// ListDraftsByCustomer retrieves the in-process orders of a customer.
func (r *PostgresOrderRepository) ListDraftsByCustomer(ctx context.Context, customerID int64) ([]order.Order, error) {
	sql, args, err := r.sb.Select(orderColumns...).
		From(tableDrafts).
		Where(sq.Eq{"customer_id": customerID}).
		OrderBy("c_date DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.scanMany(ctx, sql, args, order.StageDraft)
}

func (r *PostgresOrderRepository) scanMany(ctx context.Context, sql string, args []interface{}, stage order.Stage) ([]order.Order, error) {
	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		var dal OrderDal
		err := rows.Scan(
			&dal.Id, &dal.Hash, &dal.OrderId, &dal.InvoiceId, &dal.CustomerId,
			&dal.Customer, &dal.AddressInvoice, &dal.AddressDelivery, &dal.Currency,
			&dal.Articles, &dal.Data, &dal.PaymentId, &dal.PaymentMethod,
			&dal.PaidStatus, &dal.PaidDate, &dal.PaidData, &dal.ShippingId,
			&dal.ShippingStatus, &dal.Status, &dal.Successful, &dal.NoAutoInvoice,
			&dal.Comments, &dal.History, &dal.FrontendMessages, &dal.StatusMails,
			&dal.CUser, &dal.CDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		model, err := dal.ToModel(stage)
		if err != nil {
			return nil, fmt.Errorf("failed to convert order dal to model: %w", err)
		}
		result = append(result, *model)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}
