package order

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopkit/order/internal/service/models/address"
	"github.com/shopkit/order/internal/service/models/article"
	"github.com/shopkit/order/internal/service/models/currency"
	"github.com/shopkit/order/internal/service/models/customer"
)

// Row is a raw data row, column name to value. Several columns hold
// JSON-encoded sub-structures (customer, addresses, articles, comments,
// history, paid data).
type Row map[string]any

// requiredColumns must be present on every row. Construction fails hard
// when one is missing; everything else degrades to a safe default.
var requiredColumns = []string{"hash", "customer_id", "currency", "c_date"}

// FromRow builds an order from a raw data row. Missing required columns
// fail; invalid JSON columns decode to empty containers.
func FromRow(r Row, stage Stage) (*Order, error) {
	for _, col := range requiredColumns {
		if _, ok := r[col]; !ok {
			return nil, fmt.Errorf("order row is missing required column %q", col)
		}
	}

	o := &Order{
		ID:         rowInt(r, "id"),
		Hash:       rowString(r, "hash"),
		Stage:      stage,
		OrderID:    rowInt(r, "order_id"),
		InvoiceID:  rowInt(r, "invoice_id"),
		CustomerID: rowInt(r, "customer_id"),
		Currency:   currency.ParseOrDefault(rowString(r, "currency")),

		PaymentID:     rowInt(r, "payment_id"),
		PaymentMethod: rowString(r, "payment_method"),

		ShippingID:     rowInt(r, "shipping_id"),
		ShippingStatus: int(rowInt(r, "shipping_status")),

		Status:        int(rowInt(r, "status")),
		Successful:    rowBool(r, "successful"),
		NoAutoInvoice: rowBool(r, "no_auto_invoice"),

		CreatedBy: rowInt(r, "c_user"),
		CreatedAt: rowTime(r, "c_date"),
		PaidDate:  rowTime(r, "paid_date"),
	}

	status, err := ParsePaymentStatus(int(rowInt(r, "paid_status")))
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", o.Hash, err)
	}
	o.PaidStatus = status

	o.InvoiceAddress = address.FromJSON(rowJSON(r, "address_invoice"))
	o.DeliveryAddress = address.FromJSON(rowJSON(r, "address_delivery"))
	o.Articles = article.FromJSON(rowJSON(r, "articles"), o.Currency)

	// The snapshot alone is enough here; live resolution happens lazily
	// in the service when a resolver is available.
	o.Customer = customer.Resolve(nil, nil, rowJSON(r, "customer"), o.CustomerID, nil)
	o.Customer.ID = o.CustomerID

	decodeJSONColumn(r, "data", o.Hash, &o.Data)
	decodeJSONColumn(r, "paid_data", o.Hash, &o.Paid)
	decodeJSONColumn(r, "comments", o.Hash, &o.Comments)
	decodeJSONColumn(r, "history", o.Hash, &o.History)
	decodeJSONColumn(r, "frontend_messages", o.Hash, &o.FrontendMessages)
	decodeJSONColumn(r, "status_mails", o.Hash, &o.StatusMails)

	if o.Data == nil {
		o.Data = map[string]any{}
	}

	return o, nil
}

// ToRow serializes the order back into its persisted shape. FromRow on
// the result reproduces an equivalent order.
func (o *Order) ToRow() Row {
	r := Row{
		"hash":        o.Hash,
		"customer_id": o.CustomerID,
		"currency":    o.Currency.String(),
		"c_date":      o.CreatedAt,
		"c_user":      o.CreatedBy,

		"invoice_id":     o.InvoiceID,
		"payment_id":     o.PaymentID,
		"payment_method": o.PaymentMethod,
		"paid_status":    int64(o.PaidStatus),
		"paid_date":      o.PaidDate,

		"shipping_id":     o.ShippingID,
		"shipping_status": int64(o.ShippingStatus),

		"status":          int64(o.Status),
		"successful":      o.Successful,
		"no_auto_invoice": o.NoAutoInvoice,

		"customer":         mustJSON(o.Customer),
		"address_invoice":  o.InvoiceAddress.ToJSON(),
		"address_delivery": o.DeliveryAddress.ToJSON(),
		"articles":         o.Articles.ToJSON(),
		"data":             mustJSON(o.Data),
		"paid_data":        mustJSON(o.Paid),
		"comments":         mustJSON(o.Comments),
		"history":          mustJSON(o.History),
		"frontend_messages": mustJSON(o.FrontendMessages),
		"status_mails":     mustJSON(o.StatusMails),
	}

	if o.ID != 0 {
		r["id"] = o.ID
	}
	if o.OrderID != 0 {
		r["order_id"] = o.OrderID
	}

	return r
}

// decodeJSONColumn decodes into a scratch value first, so an invalid
// column leaves the target untouched instead of half-populated.
func decodeJSONColumn[T any](r Row, col, hash string, target *T) {
	data := rowJSON(r, col)
	if len(data) == 0 {
		return
	}

	var decoded T
	if err := json.Unmarshal(data, &decoded); err != nil {
		slog.Debug("order row column holds invalid JSON, using empty container",
			"column", col, "hash", hash, "error", err)

		return
	}

	*target = decoded
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	return data
}

func rowString(r Row, col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func rowJSON(r Row, col string) []byte {
	switch v := r[col].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	case nil:
		return nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return data
	}
}

func rowInt(r Row, col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

func rowBool(r Row, col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	default:
		return false
	}
}

func rowTime(r Row, col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}
