package customer

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Customer is the frozen customer snapshot kept on an order row.
// It is captured at checkout so later address-book edits never drift
// into existing orders.
type Customer struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
	Language  string `json:"lang"`
}

// IsNobody reports whether this is the anonymous fallback customer.
func (c Customer) IsNobody() bool {
	return c.ID == 0
}

// Nobody is the anonymous fallback when no customer can be resolved.
func Nobody() Customer {
	return Customer{Username: "nobody", Language: "en"}
}

// Directory is the live user lookup of the surrounding platform.
type Directory interface {
	Get(ctx context.Context, id int64) (Customer, error)
}

// Resolve hydrates the order customer. Preference order: an already
// attached customer, the stored snapshot, a live lookup by id, and
// finally the nobody user. This path never fails, it logs and degrades.
func Resolve(ctx context.Context, attached *Customer, snapshot []byte, id int64, dir Directory) Customer {
	if attached != nil && !attached.IsNobody() {
		return *attached
	}

	if len(snapshot) > 0 {
		var c Customer
		if err := json.Unmarshal(snapshot, &c); err == nil && !c.IsNobody() {
			return c
		}
		slog.Debug("customer snapshot not usable, trying live lookup", "customer_id", id)
	}

	if id > 0 && dir != nil {
		c, err := dir.Get(ctx, id)
		if err == nil {
			return c
		}
		slog.Error("failed to resolve order customer, degrading to nobody",
			"customer_id", id, "error", err)
	}

	return Nobody()
}
