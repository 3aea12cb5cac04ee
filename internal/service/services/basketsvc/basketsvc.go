// Package basketsvc implements the pre-checkout basket in its three
// shapes: the persisted basket of a logged-in user, the session-local
// guest basket, and the basket view bound to an in-process order.
// All three expose the same contract.
package basketsvc

import (
	"context"

	"github.com/spf13/viper"
	"github.com/shopkit/order/internal/dal/interfaces/ibasketrepo"
	"github.com/shopkit/order/internal/service/events"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/models/product"
	"github.com/shopkit/order/internal/service/services/ordersvc"
)

// Basket is the shared contract of all basket variants.
type Basket interface {
	Count() int
	Products() []product.Product
	AddProduct(ctx context.Context, p product.Product) error
	Import(ctx context.Context, products []product.Product) error
	ToArray() map[string]any
	HasOrder() bool
	Order(ctx context.Context) (*order.Order, error)
}

// Catalog is the live product catalog of the surrounding platform, used
// to re-validate imported products.
type Catalog interface {
	Get(ctx context.Context, id int64) (product.Product, error)
}

// Service creates and loads baskets.
type Service struct {
	baskets ibasketrepo.IBasketRepository
	orders  *ordersvc.Service
	catalog Catalog
	events  *events.Dispatcher
}

type option func(*Service)

// MustNewService creates a new basket service.
func MustNewService(opts ...option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}

	if s.orders == nil {
		panic("basketsvc: order service is required")
	}
	if s.events == nil {
		s.events = events.NewDispatcher()
	}

	return s
}

// WithBasketRepository sets the basket repository.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithBasketRepository(repo ibasketrepo.IBasketRepository) option {
	return func(s *Service) {
		s.baskets = repo
	}
}

// WithOrderService sets the order service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderService(orders *ordersvc.Service) option {
	return func(s *Service) {
		s.orders = orders
	}
}

// WithCatalog sets the live product catalog.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCatalog(c Catalog) option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithEvents sets the domain event dispatcher.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEvents(d *events.Dispatcher) option {
	return func(s *Service) {
		s.events = d
	}
}

// mergeEnabled reads the mergeSameProducts shop setting.
func mergeEnabled() bool {
	return viper.GetBool("basket.merge_same_products")
}

// addOrMerge appends a product to a list, merging it into an existing
// line when merging is enabled and the compare keys match.
func addOrMerge(list []product.Product, p product.Product) []product.Product {
	p.NormalizeQuantity()

	if !mergeEnabled() {
		return append(list, p)
	}

	key, err := product.CompareKey(p)
	if err != nil {
		return append(list, p)
	}

	for i := range list {
		existing, err := product.CompareKey(list[i])
		if err != nil {
			continue
		}
		if existing == key {
			list[i].Quantity += p.Quantity

			return list
		}
	}

	return append(list, p)
}
