package ordersvc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopkit/order/internal/dal/interfaces/iorderrepo"
	"github.com/shopkit/order/internal/dal/interfaces/ioutboxrepo"
	"github.com/shopkit/order/internal/service/events"
	"github.com/shopkit/order/internal/service/models/article"
	"github.com/shopkit/order/internal/service/models/order"
	"github.com/shopkit/order/internal/service/models/outbox"
	"github.com/shopkit/order/internal/service/models/transaction"
	"github.com/shopkit/order/internal/service/ordererr"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrderRepo keeps orders in memory, clones on read and write so the
// stored state behaves like database rows.
type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	finals map[int64]*order.Order
	drafts map[string]*order.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		finals: map[int64]*order.Order{},
		drafts: map[string]*order.Order{},
	}
}

func clone(o *order.Order) *order.Order {
	c := *o
	return &c
}

func (r *fakeOrderRepo) Insert(_ context.Context, o *order.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := clone(o)
	c.ID = r.nextID
	r.finals[c.ID] = c
	return c.ID, nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id int64) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.finals[id]
	if !ok {
		return nil, ordererr.ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *fakeOrderRepo) GetByHash(_ context.Context, hash string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.finals {
		if o.Hash == hash {
			return clone(o), nil
		}
	}
	return nil, ordererr.ErrOrderNotFound
}

func (r *fakeOrderRepo) Update(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.finals[o.ID]; !ok {
		return ordererr.ErrOrderNotFound
	}
	r.finals[o.ID] = clone(o)
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.finals, id)
	return nil
}

func (r *fakeOrderRepo) Search(_ context.Context, params iorderrepo.SearchParams) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []order.Order
	for _, o := range r.finals {
		if len(params.CustomerIDs) > 0 {
			found := false
			for _, id := range params.CustomerIDs {
				if o.CustomerID == id {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		if params.PaidStatus != nil && o.PaidStatus != *params.PaidStatus {
			continue
		}
		result = append(result, *clone(o))
	}
	return result, nil
}

func (r *fakeOrderRepo) InsertDraft(_ context.Context, o *order.Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := clone(o)
	c.ID = r.nextID
	r.drafts[c.Hash] = c
	return c.ID, nil
}

func (r *fakeOrderRepo) GetDraftByHash(_ context.Context, hash string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.drafts[hash]
	if !ok {
		return nil, ordererr.ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *fakeOrderRepo) UpdateDraft(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[o.Hash]; !ok {
		return ordererr.ErrOrderNotFound
	}
	r.drafts[o.Hash] = clone(o)
	return nil
}

func (r *fakeOrderRepo) DeleteDraft(_ context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, hash)
	return nil
}

func (r *fakeOrderRepo) LinkDraft(_ context.Context, hash string, orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.drafts[hash]; ok {
		o.OrderID = orderID
	}
	return nil
}

func (r *fakeOrderRepo) ListDraftsByCustomer(_ context.Context, customerID int64) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []order.Order
	for _, o := range r.drafts {
		if o.CustomerID == customerID {
			result = append(result, *clone(o))
		}
	}
	return result, nil
}

var _ iorderrepo.IOrderRepository = (*fakeOrderRepo)(nil)

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) record(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordedEvents) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func setup(t *testing.T) (*Service, *fakeOrderRepo, *recordedEvents) {
	t.Helper()

	repo := newFakeOrderRepo()
	recorded := &recordedEvents{}
	dispatcher := events.NewDispatcher()
	for _, name := range []string{
		events.OrderCreated, events.OrderSuccessfulCreated, events.OrderUpdate,
		events.OrderDelete, events.OrderClear, events.OrderCopy,
		events.PaidStatusChanged, events.ProcessStatusChange,
		events.PaymentChanged, events.AddTransaction, events.AddTransactionEnd,
	} {
		dispatcher.On(name, recorded.record)
	}

	svc := MustNewService(
		WithRepository(repo),
		WithEvents(dispatcher),
	)

	return svc, repo, recorded
}

func TestCreateDraft(t *testing.T) {
	svc, repo, _ := setup(t)

	draft, err := svc.CreateDraft(context.Background(), Identity{UserID: 7}, 7)

	require.NoError(t, err)
	assert.NotEmpty(t, draft.Hash)
	assert.Equal(t, order.StageDraft, draft.Stage)
	assert.Equal(t, int64(7), draft.CustomerID)
	require.Len(t, draft.History, 1)

	stored, err := repo.GetDraftByHash(context.Background(), draft.Hash)
	require.NoError(t, err)
	assert.Equal(t, draft.Hash, stored.Hash)
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("promotes a draft once", func(t *testing.T) {
		svc, repo, recorded := setup(t)
		draft, err := svc.CreateDraft(ctx, Identity{UserID: 7}, 7)
		require.NoError(t, err)

		final, err := svc.CreateOrder(ctx, Identity{UserID: 7}, draft)

		require.NoError(t, err)
		assert.Equal(t, order.StageFinal, final.Stage)
		assert.Equal(t, draft.Hash, final.Hash)
		assert.NotZero(t, final.ID)
		assert.Equal(t, 1, recorded.count(events.OrderCreated))

		// The draft row is gone after promotion.
		_, err = repo.GetDraftByHash(ctx, draft.Hash)
		assert.ErrorIs(t, err, ordererr.ErrOrderNotFound)
	})

	t.Run("second promotion returns the existing order", func(t *testing.T) {
		svc, _, recorded := setup(t)
		draft, err := svc.CreateDraft(ctx, Identity{UserID: 7}, 7)
		require.NoError(t, err)

		first, err := svc.CreateOrder(ctx, Identity{UserID: 7}, draft)
		require.NoError(t, err)

		second, err := svc.CreateOrder(ctx, Identity{UserID: 7}, draft)

		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, recorded.count(events.OrderCreated))
	})

	t.Run("double submit with a stale draft instance", func(t *testing.T) {
		svc, _, recorded := setup(t)
		draft, err := svc.CreateDraft(ctx, Identity{UserID: 7}, 7)
		require.NoError(t, err)

		// A second request holds its own instance of the same draft.
		stale := *draft
		first, err := svc.CreateOrder(ctx, Identity{UserID: 7}, draft)
		require.NoError(t, err)

		second, err := svc.CreateOrder(ctx, Identity{UserID: 7}, &stale)

		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, recorded.count(events.OrderCreated))
	})

	t.Run("foreign caller is rejected", func(t *testing.T) {
		svc, _, _ := setup(t)
		draft, err := svc.CreateDraft(ctx, Identity{UserID: 7}, 7)
		require.NoError(t, err)

		_, err = svc.CreateOrder(ctx, Identity{UserID: 8}, draft)
		assert.ErrorIs(t, err, ordererr.ErrPermissionDenied)
	})
}

func articleFor(unitPriceCents int64, quantity int) article.Article {
	return article.Article{ProductID: 1, Title: "test product", UnitPriceCents: unitPriceCents, Quantity: quantity}
}

func promotedOrder(t *testing.T, svc *Service, repo *fakeOrderRepo) *order.Order {
	t.Helper()

	draft, err := svc.CreateDraft(context.Background(), Identity{UserID: 7}, 7)
	require.NoError(t, err)
	draft.Articles.Add(articleFor(1000, 1))
	require.NoError(t, repo.UpdateDraft(context.Background(), draft))

	final, err := svc.CreateOrder(context.Background(), Identity{UserID: 7}, draft)
	require.NoError(t, err)

	return final
}

func TestAddTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("hash mismatch is rejected", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)

		err := svc.AddTransaction(ctx, final, transaction.Transaction{
			TxID: "tx-1", OrderHash: "other", AmountCents: 100,
		})
		assert.ErrorIs(t, err, ordererr.ErrHashMismatch)
	})

	t.Run("full payment marks the order paid and successful", func(t *testing.T) {
		svc, repo, recorded := setup(t)
		final := promotedOrder(t, svc, repo)

		err := svc.AddTransaction(ctx, final, transaction.Transaction{
			TxID: "tx-1", OrderHash: final.Hash, AmountCents: 1000,
		})

		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusPaid, final.PaidStatus)
		assert.True(t, final.Successful)
		assert.False(t, final.PaidDate.IsZero())
		assert.Equal(t, 1, recorded.count(events.PaidStatusChanged))
		assert.Equal(t, 1, recorded.count(events.OrderSuccessfulCreated))
	})

	t.Run("partial payment", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)

		err := svc.AddTransaction(ctx, final, transaction.Transaction{
			TxID: "tx-1", OrderHash: final.Hash, AmountCents: 400,
		})

		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusPart, final.PaidStatus)
		assert.False(t, final.Successful)
	})

	t.Run("duplicate transaction id is ignored", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)

		tx := transaction.Transaction{TxID: "tx-1", OrderHash: final.Hash, AmountCents: 400}
		require.NoError(t, svc.AddTransaction(ctx, final, tx))
		require.NoError(t, svc.AddTransaction(ctx, final, tx))

		assert.Equal(t, int64(400), final.PaidSumCents())
		assert.Len(t, final.Paid, 1)
	})

	t.Run("terminal status latches", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)

		require.NoError(t, svc.SetPaymentStatus(ctx, SystemUser, final, order.PaymentStatusCanceled))

		err := svc.AddTransaction(ctx, final, transaction.Transaction{
			TxID: "tx-late", OrderHash: final.Hash, AmountCents: 1000,
		})

		require.NoError(t, err)
		assert.Empty(t, final.Paid)
		assert.Equal(t, order.PaymentStatusCanceled, final.PaidStatus)
	})

	t.Run("interceptor may adjust the amount", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)

		svc.Events().Intercept(events.AddTransactionBegin,
			func(_ context.Context, _ events.Event, data map[string]any) (map[string]any, error) {
				data["amount"] = int64(250)
				return data, nil
			})

		err := svc.AddTransaction(ctx, final, transaction.Transaction{
			TxID: "tx-1", OrderHash: final.Hash, AmountCents: 9999,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(250), final.PaidSumCents())
	})

	t.Run("interceptor veto aborts", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)

		svc.Events().Intercept(events.AddTransactionBegin,
			func(_ context.Context, _ events.Event, _ map[string]any) (map[string]any, error) {
				return nil, errors.New("suspicious transaction")
			})

		err := svc.AddTransaction(ctx, final, transaction.Transaction{
			TxID: "tx-1", OrderHash: final.Hash, AmountCents: 100,
		})

		require.Error(t, err)
		assert.Empty(t, final.Paid)
	})

	t.Run("apply and end events fire once each", func(t *testing.T) {
		svc, repo, recorded := setup(t)
		final := promotedOrder(t, svc, repo)

		require.NoError(t, svc.AddTransaction(ctx, final, transaction.Transaction{
			TxID: "tx-1", OrderHash: final.Hash, AmountCents: 400,
		}))

		assert.Equal(t, 1, recorded.count(events.AddTransaction))
		assert.Equal(t, 1, recorded.count(events.AddTransactionEnd))
	})
}

func TestCalculatePayments(t *testing.T) {
	ctx := context.Background()

	t.Run("negative paid sum is a hard error", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)
		final.Paid = []order.PaidEntry{{TxID: "bad", AmountCents: -100}}

		err := svc.CalculatePayments(ctx, final)
		assert.ErrorIs(t, err, ErrUnknownPaymentStatus)
	})

	t.Run("canceled is never revived", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)
		require.NoError(t, svc.SetPaymentStatus(ctx, SystemUser, final, order.PaymentStatusCanceled))

		require.NoError(t, svc.CalculatePayments(ctx, final))
		assert.Equal(t, order.PaymentStatusCanceled, final.PaidStatus)
	})
}

func TestSetPaymentStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("terminal latch", func(t *testing.T) {
		svc, repo, recorded := setup(t)
		final := promotedOrder(t, svc, repo)

		require.NoError(t, svc.SetPaymentStatus(ctx, SystemUser, final, order.PaymentStatusCanceled))
		require.NoError(t, svc.SetPaymentStatus(ctx, SystemUser, final, order.PaymentStatusOpen))

		assert.Equal(t, order.PaymentStatusCanceled, final.PaidStatus)
		assert.Equal(t, 1, recorded.count(events.ProcessStatusChange))
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		svc, repo, recorded := setup(t)
		final := promotedOrder(t, svc, repo)

		require.NoError(t, svc.SetPaymentStatus(ctx, SystemUser, final, order.PaymentStatusOpen))
		assert.Equal(t, 0, recorded.count(events.ProcessStatusChange))
	})

	t.Run("failed payment runs the execute procedure", func(t *testing.T) {
		viper.Set("payment.failed_procedure", "execute")
		t.Cleanup(func() { viper.Set("payment.failed_procedure", "") })

		svc, repo, recorded := setup(t)
		final := promotedOrder(t, svc, repo)
		final.PaymentID = 3
		final.PaymentMethod = "paypal"

		require.NoError(t, svc.SetPaymentStatus(ctx, SystemUser, final, order.PaymentStatusError))

		assert.Zero(t, final.PaymentID)
		assert.Empty(t, final.PaymentMethod)
		assert.Equal(t, order.PaymentStatusOpen, final.PaidStatus)
		assert.NotEmpty(t, final.FrontendMessages)
		assert.Equal(t, 1, recorded.count(events.PaymentChanged))

		stored, err := svc.GetByHash(ctx, final.Hash)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusOpen, stored.PaidStatus)
		assert.Zero(t, stored.PaymentID)
	})

	t.Run("failed payment is kept for manual handling by default", func(t *testing.T) {
		svc, repo, recorded := setup(t)
		final := promotedOrder(t, svc, repo)
		final.PaymentID = 3
		final.PaymentMethod = "paypal"

		require.NoError(t, svc.SetPaymentStatus(ctx, SystemUser, final, order.PaymentStatusError))

		assert.Equal(t, order.PaymentStatusError, final.PaidStatus)
		assert.Equal(t, int64(3), final.PaymentID)
		assert.Equal(t, 0, recorded.count(events.PaymentChanged))
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("foreign caller is rejected", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)

		err := svc.Update(ctx, Identity{UserID: 99}, final)
		assert.ErrorIs(t, err, ordererr.ErrPermissionDenied)
	})

	t.Run("restricted caller on a successful order", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)
		require.NoError(t, svc.AddTransaction(ctx, final, transaction.Transaction{
			TxID: "tx-1", OrderHash: final.Hash, AmountCents: 1000,
		}))
		require.True(t, final.Successful)
		storedStatus := final.Status

		// The customer tries to flip a protected field and adds a comment.
		final.Status = 42
		final.AddComment("please deliver to the back door")

		require.NoError(t, svc.Update(ctx, Identity{UserID: 7}, final))

		stored, err := svc.GetByHash(ctx, final.Hash)
		require.NoError(t, err)
		assert.Equal(t, storedStatus, stored.Status)
		require.Len(t, stored.Comments, 1)
		assert.Equal(t, "please deliver to the back door", stored.Comments[0].Message)
	})

	t.Run("system caller updates everything", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)

		final.Status = 42
		require.NoError(t, svc.Update(ctx, SystemUser, final))

		stored, err := svc.GetByHash(ctx, final.Hash)
		require.NoError(t, err)
		assert.Equal(t, 42, stored.Status)
	})

	t.Run("payment method change is announced", func(t *testing.T) {
		svc, repo, recorded := setup(t)
		final := promotedOrder(t, svc, repo)

		final.PaymentID = 3
		final.PaymentMethod = "paypal"
		require.NoError(t, svc.Update(ctx, SystemUser, final))
		assert.Equal(t, 1, recorded.count(events.PaymentChanged))

		// An update that keeps the payment method stays silent.
		final.Status = 5
		require.NoError(t, svc.Update(ctx, SystemUser, final))
		assert.Equal(t, 1, recorded.count(events.PaymentChanged))
	})

	t.Run("update interceptor veto", func(t *testing.T) {
		svc, repo, _ := setup(t)
		final := promotedOrder(t, svc, repo)

		svc.Events().Intercept(events.OrderUpdateBegin,
			func(_ context.Context, _ events.Event, _ map[string]any) (map[string]any, error) {
				return nil, errors.New("locked")
			})

		err := svc.Update(ctx, SystemUser, final)
		require.Error(t, err)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	svc, repo, recorded := setup(t)
	final := promotedOrder(t, svc, repo)

	require.NoError(t, svc.Delete(ctx, SystemUser, final))

	_, err := svc.GetByHash(ctx, final.Hash)
	require.Error(t, err)
	assert.Equal(t, 1, recorded.count(events.OrderDelete))
}

func TestCopy(t *testing.T) {
	ctx := context.Background()

	svc, repo, _ := setup(t)
	final := promotedOrder(t, svc, repo)
	require.NoError(t, svc.AddTransaction(ctx, final, transaction.Transaction{
		TxID: "tx-1", OrderHash: final.Hash, AmountCents: 1000,
	}))

	copied, err := svc.Copy(ctx, SystemUser, final)

	require.NoError(t, err)
	assert.NotEqual(t, final.Hash, copied.Hash)
	assert.Equal(t, order.StageDraft, copied.Stage)
	assert.False(t, copied.Successful)
	assert.Empty(t, copied.Paid)
	assert.Equal(t, order.PaymentStatusOpen, copied.PaidStatus)
	assert.Equal(t, final.Articles.TotalCents, copied.Articles.TotalCents)
}

func TestClearDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("content is discarded, hash survives", func(t *testing.T) {
		svc, repo, recorded := setup(t)
		draft, err := svc.CreateDraft(ctx, Identity{UserID: 7}, 7)
		require.NoError(t, err)
		draft.Articles.Add(articleFor(1000, 2))
		require.NoError(t, repo.UpdateDraft(ctx, draft))

		fresh, err := svc.ClearDraft(ctx, Identity{UserID: 7}, draft)

		require.NoError(t, err)
		assert.Equal(t, draft.Hash, fresh.Hash)
		assert.Equal(t, 0, fresh.Articles.Count())
		assert.Equal(t, 1, recorded.count(events.OrderClear))
	})

	t.Run("clear can be vetoed", func(t *testing.T) {
		svc, _, _ := setup(t)
		draft, err := svc.CreateDraft(ctx, Identity{UserID: 7}, 7)
		require.NoError(t, err)

		svc.Events().Intercept(events.OrderClearBegin,
			func(_ context.Context, _ events.Event, _ map[string]any) (map[string]any, error) {
				return nil, errors.New("keep it")
			})

		_, err = svc.ClearDraft(ctx, Identity{UserID: 7}, draft)
		require.Error(t, err)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("no matches", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, err := svc.Search(ctx, iorderrepo.SearchParams{CustomerIDs: []int64{12345}})
		assert.ErrorIs(t, err, ordererr.ErrNoOrdersFound)
	})

	t.Run("filter by customer", func(t *testing.T) {
		svc, repo, _ := setup(t)
		promotedOrder(t, svc, repo)

		orders, err := svc.Search(ctx, iorderrepo.SearchParams{CustomerIDs: []int64{7}})
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})
}

type fakeOutboxRepo struct {
	mu        sync.Mutex
	inserted  []outbox.Message
	insertErr error
}

func (r *fakeOutboxRepo) Insert(_ context.Context, msg outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, msg)
	return nil
}

func (r *fakeOutboxRepo) GetPendingMessages(_ context.Context, _ int) ([]outbox.Message, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) Delete(_ context.Context, _ int64) error { return nil }

func (r *fakeOutboxRepo) UpdateRetry(_ context.Context, _ int64, _ int, _ string, _ time.Time) error {
	return nil
}

var _ ioutboxrepo.IOutboxRepository = (*fakeOutboxRepo)(nil)

// fakeUnitOfWork hands out the shared fakes as its transactional
// repositories and tracks the commit protocol.
type fakeUnitOfWork struct {
	repo   *fakeOrderRepo
	outbox *fakeOutboxRepo

	began      bool
	committed  bool
	rolledBack bool

	insertedAtCommit int
}

func (u *fakeUnitOfWork) Begin(_ context.Context) error {
	u.began = true
	return nil
}

func (u *fakeUnitOfWork) Commit(_ context.Context) error {
	u.committed = true
	u.insertedAtCommit = len(u.outbox.inserted)
	return nil
}

func (u *fakeUnitOfWork) Rollback(_ context.Context) error {
	u.rolledBack = true
	return nil
}

func (u *fakeUnitOfWork) OrderRepository() iorderrepo.IOrderRepository { return u.repo }

func (u *fakeUnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository { return u.outbox }

func TestUnitOfWork(t *testing.T) {
	ctx := context.Background()

	routingKeys := func(msgs []outbox.Message) []string {
		keys := make([]string, 0, len(msgs))
		for _, m := range msgs {
			keys = append(keys, m.RoutingKey)
		}
		return keys
	}

	t.Run("events are written before commit and observed after", func(t *testing.T) {
		repo := newFakeOrderRepo()
		outboxRepo := &fakeOutboxRepo{}
		var units []*fakeUnitOfWork

		recorded := &recordedEvents{}
		dispatcher := events.NewDispatcher()
		dispatcher.On(events.OrderCreated, recorded.record)

		svc := MustNewService(
			WithRepository(repo),
			WithEvents(dispatcher),
			WithUnitOfWork(func() UnitOfWork {
				u := &fakeUnitOfWork{repo: repo, outbox: outboxRepo}
				units = append(units, u)
				return u
			}),
		)

		draft, err := svc.CreateDraft(ctx, Identity{UserID: 7}, 7)
		require.NoError(t, err)

		_, err = svc.CreateOrder(ctx, Identity{UserID: 7}, draft)
		require.NoError(t, err)

		require.Len(t, units, 1)
		u := units[0]
		assert.True(t, u.began)
		assert.True(t, u.committed)
		assert.False(t, u.rolledBack)

		// The outbox rows existed when the unit committed.
		assert.Contains(t, routingKeys(outboxRepo.inserted), events.OrderCreated)
		assert.Equal(t, len(outboxRepo.inserted), u.insertedAtCommit)
		assert.Equal(t, 1, recorded.count(events.OrderCreated))
	})

	t.Run("outbox failure rolls back and suppresses notification", func(t *testing.T) {
		repo := newFakeOrderRepo()
		outboxRepo := &fakeOutboxRepo{insertErr: errors.New("outbox unavailable")}
		var units []*fakeUnitOfWork

		recorded := &recordedEvents{}
		dispatcher := events.NewDispatcher()
		dispatcher.On(events.OrderCreated, recorded.record)

		svc := MustNewService(
			WithRepository(repo),
			WithEvents(dispatcher),
			WithUnitOfWork(func() UnitOfWork {
				u := &fakeUnitOfWork{repo: repo, outbox: outboxRepo}
				units = append(units, u)
				return u
			}),
		)

		draft, err := svc.CreateDraft(ctx, Identity{UserID: 7}, 7)
		require.NoError(t, err)

		_, err = svc.CreateOrder(ctx, Identity{UserID: 7}, draft)
		require.Error(t, err)

		require.Len(t, units, 1)
		assert.True(t, units[0].rolledBack)
		assert.False(t, units[0].committed)
		assert.Equal(t, 0, recorded.count(events.OrderCreated))
	})
}

func TestGetByHashPrefersFinal(t *testing.T) {
	ctx := context.Background()

	svc, _, _ := setup(t)
	draft, err := svc.CreateDraft(ctx, Identity{UserID: 7}, 7)
	require.NoError(t, err)

	got, err := svc.GetByHash(ctx, draft.Hash)
	require.NoError(t, err)
	assert.Equal(t, order.StageDraft, got.Stage)

	_, err = svc.CreateOrder(ctx, Identity{UserID: 7}, draft)
	require.NoError(t, err)

	got, err = svc.GetByHash(ctx, draft.Hash)
	require.NoError(t, err)
	assert.Equal(t, order.StageFinal, got.Stage)
}
