package order

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cantina/internal/models"
)

type storedItem struct {
	productID int
	quantity  int
	unitPrice decimal.Decimal
}

// memStore is an in-memory Store with the same semantics as the Postgres
// one: one open order per table, append-only items, one-way finalize.
type memStore struct {
	mu           sync.Mutex
	nextID       int
	orders       map[int]*models.Order
	items        map[int][]storedItem
	productNames map[int]string
	failReads    bool
}

func newMemStore() *memStore {
	return &memStore{
		orders: make(map[int]*models.Order),
		items:  make(map[int][]storedItem),
		productNames: map[int]string{
			1: "Cerveza",
			2: "Nachos",
			3: "Guacamole",
		},
	}
}

func (m *memStore) Resolve(ctx context.Context, tableID, partySize int) (models.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.orders {
		if o.TableID == tableID && o.Status == models.StatusOpen {
			o.PartySize = partySize
			return *o, false, nil
		}
	}

	m.nextID++
	o := &models.Order{
		ID:        m.nextID,
		TableID:   tableID,
		PartySize: partySize,
		Status:    models.StatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	m.orders[o.ID] = o
	return *o, true, nil
}

func (m *memStore) Order(ctx context.Context, orderID int) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	return *o, nil
}

func (m *memStore) InsertItem(ctx context.Context, orderID, productID, quantity int, unitPrice decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	if o.Status != models.StatusOpen {
		return models.StateError{OrderID: orderID, Status: o.Status, Message: "cannot append to a closed order"}
	}
	m.items[orderID] = append(m.items[orderID], storedItem{productID, quantity, unitPrice})
	return nil
}

func (m *memStore) Items(ctx context.Context, orderID int) ([]models.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failReads {
		return nil, models.StorageError{Op: "list line items", Err: context.DeadlineExceeded}
	}

	var items []models.LineItem
	for _, it := range m.items[orderID] {
		items = append(items, models.LineItem{
			ProductName: m.productNames[it.productID],
			Quantity:    it.quantity,
			UnitPrice:   it.unitPrice,
			Subtotal:    it.unitPrice.Mul(decimal.NewFromInt(int64(it.quantity))),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductName < items[j].ProductName })
	return items, nil
}

func (m *memStore) Total(ctx context.Context, orderID int) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failReads {
		return decimal.Zero, models.StorageError{Op: "order total", Err: context.DeadlineExceeded}
	}

	total := decimal.Zero
	for _, it := range m.items[orderID] {
		total = total.Add(it.unitPrice.Mul(decimal.NewFromInt(int64(it.quantity))))
	}
	return total, nil
}

func (m *memStore) Finalize(ctx context.Context, orderID int) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return time.Time{}, models.ErrOrderNotFound
	}
	if o.Status != models.StatusOpen {
		return time.Time{}, models.StateError{OrderID: orderID, Status: o.Status, Message: "order is already finalized"}
	}
	now := time.Now().UTC()
	o.Status = models.StatusPaid
	o.ClosedAt = &now
	return now, nil
}

type capturedEvent struct {
	routingKey string
	event      models.OrderEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakePublisher) PublishOrderEvent(ctx context.Context, routingKey string, event models.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{routingKey, event})
	return nil
}

func (f *fakePublisher) byKey(key string) []capturedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []capturedEvent
	for _, e := range f.events {
		if e.routingKey == key {
			out = append(out, e)
		}
	}
	return out
}

func newTestService() (*Service, *memStore, *fakePublisher) {
	store := newMemStore()
	pub := &fakePublisher{}
	return NewService(store, pub, nil), store, pub
}

func TestResolve_IdempotentWhileOpen(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	first, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)

	second, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "resolving again while open returns the same order")
	assert.Len(t, pub.byKey("order.opened"), 1, "only the creating resolve publishes")
}

func TestResolve_UpdatesPartySizeInPlace(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Resolve(ctx, 3, 2)
	require.NoError(t, err)

	second, err := svc.Resolve(ctx, 3, 6)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 6, second.PartySize)
}

func TestResolve_NewOrderAfterFinalize(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.Resolve(ctx, 3, 2)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "a finalized order no longer anchors the table")
}

func TestResolve_ConcurrentSameTable(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	const sessions = 16
	ids := make([]int, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			o, err := svc.Resolve(ctx, 7, 4)
			if err == nil {
				ids[i] = o.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id, "creation is serialized per table")
	}
}

func TestResolve_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Resolve(context.Background(), 0, 4)
	assert.IsType(t, models.ValidationError{}, err)

	_, err = svc.Resolve(context.Background(), 3, 0)
	assert.IsType(t, models.ValidationError{}, err)
}

func TestAppend_IncreasesTotalByExactAmount(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)

	_, before, err := svc.Items(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, before.IsZero())

	require.NoError(t, svc.Append(ctx, o.ID, 1, 2, decimal.RequireFromString("45.00")))

	_, after, err := svc.Items(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, after.Equal(decimal.RequireFromString("90.00")),
		"total increases by quantity x unit price, got %s", after)
}

func TestAppend_RepeatedAddsCreateSeparateLines(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)

	require.NoError(t, svc.Append(ctx, o.ID, 1, 1, decimal.RequireFromString("45.00")))
	require.NoError(t, svc.Append(ctx, o.ID, 1, 1, decimal.RequireFromString("45.00")))

	items, total, err := svc.Items(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2, "appends never merge lines")
	assert.True(t, total.Equal(decimal.RequireFromString("90.00")))
}

func TestAppend_ZeroQuantityRejectedWithoutWrite(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)
	require.NoError(t, svc.Append(ctx, o.ID, 2, 1, decimal.RequireFromString("120.00")))

	err = svc.Append(ctx, o.ID, 1, 0, decimal.RequireFromString("45.00"))
	assert.IsType(t, models.ValidationError{}, err)

	items, total, err := svc.Items(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.True(t, total.Equal(decimal.RequireFromString("120.00")), "total unchanged after rejected append")
}

func TestAppend_ToPaidOrderRejected(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, o.ID)
	require.NoError(t, err)

	err = svc.Append(ctx, o.ID, 1, 1, decimal.RequireFromString("45.00"))
	assert.IsType(t, models.StateError{}, err)
}

func TestItems_OrderedByProductName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)

	require.NoError(t, svc.Append(ctx, o.ID, 2, 1, decimal.RequireFromString("120.00"))) // Nachos
	require.NoError(t, svc.Append(ctx, o.ID, 1, 2, decimal.RequireFromString("45.00")))  // Cerveza

	items, _, err := svc.Items(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Cerveza", items[0].ProductName)
	assert.Equal(t, "Nachos", items[1].ProductName)
}

func TestItems_FailsOpenOnStorageError(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)
	require.NoError(t, svc.Append(ctx, o.ID, 1, 1, decimal.RequireFromString("45.00")))

	store.failReads = true

	items, total, err := svc.Items(ctx, o.ID)
	require.Error(t, err)
	assert.Empty(t, items, "a storage failure yields an empty list, not a crash")
	assert.True(t, total.IsZero())
}

func TestFinalize_StampsClosureTime(t *testing.T) {
	svc, _, pub := newTestService()
	ctx := context.Background()

	o, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)
	require.NoError(t, svc.Append(ctx, o.ID, 1, 2, decimal.RequireFromString("45.00")))

	closed, err := svc.Finalize(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPaid, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.False(t, closed.ClosedAt.Before(closed.CreatedAt), "closure time is at or after creation")

	paid := pub.byKey("order.paid")
	require.Len(t, paid, 1)
	assert.True(t, paid[0].event.Total.Equal(decimal.RequireFromString("90.00")))
}

func TestFinalize_AlreadyPaidRejected(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, o.ID)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, o.ID)
	assert.IsType(t, models.StateError{}, err)
}

func TestFinalize_UnknownOrder(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Finalize(context.Background(), 999)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestScenario_Mesa3(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.Resolve(ctx, 3, 4)
	require.NoError(t, err)

	require.NoError(t, svc.Append(ctx, o.ID, 1, 2, decimal.RequireFromString("45.00")))  // 2x Cerveza
	require.NoError(t, svc.Append(ctx, o.ID, 2, 1, decimal.RequireFromString("120.00"))) // 1x Nachos

	items, total, err := svc.Items(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, total.Equal(decimal.RequireFromString("210.00")))

	closed, err := svc.Finalize(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, closed.Status)
}
