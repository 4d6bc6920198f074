package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	offers := `
CREATE TABLE IF NOT EXISTS offers (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  creator_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  kind TEXT NOT NULL,
  seats INTEGER NOT NULL,
  price NUMERIC NOT NULL,
  stock_total INTEGER NOT NULL,
  stock_available INTEGER NOT NULL,
  sale_starts_at DATETIME,
  sale_ends_at DATETIME,
  status TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  total NUMERIC NOT NULL DEFAULT 0,
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	cartLines := `
CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  offer_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  subtotal NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  cart_id TEXT NOT NULL UNIQUE,
  order_number TEXT NOT NULL UNIQUE,
  total_amount NUMERIC NOT NULL,
  payment_status TEXT NOT NULL,
  payment_method TEXT,
  payment_reference TEXT,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	tickets := `
CREATE TABLE IF NOT EXISTS tickets (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  offer_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  validator_id TEXT,
  ticket_number TEXT NOT NULL UNIQUE,
  purchase_key TEXT NOT NULL,
  final_key TEXT NOT NULL UNIQUE,
  price_paid NUMERIC NOT NULL,
  status TEXT NOT NULL,
  used_at DATETIME,
  usage_location TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(offers).Error)
	require.NoError(t, db.Exec(carts).Error)
	require.NoError(t, db.Exec(cartLines).Error)
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(tickets).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

func seedPaidPathOffer(t *testing.T, db *gorm.DB, price string, stock int) *models.Offer {
	t.Helper()

	offer := &models.Offer{
		ID:             uuid.New(),
		EventID:        uuid.New(),
		CreatorID:      uuid.New(),
		Name:           "General Admission",
		Kind:           enums.OfferKindSolo,
		Seats:          1,
		Price:          decimal.RequireFromString(price),
		StockTotal:     stock,
		StockAvailable: stock,
		Status:         enums.OfferStatusActive,
	}
	require.NoError(t, db.Create(offer).Error)
	return offer
}

func seedPendingOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, offer *models.Offer, qty int) *models.Order {
	t.Helper()

	cart := &models.Cart{ID: uuid.New(), UserID: userID, Status: enums.CartStatusLocked}
	require.NoError(t, db.Create(cart).Error)

	line := &models.CartLine{
		ID:        uuid.New(),
		CartID:    cart.ID,
		OfferID:   offer.ID,
		Quantity:  qty,
		UnitPrice: offer.Price,
	}
	line.Subtotal = line.ComputeSubtotal()
	require.NoError(t, db.Create(line).Error)

	order := &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		CartID:        cart.ID,
		OrderNumber:   uuid.NewString()[:16],
		TotalAmount:   line.Subtotal,
		PaymentStatus: enums.PaymentStatusPending,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestPay_FullSettlementAgainstDB(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	ob := &recordingOutbox{}
	svc, err := NewService(repo, gormTxRunner{db: db}, ob, "")
	require.NoError(t, err)

	userID := uuid.New()
	offer := seedPaidPathOffer(t, db, "30.00", 2)
	order := seedPendingOrder(t, db, userID, offer, 2)

	result, err := svc.Pay(context.Background(), order.ID, Actor{UserID: userID, Role: enums.UserRoleClient}, PayInput{})
	require.NoError(t, err)
	require.Len(t, result.Tickets, 2)

	var storedOrder models.Order
	require.NoError(t, db.First(&storedOrder, "id = ?", order.ID).Error)
	assert.Equal(t, enums.PaymentStatusPaid, storedOrder.PaymentStatus)
	require.NotNil(t, storedOrder.PaidAt)
	require.NotNil(t, storedOrder.PaymentReference)
	assert.Equal(t, "REF-"+order.OrderNumber, *storedOrder.PaymentReference)

	var storedOffer models.Offer
	require.NoError(t, db.First(&storedOffer, "id = ?", offer.ID).Error)
	assert.Equal(t, 0, storedOffer.StockAvailable)
	assert.Equal(t, enums.OfferStatusSoldOut, storedOffer.Status)

	var tickets []models.Ticket
	require.NoError(t, db.Find(&tickets, "order_id = ?", order.ID).Error)
	require.Len(t, tickets, 2)

	sum := decimal.Zero
	for _, ticket := range tickets {
		assert.Equal(t, enums.TicketStatusValid, ticket.Status)
		sum = sum.Add(ticket.PricePaid)
	}
	assert.True(t, sum.Equal(storedOrder.TotalAmount), "ticket prices %s vs total %s", sum, storedOrder.TotalAmount)

	types := map[enums.OutboxEventType]int{}
	for _, event := range ob.events {
		types[event.EventType]++
	}
	assert.Equal(t, 1, types[enums.EventOrderPaid])
	assert.Equal(t, 1, types[enums.EventOfferSoldOut])
	assert.Equal(t, 1, types[enums.EventTicketsIssued])
}

func TestPay_CompetingOrdersOverSharedStock(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	svc, err := NewService(repo, gormTxRunner{db: db}, &recordingOutbox{}, "")
	require.NoError(t, err)

	offer := seedPaidPathOffer(t, db, "45.00", 1)
	alice := uuid.New()
	bob := uuid.New()
	first := seedPendingOrder(t, db, alice, offer, 1)
	second := seedPendingOrder(t, db, bob, offer, 1)

	_, err = svc.Pay(context.Background(), first.ID, Actor{UserID: alice, Role: enums.UserRoleClient}, PayInput{})
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), second.ID, Actor{UserID: bob, Role: enums.UserRoleClient}, PayInput{})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// the loser's rollback must leave no partial state behind
	var storedSecond models.Order
	require.NoError(t, db.First(&storedSecond, "id = ?", second.ID).Error)
	assert.Equal(t, enums.PaymentStatusPending, storedSecond.PaymentStatus)

	var ticketCount int64
	require.NoError(t, db.Model(&models.Ticket{}).Where("offer_id = ?", offer.ID).Count(&ticketCount).Error)
	assert.Equal(t, int64(1), ticketCount)

	var storedOffer models.Offer
	require.NoError(t, db.First(&storedOffer, "id = ?", offer.ID).Error)
	assert.Equal(t, 0, storedOffer.StockAvailable)
}

func TestIssueTickets_AgainstDB(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	svc, err := NewService(repo, gormTxRunner{db: db}, &recordingOutbox{}, "")
	require.NoError(t, err)

	userID := uuid.New()
	offer := seedPaidPathOffer(t, db, "15.00", 5)
	order := seedPendingOrder(t, db, userID, offer, 3)
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_status", enums.PaymentStatusPaid).Error)

	actor := Actor{UserID: userID, Role: enums.UserRoleClient}
	result, err := svc.IssueTickets(context.Background(), order.ID, actor)
	require.NoError(t, err)
	require.Len(t, result.Tickets, 3)

	_, err = svc.IssueTickets(context.Background(), order.ID, actor)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	var ticketCount int64
	require.NoError(t, db.Model(&models.Ticket{}).Where("order_id = ?", order.ID).Count(&ticketCount).Error)
	assert.Equal(t, int64(3), ticketCount)
}
