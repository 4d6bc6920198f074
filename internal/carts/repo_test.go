package carts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	"github.com/eventpass/eventpass-backend/pkg/enums"
	"github.com/eventpass/eventpass-backend/pkg/outbox"
)

func setupCartsTestDB(t *testing.T) *gorm.DB {
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
	require.NoError(t, db.Exec(offers).Error)
	require.NoError(t, db.Exec(carts).Error)
	require.NoError(t, db.Exec(cartLines).Error)
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type dbOfferSource struct {
	db *gorm.DB
}

func (s dbOfferSource) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := s.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

type noopOutbox struct{}

func (noopOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error { return nil }

func seedOffer(t *testing.T, db *gorm.DB, price string, stock int) *models.Offer {
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

func TestCartTotal_TracksLineSubtotals(t *testing.T) {
	db := setupCartsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	svc, err := NewService(repo, dbOfferSource{db: db}, gormTxRunner{db: db}, noopOutbox{}, 48*time.Hour)
	require.NoError(t, err)

	userID := uuid.New()
	cheap := seedOffer(t, db, "10.50", 10)
	dear := seedOffer(t, db, "99.99", 10)

	cart, err := svc.AddLine(context.Background(), AddLineInput{UserID: userID, OfferID: cheap.ID, Quantity: 2})
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("21.00")), "got %s", cart.Total)

	cart, err = svc.AddLine(context.Background(), AddLineInput{UserID: userID, OfferID: dear.ID, Quantity: 3})
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("320.97")), "got %s", cart.Total)

	// merging the same offer keeps a single line and grows the total
	cart, err = svc.AddLine(context.Background(), AddLineInput{UserID: userID, OfferID: cheap.ID, Quantity: 1})
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("331.47")), "got %s", cart.Total)
	require.Len(t, cart.Lines, 2)

	var cheapLine models.CartLine
	for _, line := range cart.Lines {
		if line.OfferID == cheap.ID {
			cheapLine = line
		}
	}
	require.NotEqual(t, uuid.Nil, cheapLine.ID)
	assert.Equal(t, 3, cheapLine.Quantity)

	cart, err = svc.RemoveLine(context.Background(), RemoveLineInput{UserID: userID, CartID: cart.ID, LineID: cheapLine.ID})
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("299.97")), "got %s", cart.Total)
	require.Len(t, cart.Lines, 1)

	// the invariant holds after every step: total == sum of subtotals
	sum := decimal.Zero
	for _, line := range cart.Lines {
		sum = sum.Add(line.Subtotal)
	}
	assert.True(t, cart.Total.Equal(sum.RoundBank(2)))
}

func TestFindActiveByUser_OrdersMostRecentFirst(t *testing.T) {
	db := setupCartsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	userID := uuid.New()
	older := &models.Cart{ID: uuid.New(), UserID: userID, Status: enums.CartStatusActive, CreatedAt: time.Now().Add(-2 * time.Hour)}
	newer := &models.Cart{ID: uuid.New(), UserID: userID, Status: enums.CartStatusActive, CreatedAt: time.Now()}
	locked := &models.Cart{ID: uuid.New(), UserID: userID, Status: enums.CartStatusLocked, CreatedAt: time.Now()}
	require.NoError(t, db.Create(older).Error)
	require.NoError(t, db.Create(newer).Error)
	require.NoError(t, db.Create(locked).Error)

	active, err := repo.FindActiveByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, newer.ID, active[0].ID)
	assert.Equal(t, older.ID, active[1].ID)
}

func TestFindDueForExpiry_OnlyPastDeadlines(t *testing.T) {
	db := setupCartsTestDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := &models.Cart{ID: uuid.New(), UserID: uuid.New(), Status: enums.CartStatusActive, ExpiresAt: &past}
	fresh := &models.Cart{ID: uuid.New(), UserID: uuid.New(), Status: enums.CartStatusActive, ExpiresAt: &future}
	alreadyLocked := &models.Cart{ID: uuid.New(), UserID: uuid.New(), Status: enums.CartStatusLocked, ExpiresAt: &past}
	require.NoError(t, db.Create(due).Error)
	require.NoError(t, db.Create(fresh).Error)
	require.NoError(t, db.Create(alreadyLocked).Error)

	rows, err := repo.FindDueForExpiry(context.Background(), now, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, due.ID, rows[0].ID)
}
