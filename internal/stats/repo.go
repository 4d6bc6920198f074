package stats

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/db/models"
	pkgerrors "github.com/eventpass/eventpass-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns a Repository backed by the given gorm handle.
func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &repository{db: db}, nil
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Increment(ctx context.Context, offerID uuid.UUID, tickets int, revenue decimal.Decimal) error {
	if err := r.increment(ctx, offerID, tickets, revenue); err == nil {
		return nil
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return err
	}

	stat := &models.SalesStat{
		ID:          uuid.New(),
		OfferID:     offerID,
		TicketsSold: tickets,
		Revenue:     revenue,
	}
	createErr := r.db.WithContext(ctx).Create(stat).Error
	if createErr == nil {
		return nil
	}
	// A competing worker may have created the row between the miss and the
	// insert. The unique index on offer_id makes the retry safe.
	if retryErr := r.increment(ctx, offerID, tickets, revenue); retryErr == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "failed to create sales stat")
}

func (r *repository) increment(ctx context.Context, offerID uuid.UUID, tickets int, revenue decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.SalesStat{}).
		Where("offer_id = ?", offerID).
		Updates(map[string]any{
			"tickets_sold": gorm.Expr("tickets_sold + ?", tickets),
			"revenue":      gorm.Expr("revenue + ?", revenue),
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "failed to increment sales stat")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "sales stat not found")
	}
	return nil
}

func (r *repository) FindByOffer(ctx context.Context, offerID uuid.UUID) (*models.SalesStat, error) {
	var stat models.SalesStat
	err := r.db.WithContext(ctx).First(&stat, "offer_id = ?", offerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sales stat not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load sales stat")
	}
	return &stat, nil
}

func (r *repository) FindRowByOffer(ctx context.Context, offerID uuid.UUID) (*StatRow, error) {
	var row StatRow
	err := r.joined(ctx).
		Where("sales_stats.offer_id = ?", offerID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sales stat not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load sales stat")
	}
	return &row, nil
}

func (r *repository) List(ctx context.Context, filters Filters) ([]StatRow, error) {
	var rows []StatRow
	err := applyFilters(r.joined(ctx), filters).
		Order("sales_stats.tickets_sold DESC, sales_stats.offer_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list sales stats")
	}
	return rows, nil
}

func (r *repository) Summary(ctx context.Context, filters Filters) (*Summary, error) {
	var summary Summary
	err := applyFilters(r.joinedBase(ctx), filters).
		Select("COUNT(*) AS offers, COALESCE(SUM(sales_stats.tickets_sold), 0) AS tickets_sold, COALESCE(SUM(sales_stats.revenue), 0) AS revenue").
		Take(&summary).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to summarize sales stats")
	}
	return &summary, nil
}

func (r *repository) joined(ctx context.Context) *gorm.DB {
	return r.joinedBase(ctx).
		Select("sales_stats.offer_id, offers.name AS offer_name, offers.event_id, events.organizer_id, sales_stats.tickets_sold, sales_stats.revenue, sales_stats.last_updated")
}

func (r *repository) joinedBase(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("sales_stats").
		Joins("JOIN offers ON offers.id = sales_stats.offer_id").
		Joins("JOIN events ON events.id = offers.event_id")
}

func applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.EventID != nil {
		query = query.Where("offers.event_id = ?", *filters.EventID)
	}
	if filters.OrganizerID != nil {
		query = query.Where("events.organizer_id = ?", *filters.OrganizerID)
	}
	return query
}
