package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/eventpass/eventpass-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dueExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// ExpirySweepJobParams configure the cart and offer expiry sweep.
type ExpirySweepJobParams struct {
	Logger *logger.Logger
	Carts  dueExpirer
	Offers dueExpirer
}

// NewExpirySweepJob builds the job that ages out idle carts and closes
// offers whose sale window has passed.
func NewExpirySweepJob(params ExpirySweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("carts service required")
	}
	if params.Offers == nil {
		return nil, fmt.Errorf("offers service required")
	}
	return &expirySweepJob{
		logg:   params.Logger,
		carts:  params.Carts,
		offers: params.Offers,
		now:    time.Now,
	}, nil
}

type expirySweepJob struct {
	logg   *logger.Logger
	carts  dueExpirer
	offers dueExpirer
	now    func() time.Time
}

func (j *expirySweepJob) Name() string { return "expiry-sweep" }

func (j *expirySweepJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.expireCarts(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.expireOffers(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *expirySweepJob) expireCarts(ctx context.Context) error {
	count, err := j.carts.ExpireDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire idle carts: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "cart expiry loop complete")
	return nil
}

func (j *expirySweepJob) expireOffers(ctx context.Context) error {
	count, err := j.offers.ExpireDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire closed offers: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "offer expiry loop complete")
	return nil
}
