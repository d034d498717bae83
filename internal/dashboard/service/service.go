package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"encantar/internal/dashboard/models"
	dErrors "encantar/pkg/domain-errors"
)

type Store interface {
	Totals(ctx context.Context) (*models.Totals, error)
	DeliveriesByStatus(ctx context.Context) ([]models.StatusCount, error)
	RecentDeliveries(ctx context.Context, limit int) ([]models.RecentDelivery, error)
}

var tracer = otel.Tracer("encantar/dashboard")

// Service assembles the dashboard summary.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// Stats runs the three aggregate queries concurrently. The first failure
// cancels the others.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	ctx, span := tracer.Start(ctx, "dashboard.Stats")
	defer span.End()

	var (
		totals *models.Totals
		counts []models.StatusCount
		recent []models.RecentDelivery
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.store.Totals(gctx)
		return err
	})
	g.Go(func() (err error) {
		counts, err = s.store.DeliveriesByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.store.RecentDeliveries(gctx, models.RecentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dashboard")
	}

	if recent == nil {
		recent = []models.RecentDelivery{}
	}
	return &models.Stats{
		TotalBeneficiaries: totals.Beneficiaries,
		TotalItems:         totals.Items,
		TotalRoutes:        totals.Routes,
		TotalDeliveries:    totals.Deliveries,
		DeliveriesByStatus: models.FillStatuses(counts),
		RecentDeliveries:   recent,
	}, nil
}
