package services

import (
	"context"
	"sort"

	"github.com/yashrajoria/pharmacy-agent/models"
	"golang.org/x/sync/errgroup"
)

const topProductsLimit = 10

type OrderLister interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
}

// DashboardService builds the read-only audit views.
type DashboardService struct {
	ledger  *RunLedger
	orders  OrderLister
	catalog CatalogSource
}

func NewDashboardService(ledger *RunLedger, orders OrderLister, catalog CatalogSource) *DashboardService {
	return &DashboardService{ledger: ledger, orders: orders, catalog: catalog}
}

func (d *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	var (
		runs     []models.RunRecord
		orders   []models.Order
		products []models.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		runs, err = d.ledger.List(gctx, 0)
		return err
	})
	g.Go(func() (err error) {
		orders, err = d.orders.ListOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		products, err = d.catalog.GetCatalog(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &models.DashboardSummary{
		Runs:        Summarize(runs),
		TopProducts: TopProducts(orders, topProductsLimit),
		TotalOrders: len(orders),
	}
	for _, p := range products {
		summary.TotalStock += p.Stock
	}
	return summary, nil
}

// TopProducts counts orders per product, highest first, ties by name.
func TopProducts(orders []models.Order, limit int) []models.ProductOrderCount {
	counts := make(map[string]int)
	for _, o := range orders {
		counts[o.ProductName]++
	}
	out := make([]models.ProductOrderCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.ProductOrderCount{ProductName: name, Orders: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return out[i].ProductName < out[j].ProductName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SecurityLayers reports, for the most recent run, which guard layers it
// passed. Nil when there are no runs.
func (d *DashboardService) SecurityLayers(ctx context.Context) ([]models.SecurityLayer, error) {
	runs, err := d.ledger.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return LayersFor(runs[0]), nil
}

func LayersFor(run models.RunRecord) []models.SecurityLayer {
	input := models.LayerFail
	if run.UserPrompt != "" {
		input = models.LayerPass
	}
	policy := models.LayerFail
	if run.TraceCount >= 2 {
		policy = models.LayerPass
	}
	commit := models.LayerNA
	if commitAttempted(run) {
		commit = models.LayerFail
		if run.CommitOK {
			commit = models.LayerPass
		}
	}
	return []models.SecurityLayer{
		{Layer: "L1 Input Guard", Status: input},
		{Layer: "L2 Policy Gate", Status: policy},
		{Layer: "L3 Atomic Commit", Status: commit},
	}
}

func commitAttempted(run models.RunRecord) bool {
	for _, ev := range run.Trace {
		if ev.Stage == models.StageAction {
			return true
		}
	}
	return run.CommitOK
}
