package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/repository"
	"github.com/yashrajoria/pharmacy-agent/services"
	"go.uber.org/zap"
)

const conv = "conv-1"

func paracetamol() models.Product {
	return models.Product{Name: "ParacetamolXL", Stock: 10, UnitPrice: 5}
}

func amoxicillin() models.Product {
	return models.Product{Name: "Amoxicillin", Stock: 10, UnitPrice: 12, RequiresPrescription: true}
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered bool
	sent      []*models.Invoice
}

func (f *fakeNotifier) SendInvoice(ctx context.Context, invoice *models.Invoice) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, invoice)
	return f.delivered
}

type fakeCommitter struct {
	result *models.CommitResult
	err    error
	calls  int
	keys   []string
}

func (f *fakeCommitter) CommitOrder(ctx context.Context, productName string, quantity int, idempotencyKey string) (*models.CommitResult, error) {
	f.calls++
	f.keys = append(f.keys, idempotencyKey)
	return f.result, f.err
}

// claimSessions wraps the memory store so tests can fail or pre-empt
// Claim the way a shared store can.
type claimSessions struct {
	*repository.MemorySessionRepository
	claimErr    error
	beforeClaim func(ctx context.Context, conversationID, sessionID string)
	claims      int
}

func (c *claimSessions) Claim(ctx context.Context, conversationID, sessionID string) error {
	c.claims++
	if c.beforeClaim != nil {
		c.beforeClaim(ctx, conversationID, sessionID)
	}
	if c.claimErr != nil {
		return c.claimErr
	}
	return c.MemorySessionRepository.Claim(ctx, conversationID, sessionID)
}

type stubEngine struct {
	decision models.Decision
	err      error
	calls    int
}

func (s *stubEngine) Evaluate(ctx context.Context, intent models.Intent) (models.Decision, error) {
	s.calls++
	return s.decision, s.err
}

type fixtureOpts struct {
	committer services.OrderCommitter
	primary   services.DecisionEngine
	fallback  services.DecisionEngine
	catalog   services.CatalogSource
	notifier  *fakeNotifier
	sessions  *claimSessions
}

type fixture struct {
	inventory *repository.MemoryInventoryRepository
	sessions  *repository.MemorySessionRepository
	runs      *repository.MemoryRunRepository
	notifier  *fakeNotifier
	machine   *services.CheckoutMachine
	orch      *services.Orchestrator
}

func newFixture(t *testing.T, opts fixtureOpts, products ...models.Product) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		inventory: repository.NewMemoryInventoryRepository(products...),
		sessions:  repository.NewMemorySessionRepository(),
		runs:      repository.NewMemoryRunRepository(),
		notifier:  opts.notifier,
	}
	if f.notifier == nil {
		f.notifier = &fakeNotifier{delivered: true}
	}

	var source services.CatalogSource = f.inventory
	if opts.catalog != nil {
		source = opts.catalog
	}
	cache := services.NewCatalogCache(source, 0, nil, logger)

	var committer services.OrderCommitter = f.inventory
	if opts.committer != nil {
		committer = opts.committer
	}
	primary := opts.primary
	if primary == nil {
		primary = services.NewLocalDecisionEngine(f.inventory)
	}

	var sessions repository.SessionRepository = f.sessions
	if opts.sessions != nil {
		opts.sessions.MemorySessionRepository = f.sessions
		sessions = opts.sessions
	}

	ledger := services.NewRunLedger(f.runs, nil, nil, logger)
	f.machine = services.NewCheckoutMachine(services.CheckoutDeps{
		Sessions:  sessions,
		Committer: committer,
		Ledger:    ledger,
		Notifier:  f.notifier,
		Catalog:   cache,
	}, services.CheckoutConfig{}, logger)
	f.orch = services.NewOrchestrator(cache, primary, opts.fallback, f.machine, logger)
	return f
}

func (f *fixture) session(t *testing.T) *models.CheckoutSession {
	t.Helper()
	s, err := f.sessions.Get(context.Background(), conv)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	return s
}

func (f *fixture) history(t *testing.T) []models.RunRecord {
	t.Helper()
	runs, err := f.runs.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	return runs
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
