package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/models"
	"go.uber.org/zap"
)

const clarificationMessage = "Please share medicine name and quantity so I can process it safely."

// Orchestrator is the entry point for a conversation: it feeds utterances
// through intent resolution and the policy gate into the checkout
// machine, and routes checkout actions.
type Orchestrator struct {
	catalog  *CatalogCache
	primary  DecisionEngine
	fallback DecisionEngine
	checkout *CheckoutMachine
	logger   *zap.Logger
	now      func() time.Time

	locks conversationLocks
}

// NewOrchestrator uses primary for decisions. When fallback is non-nil it
// is consulted whenever primary is unavailable.
func NewOrchestrator(catalog *CatalogCache, primary, fallback DecisionEngine, checkout *CheckoutMachine, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:  catalog,
		primary:  primary,
		fallback: fallback,
		checkout: checkout,
		logger:   logger,
		now:      time.Now,
	}
}

func (o *Orchestrator) SubmitUtterance(ctx context.Context, conversationID, text string) (*models.Outcome, error) {
	started := o.now()
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.InvalidInput("no utterance")
	}

	unlock := o.locks.lock(conversationID)
	defer unlock()

	active, err := o.checkout.Active(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperrors.SessionAlreadyActive()
	}

	if IsGreeting(text) || !LooksLikeOrder(text) {
		return &models.Outcome{Kind: models.OutcomeClarification, Message: clarificationMessage}, nil
	}

	catalog, err := o.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	intent := ResolveIntent(text, catalog)

	decision, err := o.evaluate(ctx, intent)
	if err != nil {
		return nil, err
	}

	return o.checkout.Start(ctx, conversationID, text, intent, decision, started)
}

func (o *Orchestrator) evaluate(ctx context.Context, intent models.Intent) (models.Decision, error) {
	decision, err := o.primary.Evaluate(ctx, intent)
	if err == nil {
		return decision, nil
	}
	if o.fallback == nil || !errors.Is(err, apperrors.ErrCollaboratorUnavailable) {
		return models.Decision{}, err
	}
	o.logger.Warn("primary decision engine unavailable, using fallback", zap.Error(err))
	return o.fallback.Evaluate(ctx, intent)
}

// AdvanceCheckout applies a user action to the conversation's session.
func (o *Orchestrator) AdvanceCheckout(ctx context.Context, conversationID string, action models.CheckoutAction, payload models.CheckoutPayload) (*models.Outcome, error) {
	unlock := o.locks.lock(conversationID)
	defer unlock()

	switch action {
	case models.CheckoutActionConfirm:
		return o.checkout.Confirm(ctx, conversationID, payload.SessionID)
	case models.CheckoutActionCancel:
		return o.checkout.Cancel(ctx, conversationID, payload.SessionID)
	case models.CheckoutActionPay:
		return o.checkout.Pay(ctx, conversationID, payload.SessionID, payload.Email)
	default:
		return nil, apperrors.InvalidInput("unknown checkout action")
	}
}

// CurrentCheckout returns the live session view or SessionNotFound.
func (o *Orchestrator) CurrentCheckout(ctx context.Context, conversationID string) (*models.PendingCheckout, error) {
	unlock := o.locks.lock(conversationID)
	defer unlock()

	s, err := o.checkout.Active(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperrors.SessionNotFound("No active checkout session.")
	}
	return models.NewPendingCheckout(s), nil
}

// conversationLocks serializes calls for one conversation inside this
// process. Across replicas the session store's create-if-absent is what
// keeps a conversation to a single session.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

func (l *conversationLocks) lock(id string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*conversationLock)
	}
	cl, ok := l.locks[id]
	if !ok {
		cl = &conversationLock{}
		l.locks[id] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
