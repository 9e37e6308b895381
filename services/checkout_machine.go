package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/models"
	awspkg "github.com/yashrajoria/pharmacy-agent/pkg/aws"
	"github.com/yashrajoria/pharmacy-agent/repository"
	"go.uber.org/zap"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email looks like local@domain.tld.
func ValidEmail(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}

// OrderCommitter is the atomic check-decrement-record operation of the store.
// The checkout session id is passed as idempotencyKey.
type OrderCommitter interface {
	CommitOrder(ctx context.Context, productName string, quantity int, idempotencyKey string) (*models.CommitResult, error)
}

type CheckoutConfig struct {
	// SessionTTL > 0 expires sessions idle for longer than this.
	SessionTTL          time.Duration
	CommitTimeout       time.Duration
	OrderEventsTopicArn string
}

type CheckoutDeps struct {
	Sessions  repository.SessionRepository
	Committer OrderCommitter
	Ledger    *RunLedger
	Notifier  InvoiceNotifier
	Catalog   *CatalogCache
	Events    awspkg.SNSPublisher
	Metrics   MetricsRecorder
}

// CheckoutMachine drives a conversation's session slot:
//
//	NoSession --start(approve)--> Confirm --confirm--> Payment --pay--> NoSession
//	Confirm|Payment --cancel--> NoSession
//
// Every transition back to NoSession finalizes exactly one RunRecord.
type CheckoutMachine struct {
	sessions  repository.SessionRepository
	committer OrderCommitter
	ledger    *RunLedger
	notifier  InvoiceNotifier
	catalog   *CatalogCache
	events    awspkg.SNSPublisher
	metrics   MetricsRecorder
	cfg       CheckoutConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewCheckoutMachine(deps CheckoutDeps, cfg CheckoutConfig, logger *zap.Logger) *CheckoutMachine {
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 10 * time.Second
	}
	return &CheckoutMachine{
		sessions:  deps.Sessions,
		committer: deps.Committer,
		ledger:    deps.Ledger,
		notifier:  deps.Notifier,
		catalog:   deps.Catalog,
		events:    deps.Events,
		metrics:   deps.Metrics,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Start handles a policy decision for a conversation with no session.
// Rejections finalize a run immediately; an approval opens a session in
// the Confirm stage. started is when processing of the utterance began.
func (m *CheckoutMachine) Start(ctx context.Context, conversationID, prompt string, intent models.Intent, decision models.Decision, started time.Time) (*models.Outcome, error) {
	active, err := m.Active(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperrors.SessionAlreadyActive()
	}

	rec := NewTraceRecorder(nil)
	productLabel := intent.ProductName
	if productLabel == "" {
		productLabel = "UNKNOWN"
	}
	rec.Appendf(models.StageIntentExtraction, "product=%s, qty=%d", productLabel, intent.Quantity)
	score := SuggestionScore(decision)

	var message string
	switch decision.Kind {
	case models.DecisionRejectUnresolved:
		rec.Append(models.StageSafetyPolicy, "Rejected: product not identified")
		message = "I couldn't identify one medicine clearly. Please say one medicine name."
	case models.DecisionRejectNotFound:
		rec.Append(models.StageSafetyPolicy, "Rejected: product not found")
		message = fmt.Sprintf("Medicine '%s' not found.", decision.ProductName)
	case models.DecisionRejectPrescriptionRequired:
		rec.Appendf(models.StageSafetyPolicy, "stock=%d, prescription=%t", decision.Product.Stock, decision.Product.RequiresPrescription)
		rec.Append(models.StageSafetyPolicy, "Rejected: prescription required")
		message = fmt.Sprintf("Order rejected: %s requires prescription.", decision.Product.Name)
	case models.DecisionRejectInsufficientStock:
		rec.Appendf(models.StageSafetyPolicy, "stock=%d, prescription=%t", decision.Product.Stock, decision.Product.RequiresPrescription)
		rec.Appendf(models.StageSafetyPolicy, "Rejected: insufficient stock (requested %d, available %d)", decision.Quantity, decision.Product.Stock)
		message = fmt.Sprintf("Order rejected: requested %d, available %d.", decision.Quantity, decision.Product.Stock)
	case models.DecisionApprove:
		rec.Appendf(models.StageSafetyPolicy, "stock=%d, prescription=%t", decision.Product.Stock, decision.Product.RequiresPrescription)
		return m.open(ctx, conversationID, prompt, decision, rec, score, started)
	default:
		return nil, apperrors.Internal(fmt.Errorf("unhandled decision kind %q", decision.Kind))
	}

	name := decision.ProductName
	if name == "" {
		name = intent.ProductName
	}
	run := m.newRun(runParams{
		prompt:   prompt,
		product:  name,
		quantity: decision.Quantity,
		decision: decision.Kind,
		response: message,
		latency:  m.now().Sub(started),
		trace:    rec.Events(),
		score:    score,
	})
	m.ledger.Record(ctx, run)

	return &models.Outcome{Kind: models.OutcomeCompleted, Message: message, Run: run}, nil
}

func (m *CheckoutMachine) open(ctx context.Context, conversationID, prompt string, decision models.Decision, rec *TraceRecorder, score int, started time.Time) (*models.Outcome, error) {
	now := m.now()
	session := &models.CheckoutSession{
		ID:              uuid.NewString(),
		ConversationID:  conversationID,
		Stage:           models.CheckoutStageConfirm,
		UserPrompt:      prompt,
		ProductName:     decision.Product.Name,
		Quantity:        decision.Quantity,
		UnitPrice:       decision.UnitPrice,
		TotalPrice:      decision.TotalPrice,
		Trace:           rec.Events(),
		SuggestionScore: score,
		ProcessingMs:    now.Sub(started).Milliseconds(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrSessionExists) {
			return nil, apperrors.SessionAlreadyActive()
		}
		return nil, apperrors.CollaboratorUnavailable("session store", err)
	}

	m.logger.Info("checkout session opened",
		zap.String("conversation_id", conversationID),
		zap.String("session_id", session.ID),
		zap.String("product", session.ProductName),
		zap.Int("quantity", session.Quantity),
	)

	return &models.Outcome{
		Kind:    models.OutcomePendingCheckout,
		Message: fmt.Sprintf("Confirm order: %d x %s. Total cost: %.2f", session.Quantity, session.ProductName, session.TotalPrice),
		Pending: models.NewPendingCheckout(session),
	}, nil
}

// Active returns the conversation's live session or nil. An expired
// session is finalized and cleared on the way.
func (m *CheckoutMachine) Active(ctx context.Context, conversationID string) (*models.CheckoutSession, error) {
	s, err := m.sessions.Get(ctx, conversationID)
	if err != nil {
		return nil, apperrors.CollaboratorUnavailable("session store", err)
	}
	if s == nil {
		return nil, nil
	}
	if m.cfg.SessionTTL > 0 && m.now().Sub(s.UpdatedAt) > m.cfg.SessionTTL {
		if err := m.expire(ctx, s); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s, nil
}

func (m *CheckoutMachine) expire(ctx context.Context, s *models.CheckoutSession) error {
	if err := m.sessions.Claim(ctx, s.ConversationID, s.ID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Another caller ended it first and recorded the run.
			return nil
		}
		return apperrors.CollaboratorUnavailable("session store", err)
	}
	rec := NewTraceRecorder(s.Trace)
	rec.Append(models.StageSupervisor, "Expired after inactivity")
	m.ledger.Record(ctx, m.sessionRun(s, rec, "Checkout expired after inactivity.", "", false, 0))
	m.logger.Info("checkout session expired",
		zap.String("conversation_id", s.ConversationID),
		zap.String("session_id", s.ID),
	)
	return nil
}

func (m *CheckoutMachine) load(ctx context.Context, conversationID, sessionID string) (*models.CheckoutSession, error) {
	s, err := m.Active(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperrors.SessionNotFound("No active checkout session.")
	}
	if s.ID != sessionID {
		return nil, apperrors.SessionNotFound("Checkout session not found.")
	}
	return s, nil
}

func (m *CheckoutMachine) Confirm(ctx context.Context, conversationID, sessionID string) (*models.Outcome, error) {
	started := m.now()
	s, err := m.load(ctx, conversationID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Stage != models.CheckoutStageConfirm {
		return nil, apperrors.InvalidStage("Order is already confirmed. Enter your email to pay.")
	}

	rec := NewTraceRecorder(s.Trace)
	rec.Append(models.StageSupervisor, "Confirmed by user; awaiting payment")
	s.Trace = rec.Events()
	s.Stage = models.CheckoutStagePayment
	s.UpdatedAt = m.now()
	s.ProcessingMs += s.UpdatedAt.Sub(started).Milliseconds()

	if err := m.sessions.Save(ctx, s); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperrors.SessionNotFound("No active checkout session.")
		}
		return nil, apperrors.CollaboratorUnavailable("session store", err)
	}

	return &models.Outcome{
		Kind:    models.OutcomePendingCheckout,
		Message: fmt.Sprintf("Confirmation received. Proceed to payment of %.2f.", s.TotalPrice),
		Pending: models.NewPendingCheckout(s),
	}, nil
}

// Cancel is legal from either stage.
func (m *CheckoutMachine) Cancel(ctx context.Context, conversationID, sessionID string) (*models.Outcome, error) {
	started := m.now()
	s, err := m.load(ctx, conversationID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := m.claim(ctx, s); err != nil {
		return nil, err
	}

	rec := NewTraceRecorder(s.Trace)
	rec.Append(models.StageSupervisor, "Canceled by user")
	message := "Order canceled by user."
	run := m.sessionRun(s, rec, message, "", false, m.now().Sub(started))
	m.ledger.Record(ctx, run)

	return &models.Outcome{Kind: models.OutcomeCompleted, Message: message, Run: run}, nil
}

// claim takes the session out of the store. Only the caller that wins
// the claim may finalize the run.
func (m *CheckoutMachine) claim(ctx context.Context, s *models.CheckoutSession) error {
	err := m.sessions.Claim(ctx, s.ConversationID, s.ID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return apperrors.SessionNotFound("Checkout session already completed.")
	}
	if err != nil {
		return apperrors.CollaboratorUnavailable("session store", err)
	}
	return nil
}

// Pay commits the order. Stage and email are checked before anything is
// touched. The session is claimed before the commit, so a session is
// committed at most once and always ends once the commit is attempted.
func (m *CheckoutMachine) Pay(ctx context.Context, conversationID, sessionID, email string) (*models.Outcome, error) {
	started := m.now()
	s, err := m.load(ctx, conversationID, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Stage != models.CheckoutStagePayment {
		return nil, apperrors.InvalidStage("Please confirm the order before paying.")
	}
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return nil, apperrors.InvalidEmail()
	}
	s.CustomerEmail = email

	rec := NewTraceRecorder(s.Trace)
	rec.Appendf(models.StageAction, "Committing order: %d x %s", s.Quantity, s.ProductName)

	if err := m.claim(ctx, s); err != nil {
		return nil, err
	}

	commitCtx, cancel := context.WithTimeout(ctx, m.cfg.CommitTimeout)
	result, commitErr := m.committer.CommitOrder(commitCtx, s.ProductName, s.Quantity, s.ID)
	cancel()

	if commitErr != nil || result == nil || !result.Success {
		reason := "unknown error"
		switch {
		case errors.Is(commitErr, context.DeadlineExceeded):
			// The store may still have applied the write.
			reason = fmt.Sprintf("commit timed out, outcome unknown for order %s", s.ID)
		case commitErr != nil:
			reason = commitErr.Error()
		case result != nil && result.Reason != "":
			reason = result.Reason
		}
		rec.Append(models.StageSupervisor, "Failed: "+reason)
		message := "Order failed: " + reason
		run := m.sessionRun(s, rec, message, "", false, m.now().Sub(started))
		m.ledger.Record(ctx, run)
		recordCount(ctx, m.metrics, MetricCommitFailed, nil)
		m.logger.Warn("order commit failed",
			zap.String("session_id", s.ID),
			zap.String("product", s.ProductName),
			zap.String("reason", reason),
		)
		return &models.Outcome{Kind: models.OutcomeCompleted, Message: message, Run: run}, nil
	}

	rec.Append(models.StageSupervisor, "Committed")
	message := fmt.Sprintf("Order placed for %d %s. Order ID: %s.", s.Quantity, s.ProductName, result.OrderID)
	run := m.sessionRun(s, rec, message, result.OrderID, true, m.now().Sub(started))
	m.ledger.Record(ctx, run)
	recordCount(ctx, m.metrics, MetricOrdersCommitted, nil)

	invoice := &models.Invoice{
		InvoiceID:     models.InvoiceIDFor(result.OrderID),
		OrderID:       result.OrderID,
		ProductName:   s.ProductName,
		Quantity:      s.Quantity,
		UnitPrice:     s.UnitPrice,
		TotalPaid:     s.TotalPrice,
		CustomerEmail: email,
		PaidAt:        m.now().UTC(),
	}
	outcome := &models.Outcome{Kind: models.OutcomeCompleted, Message: message, Run: run, Invoice: invoice}

	if m.notifier != nil && m.notifier.SendInvoice(ctx, invoice) {
		outcome.InvoiceDelivered = true
		outcome.Notices = append(outcome.Notices, fmt.Sprintf("Invoice sent to %s.", email))
	} else {
		outcome.Notices = append(outcome.Notices, fmt.Sprintf("Order placed. Invoice prepared for %s.", email))
	}

	m.publishOrderCommitted(ctx, invoice)

	if m.catalog != nil {
		if err := m.catalog.Refresh(ctx); err != nil {
			m.catalog.Invalidate()
			m.logger.Warn("catalog refresh after commit failed", zap.Error(err))
		}
	}
	return outcome, nil
}

type orderCommittedEvent struct {
	EventType   string  `json:"event_type"`
	OrderID     string  `json:"order_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	TotalPrice  float64 `json:"total_price"`
	Email       string  `json:"email"`
}

func (m *CheckoutMachine) publishOrderCommitted(ctx context.Context, invoice *models.Invoice) {
	if m.events == nil || m.cfg.OrderEventsTopicArn == "" {
		return
	}
	body, err := json.Marshal(orderCommittedEvent{
		EventType:   "order_committed",
		OrderID:     invoice.OrderID,
		ProductName: invoice.ProductName,
		Quantity:    invoice.Quantity,
		TotalPrice:  invoice.TotalPaid,
		Email:       invoice.CustomerEmail,
	})
	if err != nil {
		return
	}
	if err := m.events.Publish(ctx, m.cfg.OrderEventsTopicArn, body); err != nil {
		m.logger.Warn("failed to publish order_committed", zap.String("order_id", invoice.OrderID), zap.Error(err))
	}
}

type runParams struct {
	prompt   string
	product  string
	quantity int
	decision models.DecisionKind
	orderID  string
	approved bool
	commitOK bool
	response string
	latency  time.Duration
	trace    []models.TraceEvent
	score    int
}

func (m *CheckoutMachine) newRun(p runParams) *models.RunRecord {
	return &models.RunRecord{
		RunID:           uuid.NewString(),
		Timestamp:       m.now().UTC(),
		UserPrompt:      p.prompt,
		ProductName:     p.product,
		Quantity:        p.quantity,
		Decision:        p.decision,
		OrderID:         p.orderID,
		Approved:        p.approved,
		CommitOK:        p.commitOK,
		ResponseText:    p.response,
		LatencyMs:       p.latency.Milliseconds(),
		TraceCount:      len(p.trace),
		Trace:           p.trace,
		SuggestionScore: p.score,
	}
}

// sessionRun finalizes a run that went through a session. The score was
// frozen when the session opened.
func (m *CheckoutMachine) sessionRun(s *models.CheckoutSession, rec *TraceRecorder, response, orderID string, committed bool, lastStep time.Duration) *models.RunRecord {
	return m.newRun(runParams{
		prompt:   s.UserPrompt,
		product:  s.ProductName,
		quantity: s.Quantity,
		decision: models.DecisionApprove,
		orderID:  orderID,
		approved: committed,
		commitOK: committed,
		response: response,
		latency:  time.Duration(s.ProcessingMs)*time.Millisecond + lastStep,
		trace:    rec.Events(),
		score:    s.SuggestionScore,
	})
}
