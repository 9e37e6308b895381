package controllers_test

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/pharmacy-agent/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock ConversationService ---

type mockConversations struct {
	submitFn  func(ctx context.Context, conv, text string) (*models.Outcome, error)
	advanceFn func(ctx context.Context, conv string, action models.CheckoutAction, p models.CheckoutPayload) (*models.Outcome, error)
	currentFn func(ctx context.Context, conv string) (*models.PendingCheckout, error)
}

func (m *mockConversations) SubmitUtterance(ctx context.Context, conv, text string) (*models.Outcome, error) {
	return m.submitFn(ctx, conv, text)
}
func (m *mockConversations) AdvanceCheckout(ctx context.Context, conv string, action models.CheckoutAction, p models.CheckoutPayload) (*models.Outcome, error) {
	return m.advanceFn(ctx, conv, action, p)
}
func (m *mockConversations) CurrentCheckout(ctx context.Context, conv string) (*models.PendingCheckout, error) {
	return m.currentFn(ctx, conv)
}

// --- Mock Transcriber / AudioArchive ---

type mockTranscriber struct {
	text string
	err  error
	got  []byte
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	m.got = audio
	return m.text, m.err
}

type mockArchive struct {
	keys         []string
	contentTypes []string
	err          error
}

func (m *mockArchive) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	m.keys = append(m.keys, key)
	m.contentTypes = append(m.contentTypes, contentType)
	return "s3://bucket/" + key, m.err
}

// --- Mock admin collaborators ---

type mockAuth struct {
	loginFn func(password string) (string, time.Time, error)
}

func (m *mockAuth) Login(password string) (string, time.Time, error) {
	return m.loginFn(password)
}

type mockRuns struct {
	runs  []models.RunRecord
	limit int
	err   error
}

func (m *mockRuns) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	m.limit = limit
	return m.runs, m.err
}

func (m *mockRuns) ListByProduct(ctx context.Context, product string, limit int) ([]models.RunRecord, error) {
	m.limit = limit
	var out []models.RunRecord
	for _, r := range m.runs {
		if r.ProductName == product {
			out = append(out, r)
		}
	}
	return out, m.err
}

func (m *mockRuns) Find(ctx context.Context, id string) (*models.RunRecord, error) {
	for i := range m.runs {
		if m.runs[i].RunID == id {
			return &m.runs[i], nil
		}
	}
	return nil, m.err
}

type mockDashboard struct {
	summary *models.DashboardSummary
	layers  []models.SecurityLayer
	err     error
}

func (m *mockDashboard) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	return m.summary, m.err
}

func (m *mockDashboard) SecurityLayers(ctx context.Context) ([]models.SecurityLayer, error) {
	return m.layers, m.err
}

type mockNotifications struct {
	logs      []models.NotificationLog
	total     int64
	recipient string
	page      int
	limit     int
}

func (m *mockNotifications) SaveLog(ctx context.Context, log *models.NotificationLog) error {
	return nil
}

func (m *mockNotifications) GetLogs(ctx context.Context, recipient string, page, limit int) ([]models.NotificationLog, int64, error) {
	m.recipient, m.page, m.limit = recipient, page, limit
	return m.logs, m.total, nil
}
