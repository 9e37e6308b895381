package controllers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/logger"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/repository"
	"go.uber.org/zap"
)

type Authenticator interface {
	Login(password string) (string, time.Time, error)
}

type RunReader interface {
	List(ctx context.Context, limit int) ([]models.RunRecord, error)
	Find(ctx context.Context, runID string) (*models.RunRecord, error)
	ListByProduct(ctx context.Context, productName string, limit int) ([]models.RunRecord, error)
}

type Dashboard interface {
	Summary(ctx context.Context) (*models.DashboardSummary, error)
	SecurityLayers(ctx context.Context) ([]models.SecurityLayer, error)
}

type AdminController struct {
	auth          Authenticator
	runs          RunReader
	dashboard     Dashboard
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

// NewAdminController accepts nil notifications when no dispatch log is kept.
func NewAdminController(auth Authenticator, runs RunReader, dashboard Dashboard, notifications repository.NotificationRepository, logger *zap.Logger) *AdminController {
	return &AdminController{
		auth:          auth,
		runs:          runs,
		dashboard:     dashboard,
		notifications: notifications,
		logger:        logger,
	}
}

// Login handles POST /admin/login.
func (ac *AdminController) Login(c *gin.Context) {
	var req models.AdminLoginRequest
	if !bindJSON(c, &req) {
		return
	}
	token, expiresAt, err := ac.auth.Login(req.Password)
	if err != nil {
		logger.For(c, ac.logger).Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expiresAt.UTC(),
	})
}

// ListRuns handles GET /admin/runs?limit=&product=.
func (ac *AdminController) ListRuns(c *gin.Context) {
	limit := repository.MaxRunHistory
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apperrors.Respond(c, apperrors.InvalidInput("limit must be a positive integer"))
			return
		}
		if n < limit {
			limit = n
		}
	}

	var (
		runs []models.RunRecord
		err  error
	)
	if product := c.Query("product"); product != "" {
		runs, err = ac.runs.ListByProduct(c.Request.Context(), product, limit)
	} else {
		runs, err = ac.runs.List(c.Request.Context(), limit)
	}
	if err != nil {
		logger.For(c, ac.logger).Error("failed to list runs", zap.Error(err))
		apperrors.Respond(c, apperrors.CollaboratorUnavailable("run history", err))
		return
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun handles GET /admin/runs/:id.
func (ac *AdminController) GetRun(c *gin.Context) {
	run, err := ac.runs.Find(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrRunNotFound) {
		apperrors.Respond(c, apperrors.NotFound("Run not found"))
		return
	}
	if err != nil {
		logger.For(c, ac.logger).Error("failed to load run", zap.String("run_id", c.Param("id")), zap.Error(err))
		apperrors.Respond(c, apperrors.CollaboratorUnavailable("run history", err))
		return
	}
	c.JSON(http.StatusOK, run)
}

// Summary handles GET /admin/summary.
func (ac *AdminController) Summary(c *gin.Context) {
	summary, err := ac.dashboard.Summary(c.Request.Context())
	if err != nil {
		logger.For(c, ac.logger).Error("failed to build summary", zap.Error(err))
		apperrors.Respond(c, apperrors.CollaboratorUnavailable("dashboard", err))
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SecurityLayers handles GET /admin/security-layers.
func (ac *AdminController) SecurityLayers(c *gin.Context) {
	layers, err := ac.dashboard.SecurityLayers(c.Request.Context())
	if err != nil {
		logger.For(c, ac.logger).Error("failed to build security layers", zap.Error(err))
		apperrors.Respond(c, apperrors.CollaboratorUnavailable("dashboard", err))
		return
	}
	if layers == nil {
		layers = []models.SecurityLayer{}
	}
	c.JSON(http.StatusOK, gin.H{"layers": layers})
}

// Notifications handles GET /admin/notifications.
func (ac *AdminController) Notifications(c *gin.Context) {
	page, pageSize := parsePaginationParams(c)
	if ac.notifications == nil {
		c.JSON(http.StatusOK, gin.H{
			"logs": []models.NotificationLog{},
			"meta": gin.H{"page": page, "page_size": pageSize, "total": 0, "total_pages": 0},
		})
		return
	}

	logs, total, err := ac.notifications.GetLogs(c.Request.Context(), c.Query("recipient"), page, pageSize)
	if err != nil {
		logger.For(c, ac.logger).Error("failed to get notification logs", zap.Error(err))
		apperrors.Respond(c, apperrors.CollaboratorUnavailable("notification log", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs": logs,
		"meta": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int(math.Ceil(float64(total) / float64(pageSize))),
		},
	})
}
