package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/logger"
	"github.com/yashrajoria/pharmacy-agent/middleware"
	"github.com/yashrajoria/pharmacy-agent/models"
	"go.uber.org/zap"
)

type CheckoutController struct {
	conversations ConversationService
	logger        *zap.Logger
}

func NewCheckoutController(conversations ConversationService, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{conversations: conversations, logger: logger}
}

// GetCheckout handles GET /checkout.
func (cc *CheckoutController) GetCheckout(c *gin.Context) {
	pending, err := cc.conversations.CurrentCheckout(c.Request.Context(), middleware.GetConversationID(c))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, pending)
}

// Advance handles POST /checkout/:action.
func (cc *CheckoutController) Advance(c *gin.Context) {
	action, err := models.ParseCheckoutAction(c.Param("action"))
	if err != nil {
		apperrors.Respond(c, apperrors.InvalidInput(err.Error()))
		return
	}

	var req models.CheckoutActionRequest
	if !bindJSON(c, &req) {
		return
	}

	conversationID := middleware.GetConversationID(c)
	outcome, err := cc.conversations.AdvanceCheckout(c.Request.Context(), conversationID, action, models.CheckoutPayload{
		SessionID: req.CheckoutID,
		Email:     req.Email,
	})
	if err != nil {
		if apperrors.From(err).Code >= http.StatusInternalServerError {
			logger.For(c, cc.logger).Error("checkout action failed",
				zap.String("conversation_id", conversationID),
				zap.String("action", string(action)),
				zap.Error(err),
			)
		}
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
