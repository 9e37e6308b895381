package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/pharmacy-agent/controllers"
	"github.com/yashrajoria/pharmacy-agent/middleware"
)

type Controllers struct {
	Chat     *controllers.ChatController
	Checkout *controllers.CheckoutController
	Catalog  *controllers.CatalogController
	Admin    *controllers.AdminController
}

func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
}

// RegisterConversationRoutes sets up the chat, voice and checkout routes.
// All of them are scoped to the X-Conversation-ID header.
func RegisterConversationRoutes(r *gin.Engine, chat *controllers.ChatController, checkout *controllers.CheckoutController) {
	conv := r.Group("")
	conv.Use(middleware.ConversationID())

	conv.POST("/chat/utterance", chat.SubmitUtterance)
	conv.POST("/voice/transcribe", chat.Transcribe)

	conv.GET("/checkout", checkout.GetCheckout)
	conv.POST("/checkout/:action", checkout.Advance)
}

func RegisterCatalogRoutes(r *gin.Engine, cc *controllers.CatalogController) {
	r.GET("/medicines", cc.ListMedicines)
	r.GET("/orders", cc.ListOrders)
}

// RegisterAdminRoutes sets up the audit dashboard. Everything except
// login needs an admin token.
func RegisterAdminRoutes(r *gin.Engine, ac *controllers.AdminController, jwtSecret []byte) {
	admin := r.Group("/admin")
	admin.POST("/login", ac.Login)

	protected := admin.Group("")
	protected.Use(middleware.AdminJWT(jwtSecret))
	protected.GET("/runs", ac.ListRuns)
	protected.GET("/runs/:id", ac.GetRun)
	protected.GET("/summary", ac.Summary)
	protected.GET("/security-layers", ac.SecurityLayers)
	protected.GET("/notifications", ac.Notifications)
}

func RegisterRoutes(r *gin.Engine, ctrl Controllers, jwtSecret []byte) {
	RegisterHealthRoutes(r)
	RegisterConversationRoutes(r, ctrl.Chat, ctrl.Checkout)
	RegisterCatalogRoutes(r, ctrl.Catalog)
	RegisterAdminRoutes(r, ctrl.Admin, jwtSecret)
}
