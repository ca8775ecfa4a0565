package http

import (
	mw "github.com/labstack/echo/v4/middleware"
	"github.com/sitewave/sitewave/internal/auth"
	"github.com/sitewave/sitewave/internal/server/http/authapi"
	"github.com/sitewave/sitewave/internal/server/http/catalogapi"
	"github.com/sitewave/sitewave/internal/server/http/middleware"
	"github.com/sitewave/sitewave/internal/server/http/paymentapi"
	"github.com/sitewave/sitewave/internal/server/http/planapi"
	"github.com/sitewave/sitewave/internal/server/http/promoapi"
	"github.com/sitewave/sitewave/internal/server/http/subscriptionapi"
	"github.com/sitewave/sitewave/internal/server/http/userapi"
	"github.com/sitewave/sitewave/internal/server/http/websiteapi"
)

// WithAPI wires every route group of the builder backend under /api/v1.
func WithAPI(
	tokens *auth.TokenManager,
	authHandler *authapi.Handler,
	planHandler *planapi.Handler,
	catalogHandler *catalogapi.Handler,
	promoHandler *promoapi.Handler,
	paymentHandler *paymentapi.Handler,
	subscriptionHandler *subscriptionapi.Handler,
	websiteHandler *websiteapi.Handler,
	userHandler *userapi.Handler,
) Opt {
	return func(s *Server) {
		guardsUsersMW := middleware.GuardsUsers()

		api := s.echo.Group(
			"/api/v1",
			middleware.ResolvesPrincipalByToken(tokens),
		)

		// auth (rate limited to prevent abuse)
		authRL := mw.NewRateLimiterMemoryStore(10)
		authGroup := api.Group("/auth", mw.RateLimiter(authRL))
		authGroup.POST("/register", authHandler.PostRegister)
		authGroup.POST("/verify-email", authHandler.PostVerifyEmail)
		authGroup.POST("/login", authHandler.PostLogin)
		authGroup.POST("/reset-code", authHandler.PostSendResetCode)
		authGroup.POST("/verify-reset-code", authHandler.PostVerifyResetCode)
		authGroup.POST("/reset-password", authHandler.PostResetPassword)
		authGroup.GET("/me", authHandler.GetMe, guardsUsersMW)

		// public catalog
		api.GET("/plans", planHandler.ListPlans)
		api.GET("/plans/:planId", planHandler.GetPlan)
		api.GET("/payment-methods", catalogHandler.ListPaymentMethods)
		api.GET("/activities", catalogHandler.ListActivities)
		api.GET("/templates", catalogHandler.ListTemplates)
		api.GET("/templates/:templateId", catalogHandler.GetTemplate)

		// payments
		paymentGroup := api.Group("/payments", guardsUsersMW)
		paymentGroup.POST("", paymentHandler.CreatePayment)
		paymentGroup.GET("", paymentHandler.ListPayments)
		paymentGroup.GET("/:paymentId", paymentHandler.GetPayment)

		// subscription
		api.GET("/subscription", subscriptionHandler.GetCurrentSubscription, guardsUsersMW)
		api.GET("/subscription/history", subscriptionHandler.ListSubscriptions, guardsUsersMW)

		// websites
		websiteGroup := api.Group("/websites", guardsUsersMW)
		websiteGroup.POST("", websiteHandler.CreateWebsite)
		websiteGroup.GET("", websiteHandler.ListWebsites)
		websiteGroup.GET("/:websiteId", websiteHandler.GetWebsite)
		websiteGroup.PUT("/:websiteId", websiteHandler.UpdateWebsite)
		websiteGroup.DELETE("/:websiteId", websiteHandler.DeleteWebsite)

		// admin
		adminGroup := api.Group("/admin", guardsUsersMW, middleware.GuardsAdmins())

		adminGroup.POST("/plans", planHandler.CreatePlan)
		adminGroup.PUT("/plans/:planId", planHandler.UpdatePlan)
		adminGroup.DELETE("/plans/:planId", planHandler.DeletePlan)

		adminGroup.POST("/payment-methods", catalogHandler.CreatePaymentMethod)
		adminGroup.PUT("/payment-methods/:methodId", catalogHandler.UpdatePaymentMethod)
		adminGroup.DELETE("/payment-methods/:methodId", catalogHandler.DeletePaymentMethod)
		adminGroup.POST("/activities", catalogHandler.CreateActivity)
		adminGroup.PUT("/activities/:activityId", catalogHandler.UpdateActivity)
		adminGroup.DELETE("/activities/:activityId", catalogHandler.DeleteActivity)
		adminGroup.POST("/templates", catalogHandler.CreateTemplate)
		adminGroup.PUT("/templates/:templateId", catalogHandler.UpdateTemplate)
		adminGroup.DELETE("/templates/:templateId", catalogHandler.DeleteTemplate)

		adminGroup.GET("/users", userHandler.ListUsers)
		adminGroup.GET("/users/:userId", userHandler.GetUser)
		adminGroup.POST("/users", userHandler.CreateUser)
		adminGroup.PUT("/users/:userId", userHandler.UpdateUser)
		adminGroup.DELETE("/users/:userId", userHandler.DeleteUser)

		adminGroup.GET("/promo-codes", promoHandler.ListCodes)
		adminGroup.GET("/promo-codes/:codeId", promoHandler.GetCode)
		adminGroup.POST("/promo-codes", promoHandler.CreateCode)
		adminGroup.PUT("/promo-codes/:codeId", promoHandler.UpdateCode)
		adminGroup.DELETE("/promo-codes/:codeId", promoHandler.DeleteCode)

		adminGroup.GET("/payments", paymentHandler.ListAllPayments)
		adminGroup.GET("/payments/:paymentId", paymentHandler.GetPaymentAdmin)
		adminGroup.POST("/payments/:paymentId/decision", paymentHandler.DecidePayment)

		adminGroup.GET("/subscriptions", subscriptionHandler.ListAllSubscriptions)

		adminGroup.GET("/websites", websiteHandler.ListAllWebsites)
		adminGroup.POST("/websites/:websiteId/review", websiteHandler.ReviewWebsite)
	}
}
