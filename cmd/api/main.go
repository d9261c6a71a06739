package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gigconnect/server/internal/admin"
	"github.com/gigconnect/server/internal/alerts"
	"github.com/gigconnect/server/internal/auth"
	"github.com/gigconnect/server/internal/catalog"
	"github.com/gigconnect/server/internal/config"
	"github.com/gigconnect/server/internal/db"
	"github.com/gigconnect/server/internal/messaging"
	appmw "github.com/gigconnect/server/internal/middleware"
	"github.com/gigconnect/server/internal/order"
	"github.com/gigconnect/server/internal/payment"
	"github.com/gigconnect/server/internal/reconcile"
	"github.com/gigconnect/server/internal/requirement"
	"github.com/gigconnect/server/internal/user"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Init subsystems
	db.Init(cfg.DSN())
	alerts.Init()
	defer alerts.Close()

	// Stores
	gigStore := catalog.NewStore(db.Conn)
	reqStore := requirement.NewStore(db.Conn)
	payStore := payment.NewStore(db.Conn)
	orderStore := order.NewPGStore(db.Conn)
	userStore := auth.NewStore(db.Conn)

	// Services
	gateway := payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL)
	orderService := order.NewService(orderStore, gigStore, reqStore, reqStore, payStore, userStore)
	reconciler := reconcile.New(orderService, reqStore, payStore)

	// Handlers
	gigHandler := catalog.NewHandler(gigStore)
	reqHandler := requirement.NewHandler(reqStore)
	payHandler := payment.NewHandler(payStore, gateway, gigStore, reqStore, reconciler)
	orderHandler := order.NewHandler(orderService)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	// Health and metrics
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public auth routes
	e.POST("/signup", auth.Signup)
	e.POST("/login", auth.Login)
	e.POST("/auth/password/request", auth.RequestPasswordReset)
	e.POST("/auth/password/reset", auth.ResetPassword)
	e.POST("/auth/admin/bootstrap", auth.BootstrapAdmin)
	e.GET("/user/:id/profile", user.GetPublicProfile)

	// Public discovery
	e.GET("/gigs", gigHandler.ListGigs)
	e.GET("/gigs/:id", gigHandler.GetGig)
	e.GET("/requirements", reqHandler.ListOpenRequirements)

	// Authenticated group
	g := e.Group("")
	g.Use(appmw.JWTMiddleware)

	// Me and profile update
	g.GET("/me", auth.Me)
	g.PATCH("/user/profile", user.UpdateProfile)

	// Gigs (freelancer)
	g.POST("/gigs", gigHandler.CreateGig, appmw.RequireRoles("freelancer"))
	g.GET("/gigs/me", gigHandler.MyGigs, appmw.RequireRoles("freelancer"))
	g.PATCH("/gigs/:id", gigHandler.UpdateGig, appmw.RequireRoles("freelancer"))
	g.POST("/gigs/:id/status", gigHandler.SetGigStatus, appmw.RequireRoles("freelancer"))

	// Requirements (client) and proposals (freelancer)
	g.POST("/requirements", reqHandler.CreateRequirement, appmw.RequireRoles("client"))
	g.GET("/requirements/me", reqHandler.MyRequirements, appmw.RequireRoles("client"))
	g.POST("/requirements/:id/cancel", reqHandler.CancelRequirement, appmw.RequireRoles("client"))
	g.GET("/requirements/:id/proposals", reqHandler.ListProposals, appmw.RequireRoles("client"))
	g.POST("/requirements/:id/proposals", reqHandler.SubmitProposal, appmw.RequireRoles("freelancer"))
	g.GET("/proposals/me", reqHandler.MyProposals, appmw.RequireRoles("freelancer"))

	// Requirement completion flow
	g.POST("/proposals/:id/request-completion", reqHandler.RequestCompletion, appmw.RequireRoles("freelancer"))
	g.POST("/proposals/:id/approve-completion", reqHandler.ApproveCompletion, appmw.RequireRoles("client"))
	g.POST("/proposals/:id/reject-completion", reqHandler.RejectCompletion, appmw.RequireRoles("client"))

	// Payments
	g.POST("/payments/gig/:id", payHandler.CreateGigPaymentOrder, appmw.RequireRoles("client"))
	g.POST("/payments/proposal/:id", payHandler.CreateProposalPaymentOrder, appmw.RequireRoles("client"))
	g.POST("/payments/verify", payHandler.VerifyPayment)

	// Orders
	g.POST("/orders/purchase", orderHandler.PurchaseGig, appmw.RequireRoles("client"))
	g.POST("/orders/accept-proposal", orderHandler.AcceptProposal, appmw.RequireRoles("client"))
	g.GET("/orders", orderHandler.ListOrders)
	g.GET("/orders/:id", orderHandler.GetOrder)
	g.GET("/orders/by-payment/:ref", orderHandler.GetByPaymentRef)
	g.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
	g.POST("/orders/:id/start", orderHandler.StartWork)
	g.POST("/orders/:id/deliver", orderHandler.DeliverWork)
	g.POST("/orders/:id/approve", orderHandler.ApproveWork)
	g.POST("/orders/:id/request-revision", orderHandler.RequestRevision)

	// Order messaging
	g.POST("/orders/:id/messages", messaging.SendMessage)
	g.GET("/orders/:id/messages", messaging.ListMessages)
	g.GET("/orders/:id/messages/unread", messaging.UnreadCount)
	g.POST("/orders/:id/messages/:message_id/read", messaging.MarkMessageRead)
	g.GET("/orders/:id/ws", messaging.OrderWS)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(appmw.JWTMiddleware)
	adminGroup.Use(appmw.AdminGuard)
	adminGroup.GET("/stats", admin.Stats)
	adminGroup.GET("/users", admin.ListUsers)
	adminGroup.GET("/orders", admin.ListOrders)
	adminGroup.GET("/payments", admin.ListPayments)

	log.Printf("API server listening on :%s", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
