package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/acadswap/backend/internal/alerts"
	"github.com/acadswap/backend/internal/auth"
	"github.com/acadswap/backend/internal/board"
	"github.com/acadswap/backend/internal/config"
	"github.com/acadswap/backend/internal/dashboard"
	"github.com/acadswap/backend/internal/db"
	"github.com/acadswap/backend/internal/friend"
	"github.com/acadswap/backend/internal/item"
	"github.com/acadswap/backend/internal/marketplace"
	"github.com/acadswap/backend/internal/meetup"
	mware "github.com/acadswap/backend/internal/middleware"
	"github.com/acadswap/backend/internal/notification"
	"github.com/acadswap/backend/internal/offer"
	"github.com/acadswap/backend/internal/referral"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	db.EnsureSchema(ctx, pool)

	// Feedback mail rides the task queue so a slow SMTP server never blocks
	// a request.
	queue := alerts.NewService(cfg.Redis.Addr, alerts.NewMailer(cfg.Mail), cfg.Mail.To)
	queue.Start()
	defer queue.Close()

	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "acadswap"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	authHandler := auth.NewHandler(pool, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	meetupHandler := meetup.NewHandler(pool)
	dashboardHandler := dashboard.NewHandler(pool)
	itemHandler := item.NewHandler(pool)
	marketHandler := marketplace.NewHandler(pool)
	boardHandler := board.NewHandler(pool)
	offerHandler := offer.NewHandler(pool)
	friendHandler := friend.NewHandler(pool)
	notifHandler := notification.NewHandler(pool)
	referralHandler := referral.NewHandler(pool)
	feedbackHandler := alerts.NewHandler(queue)

	jwt := mware.JWT([]byte(cfg.Auth.JWTSecret))

	// Public routes. Signup/login are rate limited per IP.
	authGroup := e.Group("/api/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	e.GET("/marketplace/items", marketHandler.Feed)
	e.GET("/api/referral/validate/:code", referralHandler.Validate)
	e.POST("/items/:id/view", itemHandler.IncrementView)
	e.POST("/api/feedback/send", feedbackHandler.SendFeedback)

	// Protected routes.
	api := e.Group("", jwt)

	api.GET("/api/auth/me", authHandler.Me)
	api.GET("/api/user/dashboard", dashboardHandler.Dashboard)

	meetups := api.Group("/api/meetup")
	meetups.POST("/create", meetupHandler.Create)
	meetups.GET("/my-meetups", meetupHandler.MyMeetups)
	meetups.PUT("/:id/accept", meetupHandler.Accept)
	meetups.PUT("/:id/decline", meetupHandler.Decline)
	meetups.PUT("/:id/complete", meetupHandler.Complete)
	meetups.DELETE("/:id/cancel", meetupHandler.Cancel)
	meetups.PUT("/:id/reschedule", meetupHandler.Reschedule)
	meetups.GET("/search-users", meetupHandler.SearchUsers)

	api.POST("/items", itemHandler.Create)
	api.GET("/items/user/me", itemHandler.MyItems)
	api.PUT("/items/:id", itemHandler.Update)
	api.DELETE("/items/:id", itemHandler.Delete)

	boardGroup := api.Group("/board")
	boardGroup.GET("/requests", boardHandler.List)
	boardGroup.POST("/requests", boardHandler.Create)
	boardGroup.DELETE("/requests/:id", boardHandler.Delete)
	boardGroup.POST("/requests/:id/like", boardHandler.ToggleLike)
	boardGroup.GET("/requests/:id/replies", boardHandler.Replies)
	boardGroup.POST("/requests/:id/replies", boardHandler.CreateReply)
	boardGroup.DELETE("/requests/:id/replies/:replyId", boardHandler.DeleteReply)

	offers := api.Group("/api/offers")
	offers.POST("/create", offerHandler.Create)
	offers.GET("/received", offerHandler.Received)
	offers.GET("/sent", offerHandler.Sent)
	offers.PUT("/:id/status", offerHandler.UpdateStatus)
	offers.POST("/message/send", offerHandler.SendMessage)
	offers.GET("/conversations", offerHandler.Conversations)
	offers.GET("/messages/:userId", offerHandler.Thread)
	offers.GET("/unread-count", offerHandler.UnreadCount)

	friends := api.Group("/api/friends")
	friends.POST("/request/send", friendHandler.Send)
	friends.GET("/requests", friendHandler.Pending)
	friends.PUT("/request/:id/accept", friendHandler.Accept)
	friends.PUT("/request/:id/reject", friendHandler.Reject)
	friends.GET("/list", friendHandler.List)
	friends.DELETE("/remove/:friendshipId", friendHandler.Remove)
	friends.GET("/status/:userId", friendHandler.Status)

	notifications := api.Group("/api/notifications")
	notifications.GET("", notifHandler.List)
	notifications.PUT("/mark-read", notifHandler.MarkAllRead)
	notifications.PUT("/:id/read", notifHandler.MarkRead)

	referrals := api.Group("/api/referral")
	referrals.GET("/stats", referralHandler.Stats)
	referrals.GET("/leaderboard", referralHandler.Leaderboard)

	e.Server.ReadTimeout = cfg.Server.RequestTimeout
	e.Server.WriteTimeout = cfg.Server.RequestTimeout
	if err := e.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
