package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"banko/internal/auth"
	"banko/internal/config"
	"banko/internal/notifier"
	"banko/internal/service"
)

// Services bundles everything the router wires handlers to.
type Services struct {
	Auth     *auth.Service
	Registry *service.RegistryService
	Ledger   *service.LedgerService
	Loans    *service.LoanService
	Requests *service.RequestService
	Dice     *service.DiceService
	Activity *service.ActivityService
	Hub      *notifier.Hub
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(cfg *config.ServerConfig, svc Services) *gin.Engine {
	authHandler := NewAuthHandler(svc.Auth)
	roomHandler := NewRoomHandler(svc.Registry)
	ledgerHandler := NewLedgerHandler(svc.Registry, svc.Ledger, svc.Activity)
	loanHandler := NewLoanHandler(svc.Registry, svc.Loans)
	requestHandler := NewRequestHandler(svc.Registry, svc.Requests)
	activityHandler := NewActivityHandler(svc.Registry, svc.Dice, svc.Activity)
	wsHandler := NewWSHandler(svc.Registry, svc.Hub)

	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	if allowAll(cfg.AllowedOrigins) {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, MessageResponse{Message: "ok"})
	})

	r.GET("/ws/rooms/:code", Auth(svc.Auth), wsHandler.HandleWebSocket)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/guest", authHandler.Guest)

		rooms := api.Group("/rooms")
		rooms.Use(Auth(svc.Auth))
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("/:code", roomHandler.GetRoom)
			rooms.POST("/:code/join", roomHandler.JoinRoom)
			rooms.POST("/:code/start", roomHandler.StartGame)
			rooms.POST("/:code/finish", roomHandler.FinishGame)
			rooms.GET("/:code/me", roomHandler.MySeat)
			rooms.GET("/:code/players", roomHandler.ListPlayers)
			rooms.GET("/:code/players/:player_id", roomHandler.GetPlayer)
			rooms.PUT("/:code/players/:player_id/status", roomHandler.UpdatePlayerStatus)

			rooms.POST("/:code/transactions", ledgerHandler.CreateTransaction)
			rooms.GET("/:code/transactions", ledgerHandler.ListTransactions)
			rooms.POST("/:code/transactions/:transaction_id/reverse", ledgerHandler.ReverseTransaction)
			rooms.POST("/:code/salary", ledgerHandler.PaySalary)

			rooms.POST("/:code/loans", loanHandler.CreateLoan)
			rooms.GET("/:code/loans", loanHandler.ListActiveLoans)
			rooms.POST("/:code/loans/:loan_id/repay", loanHandler.RepayLoan)

			rooms.POST("/:code/requests", requestHandler.CreatePaymentRequest)
			rooms.GET("/:code/requests", requestHandler.ListPendingRequests)
			rooms.GET("/:code/requests/:request_id", requestHandler.GetPaymentRequest)
			rooms.POST("/:code/requests/:request_id/respond", requestHandler.RespondToPaymentRequest)

			rooms.POST("/:code/dice", activityHandler.RollDice)
			rooms.GET("/:code/events", activityHandler.ListEvents)
			rooms.GET("/:code/feed", activityHandler.Feed)
		}
	}

	return r
}

func allowAll(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
