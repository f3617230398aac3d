package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"ticketapi/internal/config"
	"ticketapi/internal/database"
	"ticketapi/internal/handlers"
	"ticketapi/internal/messaging"
	"ticketapi/internal/middleware"
	"ticketapi/internal/repository"
	"ticketapi/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server представляет HTTP сервер API
type Server struct {
	router    *gin.Engine
	config    *config.Config
	ds        *database.DataSource
	publisher messaging.Publisher
	services  *service.Services
}

// NewServer connects the datasource and the publisher and wires the router.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	ds, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	publisher, err := messaging.NewPublisher(cfg.NATS)
	if err != nil {
		ds.Close(ctx)
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	repos, err := repository.NewRepositories(ds)
	if err != nil {
		ds.Close(ctx)
		publisher.Close()
		return nil, err
	}

	return NewServerWith(cfg, ds, publisher, service.NewServices(repos, publisher)), nil
}

// NewServerWith wires the router around already constructed dependencies.
func NewServerWith(cfg *config.Config, ds *database.DataSource, publisher messaging.Publisher, services *service.Services) *Server {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:    router,
		config:    cfg,
		ds:        ds,
		publisher: publisher,
		services:  services,
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	tickets := s.router.Group("/tickets")
	{
		tickets.POST("", h.CreateTicket)
		tickets.GET("/count", h.CountTickets)
		tickets.GET("", h.ListTickets)
		tickets.PATCH("", h.UpdateAllTickets)
		tickets.GET("/:id", h.GetTicket)
		tickets.PATCH("/:id", h.UpdateTicket)
		tickets.PUT("/:id", h.ReplaceTicket)
		tickets.DELETE("/:id", h.DeleteTicket)
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":  "ok",
		"service": "ticket-api",
		"version": "1.0.0",
	}

	if s.ds != nil {
		check := s.ds.HealthCheck(c.Request.Context())
		body["database"] = check
		if check.Status != "healthy" {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}

	c.JSON(status, body)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup(ctx context.Context) error {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.ds != nil {
		if err := s.ds.Close(ctx); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
