package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"forex-entry-bot/config"
	"forex-entry-bot/internal/auth"
	"forex-entry-bot/internal/database"
	"forex-entry-bot/internal/strategy"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server exposes the entry engine over HTTP: candle structure, fib
// levels, ranked zones, evaluation decisions, and a websocket feed of
// completed cycles.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	evaluator  *strategy.Evaluator
	repo       *database.Repository
	jwtManager *auth.JWTManager
	hub        *WSHub
	cfg        config.Config
}

// NewServer wires the HTTP API. repo may be nil when the database is
// disabled; auth routes are mounted only when auth is enabled.
func NewServer(cfg config.Config, evaluator *strategy.Evaluator, repo *database.Repository) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.ServerConfig.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.ServerConfig.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:    router,
		evaluator: evaluator,
		repo:      repo,
		hub:       NewWSHub(),
		cfg:       cfg,
	}
	if cfg.AuthConfig.Enabled {
		s.jwtManager = auth.NewJWTManager(
			cfg.AuthConfig.JWTSecret,
			time.Duration(cfg.AuthConfig.TokenTTLMins)*time.Minute,
		)
	}

	s.setupRoutes()
	go s.hub.Run()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	if s.jwtManager != nil {
		s.router.POST("/api/v1/auth/login", s.handleLogin)
	}

	v1 := s.router.Group("/api/v1")
	if s.jwtManager != nil {
		v1.Use(auth.Middleware(s.jwtManager))
	}

	v1.GET("/candle", s.handleCandle)
	v1.GET("/fibonacci", s.handleFibonacci)
	v1.GET("/zones", s.handleZones)
	v1.GET("/entry", s.handleEntry)
	v1.POST("/evaluate", s.handleEvaluate)
	v1.GET("/decisions", s.handleDecisions)
	v1.GET("/ws", s.handleWebSocket)
}

// Hub returns the websocket hub so the scheduler can publish decisions.
func (s *Server) Hub() *WSHub { return s.hub }

// Start begins serving on the configured host and port.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.ServerConfig.Host, s.cfg.ServerConfig.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.ServerConfig.WriteTimeout) * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
