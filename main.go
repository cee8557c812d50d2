package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"channel-service/internal/auth"
	"channel-service/internal/config"
	"channel-service/internal/db"
	"channel-service/internal/handlers"
	"channel-service/internal/mentions"
	"channel-service/internal/middleware"
	"channel-service/internal/observability"
	"channel-service/internal/rabbitmq"
	"channel-service/internal/repositories"
	"channel-service/internal/telemetry"
	"channel-service/internal/threads"
	"channel-service/internal/ws"
)

const serviceName = "channel-service"

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	shutdownTracing, err := observability.SetupTracing(context.Background(), serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	if mode := rabbitmq.PublisherMode(publisher); mode == "noop" {
		log.Printf("event publisher mode=%s reason=%q", mode, rabbitmq.PublisherNoopReason(publisher))
	} else {
		log.Printf("event publisher mode=%s", mode)
	}

	audit := telemetry.NewAuditEmitter(publisher, "audit.channels", serviceName, cfg.Environment)

	channelRepo := repositories.NewChannelRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)

	replies := buildReplyCounter(cfg)
	if err := threads.Rebuild(context.Background(), messageRepo, replies); err != nil {
		log.Fatalf("failed to rebuild reply counts: %v", err)
	}

	resolver := mentions.NewResolver(userRepo)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	hub := ws.NewHub()
	dispatcher := ws.NewDispatcher(hub, replies)

	channelHandler := handlers.NewChannelHandler(channelRepo, messageRepo, userRepo, replies, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, userRepo, resolver, replies, dispatcher, audit)
	wsHandler := ws.NewWebSocketHandler(hub, channelRepo, verifier)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/channels", authMiddleware, channelHandler.ListChannels)
	router.POST("/channels", authMiddleware, channelHandler.CreateChannel)
	router.GET("/channels/:channel_id/messages", authMiddleware, channelHandler.ListChannelMessages)
	router.POST("/channels/:channel_id/messages", authMiddleware, messageHandler.PostMessage)
	router.GET("/messages/:message_id/thread", authMiddleware, messageHandler.GetThread)
	router.POST("/messages/:message_id/reactions", authMiddleware, messageHandler.ToggleReaction)
	router.PATCH("/messages/:message_id", authMiddleware, messageHandler.EditMessage)
	router.DELETE("/messages/:message_id", authMiddleware, messageHandler.DeleteMessage)

	router.GET("/ws", wsHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.Debug)

	log.Printf("listening on :%s environment=%s", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// buildReplyCounter prefers the shared Redis counter and falls back to the
// in-process one when Redis is not configured or unreachable.
func buildReplyCounter(cfg config.Config) threads.ReplyCounter {
	if cfg.RedisAddr == "" {
		log.Printf("reply counts: using in-memory counter")
		return threads.NewMemoryCounter()
	}

	client, err := threads.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("reply counts: redis unavailable, using in-memory counter: %v", err)
		return threads.NewMemoryCounter()
	}
	log.Printf("reply counts: using redis addr=%s", cfg.RedisAddr)
	return threads.NewRedisCounter(client)
}
