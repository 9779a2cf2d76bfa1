package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	kafkalib "github.com/s21platform/kafka-lib"
	logger_lib "github.com/s21platform/logger-lib"
	"github.com/s21platform/metrics-lib/pkg"

	"github.com/festivo/messaging-service/internal/cache"
	cachesqlite "github.com/festivo/messaging-service/internal/cache/sqlite"
	"github.com/festivo/messaging-service/internal/client/centrifugo"
	"github.com/festivo/messaging-service/internal/client/user"
	"github.com/festivo/messaging-service/internal/config"
	messagebus "github.com/festivo/messaging-service/internal/databus/message"
	"github.com/festivo/messaging-service/internal/gateway"
	"github.com/festivo/messaging-service/internal/infra"
	"github.com/festivo/messaging-service/internal/model"
	"github.com/festivo/messaging-service/internal/pkg/jwt"
	"github.com/festivo/messaging-service/internal/pkg/validator"
	"github.com/festivo/messaging-service/internal/realtime"
	db "github.com/festivo/messaging-service/internal/repository/postgres"
	"github.com/festivo/messaging-service/internal/rest"
	"github.com/festivo/messaging-service/internal/service/conversation"
	"github.com/festivo/messaging-service/internal/session"
)

const (
	messageConsumerGroupID = "messaging-realtime-fanout"
	cachePruneInterval     = time.Hour
)

// feedAdapter narrows the hub to the session's Feed contract.
type feedAdapter struct {
	hub *realtime.Hub
}

func (f feedAdapter) Subscribe(userID string, fn func(model.Message)) session.Subscription {
	return f.hub.Subscribe(userID, fn)
}

func main() {
	cfg := config.MustLoad()
	logger := logger_lib.New(cfg.Logger.Host, cfg.Logger.Port, cfg.Service.Name, cfg.Platform.Env)

	dbRepo := db.New(cfg)
	defer dbRepo.Close()

	cacheStore, err := cachesqlite.New(cfg.Cache.Path)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to open cache store: %v", err))
		return
	}
	defer cacheStore.Close()
	sharedCache := cache.New(cacheStore, cfg.Cache.TTL)

	go func() {
		ticker := time.NewTicker(cachePruneInterval)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-cfg.Cache.Retention).Unix()
			if _, err := cacheStore.Prune(context.Background(), cutoff); err != nil {
				logger.Error(fmt.Sprintf("failed to prune cache: %v", err))
			}
		}
	}()

	userClient := user.New(cfg)
	defer userClient.Close()

	pushClient := centrifugo.New(cfg)
	defer pushClient.Close()

	vldtr := validator.New()
	jwtGenerator := jwt.New(cfg.Centrifuge.JWTSecret)

	conversationService := conversation.New(dbRepo, sharedCache)
	hub := realtime.NewHub()

	metrics, err := pkg.NewMetrics(cfg.Metrics.Host, cfg.Metrics.Port, cfg.Service.Name, cfg.Platform.Env)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to connect graphite: %v", err))
	}

	consumerCtx := context.WithValue(context.Background(), config.KeyMetrics, metrics)
	consumerCtx = context.WithValue(consumerCtx, config.KeyLogger, logger)

	consumerConfig := kafkalib.DefaultConsumerConfig(
		cfg.Kafka.Host,
		cfg.Kafka.Port,
		cfg.Kafka.MessageTopic,
		messageConsumerGroupID,
	)
	consumer, err := kafkalib.NewConsumer(consumerConfig, metrics)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to create consumer: %v", err))
	} else {
		messageHandler := messagebus.New(hub)
		consumer.RegisterHandler(consumerCtx, func(ctx context.Context, in []byte) error {
			messageHandler.Handler(ctx, in)
			return nil
		})
	}

	feed := feedAdapter{hub: hub}
	gatewayHandler := gateway.New(userClient, func(info model.UserInfo) *session.Session {
		return session.New(info, dbRepo, conversationService, sharedCache, feed)
	})

	handler := rest.New(dbRepo, conversationService, userClient, pushClient, vldtr, jwtGenerator)
	router := chi.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return infra.LoggerHTTP(next, logger)
	})
	router.Use(infra.AuthHTTP(cfg.Auth.JWTSecret))

	handler.AttachRoutes(router)
	router.Get("/api/messaging/ws", gatewayHandler.Serve)

	httpServer := &http.Server{
		Handler: router,
	}

	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, health.NewServer())

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Service.Port))
	if err != nil {
		logger.Error(fmt.Sprintf("failed to start TCP listener: %v", err))
	}

	m := cmux.New(listener)

	grpcListener := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpListener := m.Match(cmux.HTTP1Fast())

	g, _ := errgroup.WithContext(context.Background())

	g.Go(func() error {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server error: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := m.Serve(); err != nil {
			return fmt.Errorf("cannot start service: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("server error: %v", err))
	}
}
