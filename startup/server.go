package startup

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/trak2026z/rezerwacjaNoclegowBE2/authorization"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/domain"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/handlers"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/notification"
	application "github.com/trak2026z/rezerwacjaNoclegowBE2/service"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/startup/config"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/store"
	"github.com/trak2026z/rezerwacjaNoclegowBE2/store/memory"
)

const serviceName = "rezerwacje_service"

type Server struct {
	config *config.Config
	logger *logrus.Logger
}

func NewServer(config *config.Config, logger *logrus.Logger) *Server {
	return &Server{
		config: config,
		logger: logger,
	}
}

func (server *Server) Start() {
	ctx := context.Background()

	tp, tracer := server.initTracer()
	defer func() { _ = tp.Shutdown(ctx) }()

	checks := map[string]handlers.HealthCheck{}

	var userStore domain.UserStore
	var roomStore domain.RoomStore
	if server.config.StoreDriver == config.StoreMemory {
		server.logger.Warn("Server.Start : using in-memory stores, data is lost on restart")
		users := memory.NewUserStore()
		userStore, roomStore = users, memory.NewRoomStore(users)
	} else {
		mongoClient := server.initMongoClient(ctx)
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				server.logger.WithError(err).Error("Server.Start : disconnecting from MongoDB")
			}
		}()
		checks["mongo"] = func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}
		userStore = server.initUserStore(ctx, mongoClient, tracer)
		roomStore = server.initRoomStore(mongoClient, tracer)
	}

	var attempts domain.LoginAttemptCache
	if server.config.CacheEnabled() {
		redisClient := server.initRedisClient()
		checks["redis"] = func(context.Context) error {
			return redisClient.Ping().Err()
		}
		attempts = server.initLoginCache(redisClient, tracer)
	}

	var notifier domain.ReservationNotifier
	if server.config.MailEnabled() {
		notifier = server.initNotifier(tracer)
	}

	tokens := server.initTokenService()
	authService := server.initAuthService(userStore, tokens, attempts, tracer)
	roomService := server.initRoomService(roomStore, notifier, tracer)

	authHandler := handlers.NewAuthHandler(authService, tracer, server.logger)
	roomHandler := handlers.NewRoomHandler(roomService, tracer, server.logger)
	healthHandler := handlers.NewHealthHandler(checks, server.logger)

	server.start(tokens, authHandler, roomHandler, healthHandler)
}

func (server *Server) initTracer() (*sdktrace.TracerProvider, trace.Tracer) {
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(newResource())}
	if server.config.JaegerAddress != "" {
		exp, err := newExporter(server.config.JaegerAddress)
		if err != nil {
			server.logger.Fatalf("Server.initTracer : failed to initialize exporter: %v", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp, tp.Tracer(serviceName)
}

func (server *Server) initMongoClient(ctx context.Context) *mongo.Client {
	client, err := store.GetClient(ctx, server.config.MongoURI)
	if err != nil {
		server.logger.Fatalf("Server.initMongoClient : %v", err)
	}
	return client
}

func (server *Server) initRedisClient() *redis.Client {
	client := store.GetRedisClient(server.config.AuthCacheHost, server.config.AuthCachePort)
	if err := client.Ping().Err(); err != nil {
		server.logger.WithError(err).Warn("Server.initRedisClient : redis not reachable yet")
	}
	return client
}

func (server *Server) initUserStore(ctx context.Context, client *mongo.Client, tracer trace.Tracer) domain.UserStore {
	users := store.NewUserMongoDBStore(client, server.config.MongoDatabase, tracer)
	if err := users.EnsureIndexes(ctx); err != nil {
		server.logger.Fatalf("Server.initUserStore : %v", err)
	}
	return users
}

func (server *Server) initRoomStore(client *mongo.Client, tracer trace.Tracer) domain.RoomStore {
	return store.NewRoomMongoDBStore(client, server.config.MongoDatabase, tracer)
}

func (server *Server) initLoginCache(client *redis.Client, tracer trace.Tracer) domain.LoginAttemptCache {
	return store.NewLoginRedisCache(client, tracer)
}

func (server *Server) initNotifier(tracer trace.Tracer) domain.ReservationNotifier {
	return notification.NewSMTPNotifier(server.config.SMTPHost, server.config.SMTPPort,
		server.config.SMTPAuthMail, server.config.SMTPAuthPassword, tracer, server.logger)
}

func (server *Server) initTokenService() *application.TokenService {
	tokens, err := application.NewTokenService(server.config.SecretKey, server.config.TokenTTL)
	if err != nil {
		server.logger.Fatalf("Server.initTokenService : %v", err)
	}
	return tokens
}

func (server *Server) initAuthService(store domain.UserStore, tokens *application.TokenService, attempts domain.LoginAttemptCache, tracer trace.Tracer) *application.AuthService {
	return application.NewAuthService(store, tokens, attempts, tracer, server.logger)
}

func (server *Server) initRoomService(store domain.RoomStore, notifier domain.ReservationNotifier, tracer trace.Tracer) *application.RoomService {
	return application.NewRoomService(store, notifier, tracer, server.logger)
}

func (server *Server) start(tokens *application.TokenService, routes ...Routes) {
	enforcer, err := authorization.NewEnforcer(server.config.RBACModelPath, server.config.RBACPolicyPath)
	if err != nil {
		server.logger.Fatalf("Server.start : casbin: %v", err)
	}

	router := NewRouter(server.logger, enforcer, tokens, routes...)
	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(strings.Split(server.config.CORSOrigin, ",")),
		gorillaHandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", server.config.Port),
		Handler:           cors(router),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	wait := time.Second * 15
	go func() {
		server.logger.Infof("Server.start : listening on port %s (%s)", server.config.Port, server.config.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.logger.Fatalf("Server.start : %v", err)
		}
	}()

	c := make(chan os.Signal, 1)

	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	<-c

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		server.logger.Fatalf("Server.start : error shutting down server %s", err)
	}
	server.logger.Info("Server.start : server gracefully stopped")
}

func newExporter(address string) (*jaeger.Exporter, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(address)))
	if err != nil {
		return nil, err
	}
	return exp, nil
}

func newResource() *resource.Resource {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return resource.Default()
	}
	return r
}
