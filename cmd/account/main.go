package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthttp "github.com/akentev/account-service/internal/account/http"
	"github.com/akentev/account-service/internal/account/repository"
	"github.com/akentev/account-service/internal/account/service"
	"github.com/akentev/account-service/internal/common/clock"
	"github.com/akentev/account-service/internal/common/config"
	commoncrypto "github.com/akentev/account-service/internal/common/crypto"
	"github.com/akentev/account-service/internal/common/db"
	commonhttp "github.com/akentev/account-service/internal/common/http"
	"github.com/akentev/account-service/internal/common/logger"
	srv "github.com/akentev/account-service/internal/common/server"
	"github.com/akentev/account-service/internal/common/token"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("LOG_DIR"), "account", os.Getenv("LOG_LEVEL"))
	if err != nil {
		os.Stderr.WriteString(fmt.Sprintf("failed to initialize logger: %v\n", err))
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var store repository.Store
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pool := db.NewPool(log, cfg.DatabaseURL)
		defer pool.Close()
		store = repository.NewPgStore(pool)
	default:
		store = repository.NewMemoryStore()
	}

	hasher := &commoncrypto.BcryptHasher{}
	idGenerator := commoncrypto.NewUUIDGenerator()
	tokens := token.NewService(cfg.JWTSecret, cfg.TokenTTL)
	clk := clock.NewRealClock()

	userService := service.NewUserService(store, hasher, idGenerator, tokens, clk, log)
	sessionService := service.NewSessionService(store, hasher, tokens, log)
	authChain := accounthttp.NewAuthChain(tokens, store, log)

	handler := accounthttp.NewHandler(userService, sessionService, authChain, cfg.RequestTimeout, log)

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.Handler())

	baseHandler := commonhttp.BuildBaseHandler("account", log, mux)

	serverConfig := srv.DefaultServerConfig(cfg.HTTPPort)
	server := srv.NewServer(serverConfig, baseHandler)

	srv.StartWithGracefulShutdown(server, log, "account")
}
