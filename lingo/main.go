package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lingo/lingo/config"
	"lingo/lingo/controllers"
	"lingo/lingo/middlewares"
	"lingo/lingo/routes"
	"lingo/lingo/services/hub"
	"lingo/lingo/services/llm"
	"lingo/lingo/services/translate"
	"lingo/lingo/sources/psql"
	"lingo/lingo/sources/psql/dao"
	"lingo/lingo/sources/storage"
	"lingo/lingo/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	defer logging.Sync()
	cfg := config.LoadConfig()
	tc := config.LoadTranslatorConfig(cfg.TranslatorProperties, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	userDAO := dao.NewUserDAO(db.DB)
	messageDAO := dao.NewTranslateMessageDAO(db.DB)

	provider, err := llm.NewProvider(cfg, tc)
	if err != nil {
		logging.ErrorLogger.Error("llm provider error", zap.Error(err))
		os.Exit(1)
	}

	verifier := middlewares.NewJWTVerifier(cfg.JWTSecret, userDAO)
	registry := hub.NewRegistry(verifier, cfg.DefaultRoom)
	presence := hub.NewPresence(registry)

	var opts []translate.Option
	if cfg.MinIOEndpoint != "" {
		minioClient, err := storage.NewMinIOClient(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("minio connection error", zap.Error(err))
			os.Exit(1)
		}
		opts = append(opts, translate.WithArchiver(minioClient))
	}
	translator := translate.NewTranslator(provider, messageDAO, registry, tc.SystemPrompt, opts...)

	chatCtrl := controllers.NewChatController(registry, messageDAO, translator)
	authCtrl := controllers.NewAuthController(userDAO, cfg.JWTSecret)
	userCtrl := controllers.NewUserController(userDAO, messageDAO)
	healthCtrl := controllers.NewHealthController(registry)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Mount("/health", routes.HealthRoutes(healthCtrl))
	r.Mount("/auth", routes.AuthRoutes(authCtrl))
	r.Mount("/api", routes.UserRoutes(userCtrl, verifier, cfg.DefaultRoom))
	// no request timeout on the websocket: sessions are long lived
	r.Mount("/ws", routes.WSRoutes(routes.NewGateway(registry, presence, chatCtrl)))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	// let in-flight translations reach the store before the db closes
	drained := make(chan struct{})
	go func() {
		translator.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(30 * time.Second):
		logging.ErrorLogger.Error("translations still streaming at shutdown")
	}
	logging.AppLogger.Info("server shutdown complete")
}
