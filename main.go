package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	httpadapter "github.com/satriahrh/client-talk/adapters/http"
	"github.com/satriahrh/client-talk/adapters/hasher"
	"github.com/satriahrh/client-talk/adapters/llm"
	"github.com/satriahrh/client-talk/adapters/message_broker"
	"github.com/satriahrh/client-talk/adapters/speech"
	"github.com/satriahrh/client-talk/adapters/store"
	"github.com/satriahrh/client-talk/adapters/tts"
	"github.com/satriahrh/client-talk/adapters/websocket"
	"github.com/satriahrh/client-talk/config"
	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/usecase"
	"github.com/satriahrh/client-talk/utils/log"
)

func main() {
	gotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.With(zap.Error(err)).Fatal("Failed to load configuration")
	}
	log.Configure(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	geminiLlm, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey,
		llm.WithModel(cfg.GeminiModel),
		llm.WithStructuredOutput(cfg.StructuredOutput),
	)
	if err != nil {
		log.With(zap.Error(err)).Fatal("Failed to create Gemini client")
	}

	broker, err := newBroker(ctx, cfg)
	if err != nil {
		log.With(zap.Error(err)).Fatal("Failed to create message broker")
	}
	defer broker.Close()

	svc := usecase.NewSessionService(usecase.NewGateway(geminiLlm), usecase.WithBroker(broker))
	tokens := httpadapter.NewWatchTokens(cfg.JWTSecret, cfg.WatchTokenTTL)

	var handlerOpts []httpadapter.HandlerOption
	if cfg.ArchiveEnabled {
		repo, err := newRepository(ctx, cfg)
		if err != nil {
			log.With(zap.Error(err)).Fatal("Failed to open archive")
		}
		defer repo.Close()

		go func() {
			if err := store.NewRecorder(repo, broker).Run(ctx); err != nil {
				log.With(zap.Error(err)).Error("Archive recorder failed")
			}
		}()
		store.StartIdleSweeper(ctx, repo, broker, cfg.SessionIdleTTL, cfg.SweepInterval)
		handlerOpts = append(handlerOpts, httpadapter.WithArchive(repo))
	}

	sessionHandler, err := httpadapter.NewSessionHandler(svc, tokens, hasher.New(), handlerOpts...)
	if err != nil {
		log.With(zap.Error(err)).Fatal("Failed to create session handler")
	}

	var (
		synthesizer domain.Synthesizer
		transcriber domain.Transcriber
	)
	if cfg.TTSEnabled {
		googleTTS, err := tts.NewGoogleTTS(ctx, cfg.LanguageCode, cfg.TTSVoice)
		if err != nil {
			log.With(zap.Error(err)).Fatal("Failed to create text-to-speech client")
		}
		defer googleTTS.Close()
		synthesizer = googleTTS
	}
	if cfg.STTEnabled {
		googleSpeech, err := speech.NewGoogleSpeech(ctx, cfg.LanguageCode)
		if err != nil {
			log.With(zap.Error(err)).Fatal("Failed to create speech client")
		}
		defer googleSpeech.Close()
		transcriber = googleSpeech
	}

	wsServer := websocket.NewServer(broker, tokens)
	go func() {
		if err := wsServer.Run(ctx); err != nil {
			log.With(zap.Error(err)).Error("WebSocket server failed")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpadapter.ErrorHandler

	e.Use(middleware.RequestID())
	e.Use(httpadapter.RequestContext)
	e.Use(httpadapter.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"If-None-Match",
		},
		ExposeHeaders: []string{"ETag"},
		MaxAge:        86400,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	sessionHandler.Register(e)
	httpadapter.NewVoiceHandler(synthesizer, transcriber).Register(e)
	e.GET("/ws", wsServer.Handler)

	go func() {
		log.With(zap.String("addr", cfg.Addr())).Info("Starting server")
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.With(zap.Error(err)).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.With(zap.Error(ctx.Err())).Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.With(zap.Error(err)).Error("Graceful shutdown failed")
	}
}

func newBroker(ctx context.Context, cfg *config.Config) (domain.MessageBroker, error) {
	if cfg.RedisURL != "" {
		log.With(zap.String("broker", "redis")).Info("Using Redis message broker")
		return message_broker.NewRedisMessageBroker(ctx, cfg.RedisURL)
	}
	return message_broker.NewChannelMessageBroker(), nil
}

func newRepository(ctx context.Context, cfg *config.Config) (domain.SessionRepository, error) {
	if cfg.UsesPostgres() {
		return store.NewPostgres(ctx, cfg.DatabaseURL)
	}
	return store.NewSQLite(cfg.DatabaseURL)
}
