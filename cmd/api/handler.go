package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	analyticsDelivery "broadrange-backend/internal/analytics/delivery"
	analyticsUsecase "broadrange-backend/internal/analytics/usecase"
	authRepo "broadrange-backend/internal/auth/repository"
	authUsecase "broadrange-backend/internal/auth/usecase"
	planDelivery "broadrange-backend/internal/plan/delivery"
	planRepo "broadrange-backend/internal/plan/repository"
	"broadrange-backend/internal/plan/scheduler"
	planUsecase "broadrange-backend/internal/plan/usecase"
	searchDelivery "broadrange-backend/internal/search/delivery"
	searchUsecase "broadrange-backend/internal/search/usecase"
	"broadrange-backend/pkg/ai"
	"broadrange-backend/pkg/chroma"
	"broadrange-backend/pkg/config"
	"broadrange-backend/pkg/sse"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	routes           Routes
	sseManager       *sse.Manager
	reflectionWorker *planUsecase.ReflectionWorker
	sweeper          *scheduler.MissedDaySweeper
	closeNotifier    func()
	cancel           context.CancelFunc
}

// NewAIGenerator builds the plan generator, reading Ollama settings from
// settings on every call. It returns nil when no provider can be initialized.
func NewAIGenerator(ctx context.Context, cfg *config.Config, settings *RuntimeSettings) ai.PlanGenerator {
	generator, err := ai.NewPlanGeneratorWithDynamicConfig(ctx, ai.DynamicConfig{
		Provider:         ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:     cfg.GeminiApiKey,
		GeminiModel:      cfg.GeminiModel,
		GetOllamaBaseURL: settings.OllamaBaseURL,
		GetOllamaModel:   settings.OllamaModel,
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize AI service: %v", err)
		return nil
	}
	log.Printf("AI service initialized with provider: %s (dynamic config enabled)", cfg.AIProvider)
	return generator
}

// NewVectorIndex connects to Chroma. It returns nil when Chroma is not
// configured or unreachable, which disables semantic search.
func NewVectorIndex(ctx context.Context, cfg *config.Config) searchUsecase.VectorIndex {
	if cfg.ChromaAPIKey == "" {
		log.Println("Warning: CHROMA_API_KEY not set. Semantic search will not be available.")
		return nil
	}
	client, err := chroma.NewChromaClient(ctx, cfg)
	if err != nil {
		log.Printf("Warning: Failed to initialize Chroma client: %v. Semantic search will not be available.", err)
		return nil
	}
	log.Println("Chroma client initialized successfully")
	return client
}

func NewHandler(db *gorm.DB, cfg *config.Config) *Handler {
	ctx, cancel := context.WithCancel(context.Background())

	// Repositories
	userRepository := authRepo.NewUserRepository(db)
	deviceRepository := authRepo.NewDeviceTokenRepository(db)
	planRepository := planRepo.NewGormPlanRepository(db)
	taskRepository := planRepo.NewGormTaskRepository(db)

	sseManager := sse.NewManager()
	go sseManager.Run()

	notifier, closeNotifier := NewNotifier(ctx, cfg, userRepository, deviceRepository, NotifierOptions{
		Consume: true,
		Sink:    sseManager,
	})

	settings := NewRuntimeSettings(cfg.AIProvider, cfg.OllamaBaseURL, cfg.OllamaModel)
	generator := NewAIGenerator(ctx, cfg, settings)

	// Use cases
	authUc := authUsecase.NewAuthUsecase(userRepository, deviceRepository, cfg)
	planUc := planUsecase.NewPlanUsecase(planRepository, taskRepository, generator, notifier)
	locator := authUsecase.NewTimezoneLocator(userRepository)
	planUc.SetLocator(locator)
	searchUc := searchUsecase.NewSearchUsecase(planRepository, NewVectorIndex(ctx, cfg))
	planUc.SetIndexer(searchUc)
	analyticsUc := analyticsUsecase.NewAnalyticsUsecase(planRepository)

	// Background workers
	reflectionWorker := planUsecase.NewReflectionWorker(planRepository, generator, sseManager, cfg.ReflectionWorkers)
	reflectionWorker.Start()
	planUc.SetReflectionWorker(reflectionWorker)
	log.Println("Reflection worker started")

	sweeper := scheduler.NewMissedDaySweeper(planRepository, notifier, cfg.SweepInterval)
	sweeper.SetLocator(locator)
	sweeper.Start()

	return &Handler{
		routes: Routes{
			AuthUsecase: authUc,
			SSEManager:  sseManager,
			Plans:       planDelivery.NewPlanHandler(planUc),
			Analytics:   analyticsDelivery.NewAnalyticsHandler(analyticsUc),
			Search:      searchDelivery.NewSearchHandler(searchUc),
			Settings:    settings,
		},
		sseManager:       sseManager,
		reflectionWorker: reflectionWorker,
		sweeper:          sweeper,
		closeNotifier:    closeNotifier,
		cancel:           cancel,
	}
}

// Router builds the gin engine with CORS and every route.
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.routes)
	return r
}

// Start serves until SIGINT or SIGTERM, then drains requests and stops the
// background workers.
func (h *Handler) Start(addr string) error {
	defer h.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Println("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (h *Handler) Close() {
	h.sweeper.Stop()
	h.reflectionWorker.Stop()
	h.closeNotifier()
	h.cancel()
	h.sseManager.Stop()
}
