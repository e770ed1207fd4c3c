package main

import (
	"context"
	"fmt"
	"log"
	"os"

	api "broadrange-backend/cmd/api"
	authRepo "broadrange-backend/internal/auth/repository"
	authUsecase "broadrange-backend/internal/auth/usecase"
	planRepo "broadrange-backend/internal/plan/repository"
	"broadrange-backend/internal/plan/scheduler"
	searchUsecase "broadrange-backend/internal/search/usecase"
	"broadrange-backend/pkg/config"
	"broadrange-backend/pkg/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "broadrange",
	Short: "Study planner API",
	Long:  "Generates day-by-day study schedules with AI, tracks progress and re-plans missed days.",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := connect(config.Load()); err != nil {
			return err
		}
		fmt.Println("Database schema is up to date")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Send missed-day notices once and exit",
	RunE:  runSweep,
}

var reindexUser string

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Push a user's tasks to the semantic search index",
	RunE:  runReindex,
}

func init() {
	reindexCmd.Flags().StringVar(&reindexUser, "user", "", "user id to reindex (required)")
	_ = reindexCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, reindexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect opens the database and migrates every schema.
func connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := authRepo.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate auth schema: %w", err)
	}
	if err := planRepo.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate plan schema: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	db, err := connect(cfg)
	if err != nil {
		return err
	}

	handler := api.NewHandler(db, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	return handler.Start(":" + cfg.Port)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	db, err := connect(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	users := authRepo.NewUserRepository(db)
	notifier, closeNotifier := api.NewNotifier(ctx, cfg, users, authRepo.NewDeviceTokenRepository(db), api.NotifierOptions{Inline: true})
	defer closeNotifier()

	sweeper := scheduler.NewMissedDaySweeper(planRepo.NewGormPlanRepository(db), notifier, cfg.SweepInterval)
	sweeper.SetLocator(authUsecase.NewTimezoneLocator(users))
	sent := sweeper.RunOnce(ctx)
	fmt.Printf("Sent %d missed-day notices\n", sent)
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	db, err := connect(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	index := api.NewVectorIndex(ctx, cfg)
	if index == nil {
		return searchUsecase.ErrSemanticUnavailable
	}

	n, err := searchUsecase.NewSearchUsecase(planRepo.NewGormPlanRepository(db), index).Reindex(ctx, reindexUser)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d tasks for user %s\n", n, reindexUser)
	return nil
}
