package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/upahan/upahan-api/internal/config"
	"github.com/upahan/upahan-api/internal/database"
	"github.com/upahan/upahan-api/internal/middleware"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/services"
	"github.com/upahan/upahan-api/internal/storage"
	"github.com/upahan/upahan-api/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "upahanctl",
		Short: "Upahan maintenance tool",
	}

	rootCmd.AddCommand(
		migrateCmd(),
		sweepCmd(),
		tokenCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Setup(cfg.Environment)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Println("Schema is up to date.")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark bills past their due date as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			store, err := storage.NewLocalStorage(cfg.StoragePath)
			if err != nil {
				return err
			}

			// no worker: notifications are written before the command exits
			svcs := services.NewServices(repository.NewRepositories(db), nil, store, cfg, db)
			result, err := svcs.Bill.MarkOverdue(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		userID      uint
		workspaceID uint
		role        string
		ttl         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch role {
			case models.RoleLandlord, models.RoleTenant, models.RoleSuperadmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			if userID == 0 {
				return fmt.Errorf("--user is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			now := time.Now()
			token, err := middleware.SignToken(middleware.Claims{
				UserID:      userID,
				Role:        role,
				WorkspaceID: workspaceID,
				RegisteredClaims: jwt.RegisteredClaims{
					IssuedAt:  jwt.NewNumericDate(now),
					ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				},
			}, cfg.JWTSecret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().UintVar(&userID, "user", 0, "user id")
	cmd.Flags().UintVar(&workspaceID, "workspace", 0, "workspace id")
	cmd.Flags().StringVar(&role, "role", models.RoleLandlord, "landlord, tenant or superadmin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
