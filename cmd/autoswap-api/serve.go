package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/rajivgeraev/autoswap-api/internal/app"
	"github.com/rajivgeraev/autoswap-api/internal/config"
	"github.com/rajivgeraev/autoswap-api/internal/db"
	"github.com/rajivgeraev/autoswap-api/internal/metrics"
	"github.com/rajivgeraev/autoswap-api/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Загружаем конфигурацию
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if driver, _ := cmd.Flags().GetString("store"); driver != "" {
			cfg.StoreDriver = driver
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		st, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		server, err := app.New(cfg, app.Deps{Store: st, Metrics: metrics.New()})
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() {
			log.Printf("✅ AutoSwap API запущен на порту %s (хранилище: %s)", cfg.Port, cfg.StoreDriver)
			errCh <- server.Listen(":" + cfg.Port)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Println("Остановка сервера...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.ShutdownWithContext(shutdownCtx)
	},
}

// openStore открывает хранилище выбранного драйвера
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Println("⚠️ Используется хранилище в памяти, данные не сохраняются")
		return store.NewMemory(), func() {}, nil
	case config.StoreDriverPostgres:
		// Инициализируем базу данных
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("❌ Ошибка при инициализации базы данных: %w", err)
		}
		pgStore := db.NewStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			pgStore.Close()
			return nil, nil, err
		}
		return pgStore, pgStore.Close, nil
	default:
		return nil, nil, fmt.Errorf("неизвестный драйвер хранилища: %q", cfg.StoreDriver)
	}
}

func init() {
	serveCmd.Flags().String("store", "", "драйвер хранилища (postgres или memory), переопределяет STORE_DRIVER")
	rootCmd.AddCommand(serveCmd)
}
