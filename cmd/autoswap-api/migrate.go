package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/rajivgeraev/autoswap-api/internal/config"
	"github.com/rajivgeraev/autoswap-api/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции PostgreSQL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		pgStore := db.NewStore(pool)
		defer pgStore.Close()

		if err := pgStore.Migrate(ctx); err != nil {
			log.Printf("❌ Ошибка миграции: %v", err)
			return err
		}

		log.Println("✅ Миграции применены")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
