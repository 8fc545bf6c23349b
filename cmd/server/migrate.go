package main

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/groupchat-server/internal/store/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <command> [args]",
	Short: "Run SQLite database migrations (up, down, status, version, ...)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("empty args: needed at least one goose command")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := sql.Open("sqlite3", sqlite.DSN(cfg.DatabasePath))
		if err != nil {
			return fmt.Errorf("goose: failed to open DB: %w", err)
		}
		defer db.Close()

		goose.SetBaseFS(sqlite.Migrations)
		if err := goose.SetDialect("sqlite3"); err != nil {
			return fmt.Errorf("goose: set dialect: %w", err)
		}

		if err := goose.RunContext(cmd.Context(), args[0], db, sqlite.MigrationsDir, args[1:]...); err != nil {
			return fmt.Errorf("goose %s: %w", args[0], err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
