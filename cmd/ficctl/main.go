// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command ficctl runs administrative tasks against a Sistema FIC database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/danielhkuo/sistema-fic/cliparse"
	"github.com/danielhkuo/sistema-fic/db"
	"github.com/danielhkuo/sistema-fic/export"
	"github.com/danielhkuo/sistema-fic/handlers"
	"github.com/danielhkuo/sistema-fic/models"
)

var version = "dev"

func main() {
	// Same .env the server reads
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// dbFlags holds the connection settings shared by every subcommand
type dbFlags struct {
	url    string
	dbType string
}

func (f *dbFlags) open() (*sql.DB, error) {
	if f.url == "" {
		return nil, errors.New("database URL required (use --db or DATABASE_URL env)")
	}
	dbType := f.dbType
	if dbType == "" {
		dbType = cliparse.InferDatabaseType(f.url)
	}

	conn, err := db.Open(dbType, f.url)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func rootCmd() *cobra.Command {
	flags := &dbFlags{}

	cmd := &cobra.Command{
		Use:   "ficctl",
		Short: "Administer a Sistema FIC database",
		Long: `Administrative tasks that do not go through the HTTP API.

Examples:
  ficctl create-admin --email admin@coop.com
  ficctl import-voters members.csv
  ficctl export --dimension governanca --out governanca.json
  ficctl export --dimension governanca --clear
`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.url, "db", os.Getenv("DATABASE_URL"), "Database URL")
	cmd.PersistentFlags().StringVar(&flags.dbType, "db-type", os.Getenv("DATABASE_TYPE"), "Database type (sqlite or postgres)")

	cmd.AddCommand(createAdminCmd(flags))
	cmd.AddCommand(importVotersCmd(flags))
	cmd.AddCommand(exportCmd(flags))
	cmd.AddCommand(versionCmd())

	return cmd
}

func createAdminCmd(flags *dbFlags) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}

			conn, err := flags.open()
			if err != nil {
				return err
			}
			defer conn.Close()

			id, err := handlers.CreateAdmin(cmd.Context(), conn, email, password)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", email, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prefer ADMIN_PASSWORD env)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func importVotersCmd(flags *dbFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import-voters FILE",
		Short: "Register voters from a name,email CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			voters, skipped, err := export.ParseVoters(f)
			if err != nil {
				return err
			}

			conn, err := flags.open()
			if err != nil {
				return err
			}
			defer conn.Close()

			imported, err := handlers.ImportVoters(cmd.Context(), conn, voters)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d voters, skipped %d rows\n", imported, skipped)
			return nil
		},
	}
}

func exportCmd(flags *dbFlags) *cobra.Command {
	var (
		dimension string
		out       string
		clearData bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a dimension as JSON, optionally clearing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := flags.open()
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx := cmd.Context()
			var payload *models.BackupPayload
			if clearData {
				res, err := handlers.ExportAndClear(ctx, conn, dimension)
				if err != nil {
					return err
				}
				payload, err = handlers.LoadBackup(ctx, conn, res.BackupID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Backup %s: cleared %d questionnaires and %d votes\n",
					res.BackupID, res.QuestionnaireCount, res.VoteCount)
			} else {
				payload, err = handlers.BuildPayload(ctx, conn, dimension)
				if err != nil {
					return err
				}
			}

			raw, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				if err := os.WriteFile(out, raw, 0o600); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%s)\n", out, export.Size(len(raw)))
				return nil
			}
			_, err = w.Write(append(raw, '\n'))
			return err
		},
	}

	cmd.Flags().StringVar(&dimension, "dimension", models.DimensionAll, "Dimension key, or all")
	cmd.Flags().StringVar(&out, "out", "", "Write JSON to this file instead of stdout")
	cmd.Flags().BoolVar(&clearData, "clear", false, "Store a backup and delete the exported rows")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ficctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ficctl", version)
		},
	}
}
