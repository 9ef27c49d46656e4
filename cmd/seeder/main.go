package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/locvowork/employee_directory/internal/bootstrap"
	"github.com/locvowork/employee_directory/internal/database"
	"github.com/locvowork/employee_directory/internal/logger"
	"github.com/spf13/cobra"
)

type seederOptions struct {
	workers int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &seederOptions{}

	cmd := &cobra.Command{
		Use:           "seeder",
		Short:         "Employee directory data seeder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().IntVar(&opts.workers, "workers", 1, "concurrent writes (keep 1 for the file store)")

	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newClearCommand(opts))
	cmd.AddCommand(newReindexCommand())
	return cmd
}

func newSeedCommand(opts *seederOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample employees",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				n, err := database.NewDataSeeder(app.Service).SetWorkers(opts.workers).SeedData(ctx, force)
				logger.InfoLog(ctx, "Seeded %d employees into the %s store", n, app.Backend)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "seed even when the store already has employees")
	return cmd
}

func newClearCommand(opts *seederOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every employee",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				fmt.Fprintln(cmd.OutOrStdout(), "⚠️  This will delete all employees!")
				fmt.Fprint(cmd.OutOrStdout(), "Continue? (yes/no): ")

				var response string
				_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
				if strings.TrimSpace(response) != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				_, err := database.NewDataSeeder(app.Service).SetWorkers(opts.workers).ClearData(ctx)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func newReindexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search mirror from the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
				if app.Search == nil {
					return errors.New("ELASTICSEARCH_URL is not set")
				}
				if err := app.Search.EnsureIndex(ctx); err != nil {
					return err
				}
				_, err := database.NewDataSeeder(app.Service).ReindexData(ctx, app.Search)
				return err
			})
		},
	}
}

func withApp(ctx context.Context, fn func(context.Context, *bootstrap.App) error) error {
	fmt.Println("🚀 Employee Directory Seeder")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("📡 Initializing application...")

	app := bootstrap.NewApp()
	defer func() { _ = app.Close(context.Background()) }()

	if err := app.Initialize(ctx); err != nil {
		logger.ErrorLog(ctx, "Failed to initialize application: %v", err)
		return err
	}
	fmt.Printf("💾 Store: %s\n", app.Backend)

	if err := fn(ctx, app); err != nil {
		return err
	}
	fmt.Println("\n✅ Done!")
	return nil
}
