package main

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	"github.com/asakaida/contentkit/internal/infrastructure/config"
	"github.com/asakaida/contentkit/internal/infrastructure/database"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

var (
	envFlag string
	pathFlag string
	pg      *database.Postgres
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool for contentkit",
	Long: `Database migration tool for contentkit.
Manages the PostgreSQL schema (contents, content_fields, relations,
contenttype_versions) using golang-migrate.`,
	PersistentPreRunE:  setupDatabase,
	PersistentPostRun:  closeDatabase,
	SilenceUsage:       true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		return report(m.Up(), "Migration up completed successfully", "No migrations to apply")
	}),
}

var downCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Rollback migrations",
	Long:  `Rollback the specified number of migrations (default: 1).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid number of steps: %s", args[0])
			}
			steps = n
		}
		return report(m.Steps(-steps),
			fmt.Sprintf("Migration down completed successfully (rolled back %d migration(s))", steps),
			"No migrations to rollback")
	}),
}

var gotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version: %s", args[0])
		}
		return report(m.Migrate(uint(version)),
			fmt.Sprintf("Migration goto %d completed successfully", version),
			fmt.Sprintf("Already at version %d", version))
	}),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show current migration version",
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("Current version: No migrations applied yet")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}

		if dirty {
			log.Printf("Current version: %d (dirty - migration may have failed)", version)
		} else {
			log.Printf("Current version: %d", version)
		}
		return nil
	}),
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Force set migration version (use with caution)",
	Long:  `Force set the migration version without running migrations. Use with caution.`,
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(m *migrate.Migrate, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version: %s", args[0])
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("migration force failed: %w", err)
		}
		log.Printf("Migration forced to version %d", version)
		return nil
	}),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")
	rootCmd.PersistentFlags().StringVarP(&pathFlag, "path", "p", "", "Migrations directory (default: <project root>/"+database.DefaultMigrationsPath+")")

	rootCmd.AddCommand(upCmd, downCmd, gotoCmd, versionCmd, forceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

func setupDatabase(cmd *cobra.Command, args []string) error {
	log.Printf("Using environment: %s", envFlag)

	if err := config.InitConfig(envFlag); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pg, err = database.NewPostgres(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Connected to database: %s@%s:%d/%s",
		cfg.Database.User,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database)
	return nil
}

func closeDatabase(cmd *cobra.Command, args []string) {
	if pg != nil {
		pg.Close()
	}
}

func migrationsPath() (string, error) {
	if pathFlag != "" {
		return pathFlag, nil
	}

	projectRoot, err := config.ProjectRoot()
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}

	path := filepath.Join(projectRoot, database.DefaultMigrationsPath)
	log.Printf("Using migrations path: %s", path)
	return path, nil
}

// withMigrator opens a migrate instance for the duration of one command
func withMigrator(run func(m *migrate.Migrate, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path, err := migrationsPath()
		if err != nil {
			return err
		}

		m, err := pg.NewMigrator(path)
		if err != nil {
			return err
		}
		defer m.Close()

		return run(m, args)
	}
}

// report logs the outcome of a migration step, treating ErrNoChange as success
func report(err error, done, unchanged string) error {
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println(unchanged)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Println(done)
	return nil
}
