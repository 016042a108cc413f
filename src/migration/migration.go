package migration

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.flipper.school/flipper/flipper/src/db"
	"git.flipper.school/flipper/flipper/src/migration/migrations"
	"git.flipper.school/flipper/flipper/src/migration/types"
	"git.flipper.school/flipper/flipper/src/website"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
)

var listMigrations bool

func init() {
	migrateCommand := &cobra.Command{
		Use:   "migrate [target migration id]",
		Short: "Run database migrations",
		Run: func(cmd *cobra.Command, args []string) {
			if listMigrations {
				ListMigrations(cmd.Context())
				return
			}

			targetVersion := time.Time{}
			if len(args) > 0 {
				var err error
				targetVersion, err = time.Parse(time.RFC3339, args[0])
				if err != nil {
					fmt.Printf("ERROR: bad version string: %v\n", err)
					os.Exit(1)
				}
			}
			if err := Migrate(cmd.Context(), types.MigrationVersion(targetVersion)); err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
		},
	}
	migrateCommand.Flags().BoolVar(&listMigrations, "list", false, "List available migrations")

	makeMigrationCommand := &cobra.Command{
		Use:   "makemigration <name> <description>...",
		Short: "Create a new database migration file",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a name and a description.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			name := args[0]
			description := strings.Join(args[1:], " ")

			MakeMigration(name, description)
		},
	}

	seedCommand := &cobra.Command{
		Use:   "seed",
		Short: "Migrates the database and fills it with sample users and a sample course",
		Run: func(cmd *cobra.Command, args []string) {
			if err := Migrate(cmd.Context(), LatestVersion()); err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
			if err := SampleSeed(cmd.Context()); err != nil {
				fmt.Printf("ERROR: failed to seed: %v\n", err)
				os.Exit(1)
			}
		},
	}

	website.WebsiteCommand.AddCommand(migrateCommand)
	website.WebsiteCommand.AddCommand(makeMigrationCommand)
	website.WebsiteCommand.AddCommand(seedCommand)
}

func getSortedMigrationVersions() []types.MigrationVersion {
	var allVersions []types.MigrationVersion
	for migrationTime := range migrations.All {
		allVersions = append(allVersions, migrationTime)
	}
	sort.Slice(allVersions, func(i, j int) bool {
		return allVersions[i].Before(allVersions[j])
	})

	return allVersions
}

func LatestVersion() types.MigrationVersion {
	allVersions := getSortedMigrationVersions()
	return allVersions[len(allVersions)-1]
}

func getCurrentVersion(ctx context.Context, conn *pgx.Conn) (types.MigrationVersion, error) {
	var currentVersion time.Time
	row := conn.QueryRow(ctx, "SELECT version FROM flipper_migration")
	err := row.Scan(&currentVersion)
	if err != nil {
		return types.MigrationVersion{}, err
	}
	currentVersion = currentVersion.UTC()

	return types.MigrationVersion(currentVersion), nil
}

func tryGetCurrentVersion(ctx context.Context) types.MigrationVersion {
	conn, err := db.NewConn(ctx)
	if err != nil {
		return types.MigrationVersion{}
	}
	defer conn.Close(ctx)

	currentVersion, _ := getCurrentVersion(ctx, conn)

	return currentVersion
}

func ListMigrations(ctx context.Context) {
	currentVersion := tryGetCurrentVersion(ctx)
	for _, version := range getSortedMigrationVersions() {
		migration := migrations.All[version]
		indicator := "  "
		if version.Equal(currentVersion) {
			indicator = "✔ "
		}
		fmt.Printf("%s%v (%s: %s)\n", indicator, version, migration.Name(), migration.Description())
	}
}

// Migrate rolls the database forward or back to targetVersion. A zero target
// means the latest migration.
func Migrate(ctx context.Context, targetVersion types.MigrationVersion) error {
	conn, err := db.NewConn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	// create migration table
	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS flipper_migration (
			version		TIMESTAMP WITH TIME ZONE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	// ensure there is a row
	row := conn.QueryRow(ctx, "SELECT COUNT(*) FROM flipper_migration")
	var numRows int
	if err := row.Scan(&numRows); err != nil {
		return err
	}
	if numRows < 1 {
		_, err := conn.Exec(ctx, "INSERT INTO flipper_migration (version) VALUES ($1)", time.Time{})
		if err != nil {
			return fmt.Errorf("failed to insert initial migration row: %w", err)
		}
	}

	currentVersion, err := getCurrentVersion(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if currentVersion.IsZero() {
		fmt.Println("This is the first time you have run database migrations.")
	} else {
		fmt.Printf("Current version: %s\n", currentVersion.String())
	}

	allVersions := getSortedMigrationVersions()
	if targetVersion.IsZero() {
		targetVersion = allVersions[len(allVersions)-1]
	}

	steps, err := plan(allVersions, currentVersion, targetVersion)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		fmt.Println("Already migrated; nothing to do.")
		return nil
	}

	for _, step := range steps {
		migration := migrations.All[step.version]
		if step.up {
			fmt.Printf("Applying migration %v (%v)\n", step.version, migration.Name())
		} else {
			fmt.Printf("Rolling back migration %v\n", step.version)
		}

		err := db.WithTx(ctx, conn, func(tx pgx.Tx) error {
			var err error
			if step.up {
				err = migration.Up(ctx, tx)
			} else {
				err = migration.Down(ctx, tx)
			}
			if err != nil {
				return fmt.Errorf("MIGRATION FAILED for migration %v: %w", step.version, err)
			}

			_, err = tx.Exec(ctx, "UPDATE flipper_migration SET version = $1", time.Time(step.after))
			if err != nil {
				return fmt.Errorf("failed to update version in migrations table: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type migrationStep struct {
	version types.MigrationVersion
	up      bool
	// The version recorded once the step is done.
	after types.MigrationVersion
}

// plan lists the migrations to apply (or roll back) to get from current to
// target. allVersions must be sorted.
func plan(allVersions []types.MigrationVersion, current, target types.MigrationVersion) ([]migrationStep, error) {
	currentIndex := -1
	targetIndex := -1
	for i, version := range allVersions {
		if current.Equal(version) {
			currentIndex = i
		}
		if target.Equal(version) {
			targetIndex = i
		}
	}

	if targetIndex < 0 {
		return nil, fmt.Errorf("could not find migration with version %v", target)
	}
	if currentIndex < 0 && !current.IsZero() {
		return nil, fmt.Errorf("database is at unknown version %v", current)
	}

	var steps []migrationStep
	if currentIndex < targetIndex {
		// roll forward
		for i := currentIndex + 1; i <= targetIndex; i++ {
			steps = append(steps, migrationStep{version: allVersions[i], up: true, after: allVersions[i]})
		}
	} else {
		// roll back
		for i := currentIndex; i > targetIndex; i-- {
			previousVersion := types.MigrationVersion{}
			if i > 0 {
				previousVersion = allVersions[i-1]
			}
			steps = append(steps, migrationStep{version: allVersions[i], up: false, after: previousVersion})
		}
	}
	return steps, nil
}

//go:embed migrationTemplate.txt
var migrationTemplate string

func MakeMigration(name, description string) {
	result := migrationTemplate
	result = strings.ReplaceAll(result, "%NAME%", name)
	result = strings.ReplaceAll(result, "%DESCRIPTION%", fmt.Sprintf("%#v", description))

	now := time.Now().UTC()
	nowConstructor := fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, 0, time.UTC)", now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	result = strings.ReplaceAll(result, "%DATE%", nowConstructor)

	safeVersion := strings.ReplaceAll(types.MigrationVersion(now).String(), ":", "")
	filename := fmt.Sprintf("%v_%v.go", safeVersion, name)
	path := filepath.Join("src", "migration", "migrations", filename)

	err := os.WriteFile(path, []byte(result), 0644)
	if err != nil {
		panic(fmt.Errorf("failed to write migration file: %w", err))
	}

	fmt.Println("Successfully created migration file:")
	fmt.Println(path)
}
