package website

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"git.flipper.school/flipper/flipper/src/config"
	"git.flipper.school/flipper/flipper/src/db"
	"git.flipper.school/flipper/flipper/src/flipdata"
	"git.flipper.school/flipper/flipper/src/jobs"
	"git.flipper.school/flipper/flipper/src/logging"
	"git.flipper.school/flipper/flipper/src/store"
	"git.flipper.school/flipper/flipper/src/store/memstore"
	"git.flipper.school/flipper/flipper/src/store/pgstore"
	"github.com/spf13/cobra"
)

var (
	dotEnvPath string
	storeKind  string
)

var WebsiteCommand = &cobra.Command{
	Use:   "flipper",
	Short: "Run the Flipper API server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(dotEnvPath); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if storeKind != "" {
			config.Config.Store = config.StoreKind(storeKind)
		}
		logging.SetLevel(config.Config.LogLevel)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		defer logging.LogPanics(nil)
		logging.Info().Str("store", string(config.Config.Store)).Msg("Hello, Flipper!")

		ctx := cmd.Context()
		s, err := OpenStore(ctx, config.Config.Store)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to open store")
		}
		defer s.Close()

		repos, err := flipdata.New(s, flipdata.Options{
			Sessions:     config.Config.Sessions,
			Registration: config.Config.Registration,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("bad registration policy")
		}

		var wg sync.WaitGroup

		// Start background jobs
		wg.Add(1)
		backgroundJobs := jobs.Jobs{
			repos.Sessions.PeriodicallyDeleteExpired(),
		}

		// Create HTTP server
		wg.Add(1)
		server := http.Server{
			Addr:    config.Config.Addr,
			Handler: NewWebsiteRoutes(repos),
		}
		go func() {
			logging.Info().Str("addr", config.Config.Addr).Msg("Serving the API")
			serverErr := server.ListenAndServe()
			if !errors.Is(serverErr, http.ErrServerClosed) {
				logging.Error().Err(serverErr).Msg("Server shut down unexpectedly")
			}
			// The wg.Done() happens in the shutdown logic below.
		}()

		// Wait for SIGINT in the background and trigger graceful shutdown
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		go func() {
			<-signals // First SIGINT (start shutdown)
			logging.Info().Msg("Shutting down the API server")

			const timeout = 10 * time.Second

			go func() {
				logging.Info().Msg("Shutting down background jobs...")
				unfinished := backgroundJobs.CancelAndWait(timeout)
				if len(unfinished) == 0 {
					logging.Info().Msg("Background jobs closed gracefully")
				} else {
					logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
				}
				wg.Done()
			}()

			// Gracefully shut down the HTTP server
			go func() {
				timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				err := server.Shutdown(timeoutCtx)
				if err != nil {
					logging.Warn().Err(err).Msg("Server did not shut down gracefully")
				}
				wg.Done()
			}()

			<-signals // Second SIGINT (force quit)
			logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed the API server")
			os.Exit(1)
		}()

		// Wait for all of the above to finish, then exit
		wg.Wait()
	},
}

func init() {
	WebsiteCommand.PersistentFlags().StringVar(&dotEnvPath, "env", ".env", "Path to a .env file with FLIPPER_* overrides")
	WebsiteCommand.PersistentFlags().StringVar(&storeKind, "store", "", "Storage backend: postgres or memory (overrides FLIPPER_STORE)")
}

func OpenStore(ctx context.Context, kind config.StoreKind) (store.Store, error) {
	switch kind {
	case config.StoreMemory:
		logging.Warn().Msg("Using the in-memory store; nothing will be persisted")
		return memstore.New(), nil
	case config.StorePostgres:
		conn, err := db.NewConnPool(ctx)
		if err != nil {
			return nil, err
		}
		return pgstore.New(conn), nil
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}
