package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/testkb/internal/server"
)

var (
	serverPort int
	serverSeed bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP knowledge API",
	Long:  `Starts the HTTP API with JSON search and store endpoints per collection, record history, health checks and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		if serverSeed {
			if err := seedQuietly(cmd.Context(), a); err != nil {
				return err
			}
		}

		port := a.cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = serverPort
		}

		srv := server.New(server.Config{
			Port:     port,
			AllowAll: a.cfg.Server.AllowAll,
		}, a.retriever, a.history, a.logger)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "testkb server %s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Backend: %s\n", a.cfg.Store.Backend)
		if a.database != nil {
			fmt.Fprintf(os.Stderr, "  Journal: %s\n", a.database.Path())
		}

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "port to listen on (default from config)")
	serverCmd.Flags().BoolVar(&serverSeed, "seed", true, "load the built-in knowledge into empty collections at startup")
	rootCmd.AddCommand(serverCmd)
}
