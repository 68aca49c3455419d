package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"civreply/internal/api"
	"civreply/internal/models"
	"civreply/internal/watch"
)

var (
	serveWatch    bool
	serveDebounce time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts the question answering API. With --watch (the default), document
directories are watched and indexes rebuilt automatically when files change.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "watch document directories and reindex on change")
	serveCmd.Flags().DurationVar(&serveDebounce, "debounce", 2*time.Second, "quiet period before a watched change triggers a rebuild")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	server := api.NewServer(
		app.service,
		app.builder,
		models.DefaultCouncils(),
		app.cfg.Paths.DocsRoot,
		app.cfg.Security.AdminToken,
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.cfg.Server.Host, app.cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(app.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.cfg.Server.WriteTimeout) * time.Second,
	}

	if serveWatch {
		watcher := watch.New(app.builder, app.cfg.Paths.DocsRoot, serveDebounce)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("WATCHER ERROR: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("SERVER: Listening on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("SERVER: Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
