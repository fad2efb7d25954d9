package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plainread/plainread/internal/analyze"
	"github.com/plainread/plainread/internal/bridge"
	"github.com/plainread/plainread/internal/cache"
	"github.com/plainread/plainread/internal/config"
	"github.com/plainread/plainread/internal/gateway"
	"github.com/plainread/plainread/internal/lexicon"
	"github.com/plainread/plainread/internal/orchestrator"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordinator daemon the browser extension talks to",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	clientID := cfg.Proxy.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
		log.Printf("[daemon] no client id configured, using %s for this run", clientID)
	}

	var opts []cache.Option
	var store *cache.SQLiteStore
	if cfg.Cache.Path != "" {
		store, err = cache.OpenSQLite(cfg.Cache.Path)
		if err != nil {
			log.Printf("[daemon] cache store unavailable (%v), running memory-only", err)
		} else {
			opts = append(opts, cache.WithStore(store))
		}
	}
	resultCache := cache.New(cfg.CacheTTL(), opts...)

	gw := gateway.NewClient(cfg.Proxy.BaseURL, clientID, cfg.Proxy.ExtensionID)
	hub := bridge.NewHub()
	orch := orchestrator.New(cfg.Orchestrator(), gw, resultCache, analyze.New(lexicon.Default()), hub)

	srv := bridge.NewServer(orch, hub)
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: srv.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("[daemon] listening on http://%s", cfg.ListenAddr())
		errc <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Printf("[daemon] received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("[daemon] shutdown: %v", err)
	}
	orch.WaitDeferred()
	if store != nil {
		if err := store.Close(); err != nil {
			log.Printf("[daemon] close cache store: %v", err)
		}
	}
	return nil
}
