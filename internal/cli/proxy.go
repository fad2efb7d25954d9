package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/plainread/plainread/internal/proxy"
)

func init() {
	rootCmd.AddCommand(proxyCmd)
}

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the backend model proxy",
	Long: `Run the backend proxy that holds the provider API key, enforces the
model allow-list and rate limits, and forwards invocations to the
model provider. Configured entirely through the environment
(OPENAI_API_KEY, PLAINREAD_PROXY_ADDR, ...); a .env file is honored.`,
	RunE: runProxy,
}

func runProxy(cmd *cobra.Command, args []string) error {
	cfg, err := proxy.LoadConfig()
	if err != nil {
		return err
	}

	srv := proxy.NewServer(cfg)
	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("[proxy] listening on %s", cfg.Addr)
		errc <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		log.Printf("[proxy] received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}
