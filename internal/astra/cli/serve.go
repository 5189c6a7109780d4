package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/astralab/astra/internal/astra/gateway"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket gateway",
		Run:   runServe,
	}
	cmd.Flags().String("listen", "", "Listen address (overrides config)")
	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	a, err := buildApp()
	if err != nil {
		exitErr("startup", err)
	}
	defer a.Close()

	addr, _ := cmd.Flags().GetString("listen")
	if addr == "" {
		addr = a.cfg.Gateway.ListenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw := gateway.New(a.orch, a.mem, a.settings, nil)
	if err := gw.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitErr("serve", err)
	}

	// Release the model on shutdown so it does not sit warm for an hour.
	if err := a.client.Unload(context.Background()); err != nil {
		slog.Debug("model unload on shutdown", "err", err)
	}
}
