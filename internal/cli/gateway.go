package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yubzen/switchboard/internal/config"
	"github.com/yubzen/switchboard/internal/gateway"
	"github.com/yubzen/switchboard/internal/logging"
	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/state"
)

// OpenGateway builds a gateway server backed by the state database and the
// system keyring. The returned close function releases the database.
func OpenGateway(cfg *config.Config, logger *slog.Logger) (*gateway.Server, func() error, error) {
	db, err := state.Connect(cfg.State.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open state db: %w", err)
	}
	registry := providers.NewRegistry(
		providers.DefaultCatalog(),
		providers.KeyringCredentials{},
		db,
		providers.WithRegistryLogger(logger),
		providers.WithDiscoveryTimeout(cfg.RequestTimeout()),
		providers.WithRegistryLocale(cfg.Locale()),
	)
	srv := gateway.NewServer(
		gateway.WithLogger(logger),
		gateway.WithMetrics(gateway.NewMetrics()),
	)
	gateway.RegisterProviders(srv, registry)
	return srv, db.Close, nil
}

func NewGatewayCmd(rt *Runtime) *cobra.Command {
	var listen string
	gatewayCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Run the provider gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rt.config()
			if err != nil {
				return err
			}
			if strings.TrimSpace(listen) != "" {
				cfg.Gateway.Listen = strings.TrimSpace(listen)
			}

			logger, closer, err := logging.New(cfg.Log, rt.Err)
			if err != nil {
				return err
			}
			defer closer.Close()

			srv, closeDB, err := OpenGateway(cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(rt.Out, "Gateway listening on %s (ws endpoint /ws, metrics /metrics). Press Ctrl+C to stop.\n", cfg.Gateway.Listen)
			return srv.ListenAndServe(ctx, cfg.Gateway.Listen)
		},
	}
	gatewayCmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (overrides gateway.listen)")
	return gatewayCmd
}
