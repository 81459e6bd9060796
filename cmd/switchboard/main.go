package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/yubzen/switchboard/internal/cli"
	"github.com/yubzen/switchboard/internal/config"
	"github.com/yubzen/switchboard/internal/logging"
	"github.com/yubzen/switchboard/internal/rpc"
	"github.com/yubzen/switchboard/internal/tui"
)

func restoreTerminalState() {
	fmt.Fprint(os.Stderr, "\x1b[?25h\x1b[0m")
}

// tuiLogger writes to the configured log file. Without one, records are
// dropped so nothing scribbles over the alt screen.
func tuiLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if strings.TrimSpace(cfg.Log.File) == "" {
		return logging.Discard(), io.NopCloser(nil), nil
	}
	return logging.New(cfg.Log, nil)
}

// startEmbedded runs a gateway on a loopback port and returns its ws URL.
func startEmbedded(ctx context.Context, cfg *config.Config, logger *slog.Logger) (string, func(), error) {
	srv, closeDB, err := cli.OpenGateway(cfg, logger)
	if err != nil {
		return "", nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = closeDB()
		return "", nil, fmt.Errorf("listen for embedded gateway: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx, ln); err != nil {
			logger.Error("embedded gateway stopped", "err", err)
		}
	}()
	stop := func() {
		cancel()
		<-done
		_ = closeDB()
	}
	return "ws://" + ln.Addr().String() + "/ws", stop, nil
}

func runTUI(ctx context.Context, rt *cli.Runtime, embedded bool) error {
	cfg, err := rt.LoadConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(rt.GatewayURL) != "" {
		cfg.Gateway.URL = strings.TrimSpace(rt.GatewayURL)
	}

	logger, closer, err := tuiLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if embedded {
		url, stop, err := startEmbedded(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer stop()
		cfg.Gateway.URL = url
	}

	client := rpc.NewClient(cfg.Gateway.URL, rpc.WithLogger(logger))
	defer client.Close()
	go client.Maintain(ctx, cfg.ReconnectInterval())

	app := tui.NewApp(cfg, client, logger)
	p := tea.NewProgram(app.Model(), tea.WithAltScreen(), tea.WithContext(ctx))

	if cfg.UI.WatchConfig {
		go func() {
			err := config.Watch(ctx, config.GetConfigPath(), config.DefaultWatchDebounce, logger, func(*config.Config) {
				p.Send(tui.TopicMsg{Topic: tui.TopicRefreshProviders})
			})
			if err != nil {
				logger.Warn("config watch stopped", "err", err)
			}
		}()
	}

	_, err = p.Run()
	return err
}

func main() {
	rt := cli.NewRuntime()
	var embedded bool

	rootCmd := &cobra.Command{
		Use:           "switchboard",
		Short:         "Manage model providers behind a switchboard gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), rt, embedded)
		},
	}
	rootCmd.PersistentFlags().StringVar(&rt.GatewayURL, "gateway", "", "Gateway websocket URL (overrides gateway.url)")
	rootCmd.Flags().BoolVar(&embedded, "embedded", false, "Start a gateway in-process and connect to it")

	rootCmd.AddCommand(
		cli.NewProvidersCmd(rt),
		cli.NewModelsCmd(rt),
		cli.NewGatewayCmd(rt),
		cli.NewConfigCmd(rt),
		cli.NewAuthCmd(rt),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	restoreTerminalState()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
