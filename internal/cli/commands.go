package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yubzen/switchboard/internal/config"
	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

// Session is an open gateway connection.
type Session interface {
	rpc.Caller
	Close() error
}

// Runtime carries what the commands need from the process. Tests swap the
// streams, the dialer and the local credential plumbing.
type Runtime struct {
	In          io.Reader
	Out         io.Writer
	Err         io.Writer
	Logger      *slog.Logger
	GatewayURL  string
	LoadConfig  func() (*config.Config, error)
	Dial        func(ctx context.Context, url string) (Session, error)
	Catalog     providers.Catalog
	Credentials providers.CredentialStore
	OpenBrowser func(url string) error
	Now         func() time.Time
}

func NewRuntime() *Runtime {
	rt := &Runtime{
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Logger:      slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		LoadConfig:  config.Load,
		Catalog:     providers.DefaultCatalog(),
		Credentials: providers.KeyringCredentials{},
		OpenBrowser: openBrowser,
		Now:         time.Now,
	}
	rt.Dial = rt.dialGateway
	return rt
}

func (rt *Runtime) dialGateway(ctx context.Context, url string) (Session, error) {
	client := rpc.NewClient(url, rpc.WithLogger(rt.Logger))
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to gateway %s: %w", url, err)
	}
	return client, nil
}

func (rt *Runtime) config() (*config.Config, error) {
	cfg, err := rt.LoadConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rt.GatewayURL) != "" {
		cfg.Gateway.URL = strings.TrimSpace(rt.GatewayURL)
	}
	return cfg, nil
}

// call opens a session, runs one method and decodes the payload into out.
func (rt *Runtime) call(ctx context.Context, cfg *config.Config, method string, params, out any) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	sess, err := rt.Dial(ctx, cfg.Gateway.URL)
	if err != nil {
		return err
	}
	defer sess.Close()

	resp, err := sess.Call(ctx, method, params)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := resp.Err(); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func NewProvidersCmd(rt *Runtime) *cobra.Command {
	providersCmd := &cobra.Command{
		Use:     "providers",
		Aliases: []string{"provider", "p"},
		Short:   "Inspect and manage gateway providers",
	}
	providersCmd.AddCommand(newProvidersListCmd(rt), newProvidersAddCmd(rt), newProvidersRemoveCmd(rt))
	return providersCmd
}

func newProvidersListCmd(rt *Runtime) *cobra.Command {
	var showAll bool
	var output string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List configured providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			cfg, err := rt.config()
			if err != nil {
				return err
			}
			var list []providers.Provider
			if err := rt.call(cmd.Context(), cfg, rpc.MethodProvidersAvailable, nil, &list); err != nil {
				return err
			}
			if showAll {
				providers.SortIn(cfg.Locale(), list)
			} else {
				list = providers.ForDisplayIn(cfg.Locale(), list)
			}
			if len(list) == 0 && format == formatTable {
				fmt.Fprintln(rt.Out, "No providers configured. Use `switchboard providers add <provider>` first.")
				return nil
			}
			return writeProviders(rt.Out, format, list)
		},
	}
	listCmd.Flags().BoolVar(&showAll, "all", false, "Include providers that are not configured")
	listCmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	return listCmd
}

func newProvidersAddCmd(rt *Runtime) *cobra.Command {
	var key, baseURL, model string
	addCmd := &cobra.Command{
		Use:     "add <provider>",
		Aliases: []string{"set"},
		Short:   "Store a provider credential on the gateway",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rt.config()
			if err != nil {
				return err
			}
			entry, err := providers.DefaultCatalog().Lookup(args[0])
			if err != nil {
				return err
			}

			req := providers.SaveKeyRequest{
				Provider: entry.Name,
				BaseURL:  strings.TrimSpace(baseURL),
				Model:    strings.TrimSpace(model),
			}
			if entry.AuthType == providers.AuthOAuth {
				return fmt.Errorf("%s: %w; run `switchboard auth login --provider %s` on the gateway host", entry.DisplayName, providers.ErrOAuthProvider, entry.Name)
			}
			if entry.AuthType == providers.AuthAPIKey {
				req.APIKey = strings.TrimSpace(key)
				if req.APIKey == "" {
					fmt.Fprintf(rt.Out, "Enter API key for %s: ", entry.DisplayName)
					line, err := readLine(rt.In)
					if err != nil {
						return fmt.Errorf("read api key: %w", err)
					}
					req.APIKey = line
				}
				if err := providers.ValidateCredential(req.APIKey); err != nil {
					return err
				}
			}

			if err := rt.call(cmd.Context(), cfg, rpc.MethodProvidersSaveKey, req, nil); err != nil {
				return err
			}
			fmt.Fprintf(rt.Out, "Configured %s\n", entry.DisplayName)
			return nil
		},
	}
	addCmd.Flags().StringVar(&key, "key", "", "API key value")
	addCmd.Flags().StringVar(&baseURL, "base-url", "", "Custom endpoint")
	addCmd.Flags().StringVar(&model, "model", "", "Default model")
	return addCmd
}

func newProvidersRemoveCmd(rt *Runtime) *cobra.Command {
	var yes bool
	removeCmd := &cobra.Command{
		Use:     "remove <provider>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove a provider's credentials from the gateway",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rt.config()
			if err != nil {
				return err
			}
			var list []providers.Provider
			if err := rt.call(cmd.Context(), cfg, rpc.MethodProvidersAvailable, nil, &list); err != nil {
				return err
			}
			target, ok := matchProvider(list, args[0])
			if !ok {
				return fmt.Errorf("%s: %w", args[0], providers.ErrUnknownProvider)
			}
			if !target.Configured {
				fmt.Fprintf(rt.Out, "%s is not configured\n", target.Label())
				return nil
			}

			if !yes {
				fmt.Fprintf(rt.Out, "%s [y/N] ", target.RemovePrompt())
				answer, err := readLine(rt.In)
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read confirmation: %w", err)
				}
				if !isYes(answer) {
					fmt.Fprintln(rt.Out, "Cancelled")
					return nil
				}
			}

			req := providers.RemoveKeyRequest{Provider: target.Name}
			if err := rt.call(cmd.Context(), cfg, rpc.MethodProvidersRemoveKey, req, nil); err != nil {
				return err
			}
			fmt.Fprintf(rt.Out, "Removed %s\n", target.Label())
			return nil
		},
	}
	removeCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return removeCmd
}

func NewModelsCmd(rt *Runtime) *cobra.Command {
	var output string
	modelsCmd := &cobra.Command{
		Use:   "models [provider]",
		Short: "List models available through configured providers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(output)
			if err != nil {
				return err
			}
			cfg, err := rt.config()
			if err != nil {
				return err
			}
			var models []providers.ModelInfo
			if err := rt.call(cmd.Context(), cfg, rpc.MethodModelsList, nil, &models); err != nil {
				return err
			}
			if len(args) == 1 {
				entry, err := providers.DefaultCatalog().Lookup(args[0])
				if err != nil {
					return err
				}
				filtered := models[:0]
				for _, m := range models {
					if m.Provider == entry.Name {
						filtered = append(filtered, m)
					}
				}
				models = filtered
			}
			if len(models) == 0 && format == formatTable {
				fmt.Fprintln(rt.Out, "No models available. Configure a provider first.")
				return nil
			}
			return writeModels(rt.Out, format, models)
		},
	}
	modelsCmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json or yaml")
	return modelsCmd
}

func NewConfigCmd(rt *Runtime) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show switchboard configuration",
	}
	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(rt.Out, config.GetConfigPath())
			return nil
		},
	}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rt.config()
			if err != nil {
				return err
			}
			return writeConfig(rt.Out, cfg)
		},
	}
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetConfigPath()
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(rt.Out, "%s already exists\n", path)
				return nil
			}
			if err := config.Default().SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintf(rt.Out, "Wrote %s\n", path)
			return nil
		},
	}
	configCmd.AddCommand(pathCmd, showCmd, initCmd)
	return configCmd
}

// matchProvider finds input by identifier or display name, ignoring case.
func matchProvider(list []providers.Provider, input string) (providers.Provider, bool) {
	input = strings.TrimSpace(input)
	for _, p := range list {
		if strings.EqualFold(p.Name, input) || strings.EqualFold(p.DisplayName, input) {
			return p, true
		}
	}
	if entry, err := providers.DefaultCatalog().Lookup(input); err == nil {
		for _, p := range list {
			if p.Name == entry.Name {
				return p, true
			}
		}
	}
	return providers.Provider{}, false
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line != "" && errors.Is(err, io.EOF) {
		return line, nil
	}
	return line, err
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
