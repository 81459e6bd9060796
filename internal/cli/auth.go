package cli

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/yubzen/switchboard/internal/providers"
)

const loginTimeout = 5 * time.Minute

// NewAuthCmd signs this host in to OAuth providers. Tokens land in the same
// credential store the gateway reads, so run it where the gateway runs.
func NewAuthCmd(rt *Runtime) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in to OAuth providers on this host",
	}
	authCmd.AddCommand(newAuthLoginCmd(rt), newAuthStatusCmd(rt), newAuthLogoutCmd(rt))
	return authCmd
}

func newAuthLoginCmd(rt *Runtime) *cobra.Command {
	var provider string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a provider in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := rt.oauthEntry(provider)
			if err != nil {
				return err
			}
			login, err := providers.StartOAuthLogin(entry)
			if err != nil {
				return err
			}
			defer login.Close()

			authURL := login.AuthURL()
			fmt.Fprintln(rt.Out, "Opening browser for authentication...")
			if rt.OpenBrowser == nil || rt.OpenBrowser(authURL) != nil {
				fmt.Fprintf(rt.Out, "Could not open a browser. Visit this URL to continue:\n%s\n", authURL)
			}
			fmt.Fprintf(rt.Out, "Waiting for callback on %s\n", login.RedirectURL())

			ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
			defer cancel()
			tok, err := login.Wait(ctx)
			if err != nil {
				return err
			}
			if err := providers.SaveToken(rt.credentials(), entry.Name, tok); err != nil {
				return err
			}
			fmt.Fprintf(rt.Out, "Signed in to %s\n", entry.DisplayName)
			return nil
		},
	}
	loginCmd.Flags().StringVar(&provider, "provider", "", "Provider to sign in to (e.g. openai-codex)")
	_ = loginCmd.MarkFlagRequired("provider")
	return loginCmd
}

func newAuthStatusCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sign-in state for OAuth providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if rt.Now != nil {
				now = rt.Now()
			}
			shown := 0
			for _, entry := range rt.catalog() {
				if entry.AuthType != providers.AuthOAuth {
					continue
				}
				tok, err := providers.LoadToken(rt.credentials(), entry.Name)
				if errors.Is(err, providers.ErrCredentialNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(rt.Out, "%s [%s]\n", entry.Name, providers.TokenStatus(tok, now))
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(rt.Out, "No authenticated providers.")
			}
			return nil
		},
	}
}

func newAuthLogoutCmd(rt *Runtime) *cobra.Command {
	var provider string
	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget a provider's tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := rt.oauthEntry(provider)
			if err != nil {
				return err
			}
			switch err := rt.credentials().Delete(entry.Name); {
			case errors.Is(err, providers.ErrCredentialNotFound):
				fmt.Fprintf(rt.Out, "Not signed in to %s\n", entry.DisplayName)
				return nil
			case err != nil:
				return fmt.Errorf("delete %s token: %w", entry.Name, err)
			}
			fmt.Fprintf(rt.Out, "Logged out from %s\n", entry.DisplayName)
			return nil
		},
	}
	logoutCmd.Flags().StringVar(&provider, "provider", "", "Provider to sign out of")
	_ = logoutCmd.MarkFlagRequired("provider")
	return logoutCmd
}

func (rt *Runtime) catalog() providers.Catalog {
	if rt.Catalog == nil {
		return providers.DefaultCatalog()
	}
	return rt.Catalog
}

func (rt *Runtime) credentials() providers.CredentialStore {
	if rt.Credentials == nil {
		return providers.KeyringCredentials{}
	}
	return rt.Credentials
}

func (rt *Runtime) oauthEntry(name string) (providers.CatalogEntry, error) {
	entry, err := rt.catalog().Lookup(name)
	if err != nil {
		return providers.CatalogEntry{}, err
	}
	if entry.AuthType != providers.AuthOAuth {
		return providers.CatalogEntry{}, fmt.Errorf("%s: %w; use `switchboard providers add %s`", entry.DisplayName, providers.ErrNotOAuth, entry.Name)
	}
	return entry, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
