package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var (
	ErrNotOAuth      = errors.New("provider does not sign in with OAuth")
	ErrOAuthProvider = errors.New("provider signs in with OAuth")
	ErrStateMismatch = errors.New("oauth callback state mismatch")
)

// OAuthConfig describes a provider's authorization-code endpoints.
type OAuthConfig struct {
	ClientID    string
	AuthURL     string
	TokenURL    string
	RedirectURL string
	Scopes      []string
}

func (c OAuthConfig) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    c.ClientID,
		RedirectURL: c.RedirectURL,
		Scopes:      c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

type callbackResult struct {
	code string
	err  error
}

// OAuthLogin is one PKCE sign-in. It serves the redirect from the moment it
// is started so a browser that is quick to return is not refused.
type OAuthLogin struct {
	name     string
	config   *oauth2.Config
	state    string
	verifier string
	srv      *http.Server
	results  chan callbackResult
}

// StartOAuthLogin listens on the entry's redirect address and prepares the
// authorization request.
func StartOAuthLogin(entry CatalogEntry) (*OAuthLogin, error) {
	if entry.AuthType != AuthOAuth || entry.OAuth == nil {
		return nil, fmt.Errorf("%s: %w", entry.Name, ErrNotOAuth)
	}
	redirect, err := url.Parse(entry.OAuth.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s redirect url: %w", entry.Name, err)
	}
	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("listen for %s callback: %w", entry.Name, err)
	}
	redirect.Host = ln.Addr().String()

	config := entry.OAuth.config()
	config.RedirectURL = redirect.String()
	l := &OAuthLogin{
		name:     entry.Name,
		config:   config,
		state:    uuid.NewString(),
		verifier: oauth2.GenerateVerifier(),
		results:  make(chan callbackResult, 1),
	}

	path := redirect.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.callback)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = l.srv.Serve(ln) }()
	return l, nil
}

func (l *OAuthLogin) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var res callbackResult
	switch {
	case q.Get("error") != "":
		res.err = fmt.Errorf("%s authorization failed: %s", l.name, strings.TrimSpace(q.Get("error")+" "+q.Get("error_description")))
	case q.Get("state") != l.state:
		res.err = fmt.Errorf("%s: %w", l.name, ErrStateMismatch)
	case strings.TrimSpace(q.Get("code")) == "":
		res.err = fmt.Errorf("%s callback carried no code", l.name)
	default:
		res.code = q.Get("code")
	}
	if res.err != nil {
		http.Error(w, "Sign-in failed. You can close this window.", http.StatusBadRequest)
	} else {
		fmt.Fprintln(w, "Signed in. You can close this window.")
	}
	select {
	case l.results <- res:
	default:
	}
}

// AuthURL is the address the user opens to approve access.
func (l *OAuthLogin) AuthURL() string {
	return l.config.AuthCodeURL(l.state, oauth2.S256ChallengeOption(l.verifier))
}

func (l *OAuthLogin) RedirectURL() string {
	return l.config.RedirectURL
}

// Wait blocks until the redirect arrives, then trades the code for tokens.
func (l *OAuthLogin) Wait(ctx context.Context) (*oauth2.Token, error) {
	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for %s callback: %w", l.name, ctx.Err())
	case res = <-l.results:
	}
	if res.err != nil {
		return nil, res.err
	}
	tok, err := l.config.Exchange(ctx, res.code, oauth2.VerifierOption(l.verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange %s code: %w", l.name, err)
	}
	return tok, nil
}

func (l *OAuthLogin) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return l.srv.Shutdown(ctx)
}

// SaveToken stores the token as the provider's credential, which is also
// what marks an OAuth provider configured.
func SaveToken(creds CredentialStore, name string, tok *oauth2.Token) error {
	if tok == nil || strings.TrimSpace(tok.AccessToken) == "" {
		return fmt.Errorf("%s: %w", name, ErrEmptyCredential)
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode %s token: %w", name, err)
	}
	if err := creds.Store(name, string(raw)); err != nil {
		return fmt.Errorf("store %s token: %w", name, err)
	}
	return nil
}

func LoadToken(creds CredentialStore, name string) (*oauth2.Token, error) {
	raw, err := creds.Load(name)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("decode %s token: %w", name, err)
	}
	return &tok, nil
}

// TokenStatus renders a token's lifetime the way `auth status` prints it.
func TokenStatus(tok *oauth2.Token, now time.Time) string {
	if tok.Expiry.IsZero() {
		return "unknown"
	}
	left := tok.Expiry.Sub(now)
	if left <= 0 {
		return "expired"
	}
	hours := int(left / time.Hour)
	minutes := int(left%time.Hour) / int(time.Minute)
	return fmt.Sprintf("valid (%dh %dm remaining)", hours, minutes)
}
