// Package auth obtains Globus credentials for the Transfer API. It supports
// three strategies, tried in order: a persisted refresh secret (unattended
// cron runs), a client secret (confidential app), and an interactive
// paste-code login that bootstraps the refresh secret for future runs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/superdarn-canada/radarsync/internal/tokenfile"
)

// Globus Auth OAuth2 endpoints. The redirect URL is Globus's hosted
// paste-code page for native apps: the user logs in, copies the one-time
// code from the browser, and pastes it into the terminal.
const (
	AuthorizeURL = "https://auth.globus.org/v2/oauth2/authorize"
	TokenURL     = "https://auth.globus.org/v2/oauth2/token"
	RedirectURL  = "https://auth.globus.org/v2/web/auth-code"
)

// Only the transfer scope is requested. Globus issues one token per
// resource server; a single scope keeps the standard OAuth2 token response
// mapping directly onto the token we need.
var defaultScopes = []string{"urn:globus:auth:scope:transfer.api.globus.org:all"}

// ErrAuth is the sentinel wrapped by every credential-exchange failure.
// Use errors.Is(err, auth.ErrAuth) to check.
var ErrAuth = errors.New("auth: credential exchange failed")

// Prompter obtains a one-time authorization code from the operator.
// The CLI implements it against the terminal; tests script it.
type Prompter interface {
	Prompt(authURL string) (code string, err error)
}

// Options selects and parameterizes a credential strategy.
type Options struct {
	// ClientID is the Globus native-app client ID. Always required.
	ClientID string

	// ClientSecret, when set, selects the client-credentials strategy.
	ClientSecret string

	// RefreshSecret, when set, selects the refresh-token strategy.
	// It takes precedence over ClientSecret.
	RefreshSecret string

	// TokenPath is where the interactive flow persists a new refresh secret.
	TokenPath string

	// Prompter drives the interactive flow. Required only when neither
	// RefreshSecret nor ClientSecret is set.
	Prompter Prompter

	Logger *slog.Logger
}

// Credential is a bearer handle for the Transfer API. It satisfies
// transfer.TokenSource and is safe to reuse across many sequential calls:
// the refresh-token strategy renews silently without operator interaction.
type Credential struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

// Token returns a current access token, refreshing if needed.
func (c *Credential) Token() (string, error) {
	tok, err := c.src.Token()
	if err != nil {
		c.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", ErrAuth, err)
	}

	c.logger.Debug("token acquired",
		slog.Time("expiry", tok.Expiry),
		slog.Bool("valid", tok.Valid()),
	)

	return tok.AccessToken, nil
}

// Obtain builds a Credential using the first applicable strategy:
// refresh secret, then client secret, then interactive login.
//
// ctx is bound to the underlying oauth2 token source and must outlive the
// Credential — pass context.Background() for long-lived use.
func Obtain(ctx context.Context, opts Options) (*Credential, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case opts.RefreshSecret != "":
		logger.Debug("using refresh-token credential strategy")
		return refreshCredential(ctx, oauthConfig(opts.ClientID), opts.RefreshSecret, logger), nil
	case opts.ClientSecret != "":
		logger.Debug("using client-secret credential strategy")
		return clientCredential(ctx, opts.ClientID, opts.ClientSecret, TokenURL, logger), nil
	default:
		logger.Debug("no stored secret, falling back to interactive login")
		return InteractiveLogin(ctx, opts, logger)
	}
}

// refreshCredential wraps the persisted refresh secret in an auto-renewing
// token source. The first Token() call exchanges it for an access token;
// later calls reuse that token until it expires. Accepts a pre-built
// oauth2.Config so tests can inject a mock endpoint.
func refreshCredential(ctx context.Context, cfg *oauth2.Config, refreshSecret string, logger *slog.Logger) *Credential {
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshSecret})

	return &Credential{src: src, logger: logger}
}

// clientCredential exchanges client id + secret for a short-lived access
// token. No refresh secret is involved; the token source re-exchanges the
// client secret when the token expires.
func clientCredential(ctx context.Context, clientID, clientSecret, tokenURL string, logger *slog.Logger) *Credential {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       defaultScopes,
	}

	return &Credential{src: cfg.TokenSource(ctx), logger: logger}
}

// InteractiveLogin runs the paste-code authorization flow:
//  1. Builds the authorization URL (offline access, PKCE)
//  2. Asks the Prompter for the one-time code the user copied
//  3. Exchanges the code for an access token and a refresh secret
//  4. Persists the refresh secret to opts.TokenPath, overwriting prior content
//
// A failed write is logged as a warning and does not fail the login: the
// in-memory token still authorizes this run; only future unattended runs
// lose out, and they will fall back here again.
func InteractiveLogin(ctx context.Context, opts Options, logger *slog.Logger) (*Credential, error) {
	return interactiveLogin(ctx, oauthConfig(opts.ClientID), opts, logger)
}

// interactiveLogin implements the paste-code flow. Accepts a pre-built
// oauth2.Config so tests can inject a mock endpoint.
func interactiveLogin(ctx context.Context, cfg *oauth2.Config, opts Options, logger *slog.Logger) (*Credential, error) {
	if opts.Prompter == nil {
		return nil, fmt.Errorf("%w: interactive login required but no prompter available", ErrAuth)
	}

	verifier := oauth2.GenerateVerifier()

	// The code arrives out-of-band (copy-paste), so there is no redirect in
	// which to verify state. "_default" matches what the hosted page expects.
	authURL := cfg.AuthCodeURL("_default",
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	logger.Info("starting interactive login")

	code, err := opts.Prompter.Prompt(authURL)
	if err != nil {
		return nil, fmt.Errorf("%w: reading authorization code: %w", ErrAuth, err)
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: exchanging authorization code: %w", ErrAuth, err)
	}

	logger.Info("login successful", slog.Time("expiry", tok.Expiry))

	if tok.RefreshToken == "" {
		logger.Warn("token response contained no refresh token; future runs will prompt again")
	} else if saveErr := tokenfile.Save(opts.TokenPath, tok.RefreshToken); saveErr != nil {
		logger.Warn("failed to persist refresh secret; this run proceeds, future runs will prompt again",
			slog.String("path", opts.TokenPath),
			slog.String("error", saveErr.Error()),
		)
	} else {
		logger.Info("refresh secret saved", slog.String("path", opts.TokenPath))
	}

	return &Credential{src: cfg.TokenSource(ctx, tok), logger: logger}, nil
}

// oauthConfig builds the shared oauth2.Config for the native-app flows.
func oauthConfig(clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: RedirectURL,
		Scopes:      defaultScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthorizeURL,
			TokenURL: TokenURL,
		},
	}
}
