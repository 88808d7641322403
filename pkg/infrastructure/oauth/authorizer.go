// Package oauth runs the local redirect receiver for the Strava
// authorization-code flow. The operator opens the login page in a
// browser, Strava redirects back with a code, and the code is exchanged
// for a token that the main flow blocks on.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// CallbackPath is the redirect path registered with Strava.
const CallbackPath = "/strava-oauth"

// Endpoint is Strava's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// Authorizer owns the short-lived local HTTP server that receives the
// OAuth redirect. It is started explicitly and shut down explicitly; no
// fire-and-forget goroutines outlive the flow.
type Authorizer struct {
	// Config is exported so tests can point TokenURL at a stub server.
	Config *oauth2.Config

	listenAddr string
	logger     *slog.Logger
	state      string
	tokens     chan *oauth2.Token
	server     *http.Server
	serverErr  chan error
}

func NewAuthorizer(clientID, clientSecret, listenAddr string, logger *slog.Logger) *Authorizer {
	return &Authorizer{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     Endpoint,
			RedirectURL:  "http://" + listenAddr + CallbackPath,
			Scopes:       []string{"activity:write"},
		},
		listenAddr: listenAddr,
		logger:     logger,
		state:      uuid.NewString(),
		tokens:     make(chan *oauth2.Token, 1),
		serverErr:  make(chan error, 1),
	}
}

// LoginURL is the page the operator should open in a browser.
func (a *Authorizer) LoginURL() string {
	return "http://" + a.listenAddr + "/"
}

// Start launches the redirect receiver in the background.
func (a *Authorizer) Start() {
	r := chi.NewRouter()
	r.Get("/", a.handleLogin)
	r.Get(CallbackPath, a.handleCallback)

	a.server = &http.Server{Addr: a.listenAddr, Handler: r}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serverErr <- err
		}
	}()
	a.logger.Info("OAuth server listening", "url", a.LoginURL())
}

// Wait blocks until the operator completes the flow, the server dies, or
// the context is cancelled.
func (a *Authorizer) Wait(ctx context.Context) (*oauth2.Token, error) {
	select {
	case token := <-a.tokens:
		return token, nil
	case err := <-a.serverErr:
		return nil, fmt.Errorf("oauth server failed: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops the redirect receiver.
func (a *Authorizer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func (a *Authorizer) handleLogin(w http.ResponseWriter, r *http.Request) {
	url := a.Config.AuthCodeURL(a.state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body><a href=%q>Authorize Strava-nator to upload activities</a></body></html>`, url)
}

func (a *Authorizer) handleCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		a.logger.Error("Authorization denied", "error", errParam)
		http.Error(w, "authorization denied: "+errParam, http.StatusForbidden)
		return
	}
	if r.URL.Query().Get("state") != a.state {
		a.logger.Error("State mismatch on OAuth callback")
		http.Error(w, "state mismatch", http.StatusForbidden)
		return
	}

	code := r.URL.Query().Get("code")
	token, err := a.Config.Exchange(r.Context(), code)
	if err != nil {
		a.logger.Error("Code exchange failed", "error", err)
		http.Error(w, "code exchange failed", http.StatusBadGateway)
		return
	}

	select {
	case a.tokens <- token:
	default:
		// A token was already delivered; ignore repeats.
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<html><body>Authorized! You can close this tab and return to the terminal.</body></html>`)
}

// Client builds an HTTP client that authenticates requests with the
// exchanged token, refreshing it when it expires.
func (a *Authorizer) Client(ctx context.Context, token *oauth2.Token) *http.Client {
	return a.Config.Client(ctx, token)
}
