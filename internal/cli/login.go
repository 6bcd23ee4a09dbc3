package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	tradestation "github.com/quantpulse/tradestation-go"
	"github.com/quantpulse/tradestation-go/internal/config"
	"github.com/quantpulse/tradestation-go/internal/tokenstore"
)

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with TradeStation",
		Long:  "Start the OAuth authorization code flow and store the resulting token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cfg.ClientID == "" || cfg.ClientSecret == "" {
				return fmt.Errorf("no API credentials configured; set TS_CLIENT_ID and TS_CLIENT_SECRET")
			}
			scopes, err := cfg.Scopes()
			if err != nil {
				return err
			}

			cb := tradestation.NewBuilder().
				Credentials(cfg.ClientID, cfg.ClientSecret).
				RedirectURI(cfg.RedirectURI).
				Scopes(scopes...)
			if cfg.SigninURL != tradestation.DefaultSigninURL {
				cb = cb.SigninURL(config.NormalizeBaseURL(cfg.SigninURL))
			}

			state := uuid.NewString()
			authURL := cb.AuthorizeURL(state)

			code, err := waitForCallback(cmd.Context(), cfg.RedirectURI, state, authURL, noBrowser)
			if err != nil {
				return err
			}

			ab, err := cb.Authorize(cmd.Context(), code)
			if err != nil {
				return err
			}
			client, err := ab.Build()
			if err != nil {
				return err
			}

			stored := tokenstore.FromToken(client.Token())
			if err := newStore().Save(cfg.Profile, &stored); err != nil {
				return fmt.Errorf("could not persist token: %w", err)
			}

			fmt.Printf("Authentication successful. Token stored for profile %q.\n", cfg.Profile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "print the authorization URL instead of opening a browser")
	return cmd
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := newStore().Delete(cfg.Profile); err != nil {
				return err
			}
			fmt.Printf("Token for profile %q removed.\n", cfg.Profile)
			return nil
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored token's state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			stored, err := newStore().Load(cfg.Profile)
			if err != nil {
				return fmt.Errorf("no token for profile %q; run tscli login first", cfg.Profile)
			}
			tok, err := stored.Token()
			if err != nil {
				return err
			}

			fmt.Printf("Profile:  %s\n", cfg.Profile)
			fmt.Printf("Scope:    %s\n", stored.Scope)
			fmt.Printf("Issued:   %s ago\n", formatAge(tok.IssuedAt))
			if tok.IsFresh(cfg.RefreshMargin) {
				fmt.Printf("Fresh:    yes (expires %s)\n", tok.ExpiresAt().Format(time.RFC3339))
			} else {
				fmt.Println("Fresh:    no (will refresh on next use)")
			}
			return nil
		},
	}
}

func newRefreshCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a token refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := buildClient(cmd, flags)
			if err != nil {
				return err
			}
			if err := client.Refresh(cmd.Context()); err != nil {
				return err
			}
			persistToken(client, cfg)
			fmt.Println("Token refreshed.")
			return nil
		},
	}
}

// loginTimeout bounds the whole browser round trip, from printing the
// authorize URL to receiving the redirect.
const loginTimeout = 5 * time.Minute

type callbackResult struct {
	code string
	err  error
}

// waitForCallback serves the OAuth redirect on the loopback address named
// by redirectURI and returns the authorization code.
func waitForCallback(ctx context.Context, redirectURI, wantState, authURL string, noBrowser bool) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("redirect URI %q: %w", redirectURI, err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", u.Host)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", u.Host, err)
	}
	defer func() { _ = ln.Close() }()

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler:           callbackHandler(wantState, results),
	}
	go srv.Serve(ln)
	defer func() { _ = srv.Close() }()

	switch {
	case noBrowser:
		fmt.Printf("Visit this URL to sign in:\n\n  %s\n\n", authURL)
	case openBrowser(authURL) != nil:
		fmt.Printf("Could not launch a browser. Visit this URL to sign in:\n\n  %s\n\n", authURL)
	default:
		fmt.Printf("A browser window should open shortly. If it does not, visit:\n\n  %s\n\n", authURL)
	}
	fmt.Println("Waiting for the sign-in redirect...")

	timer := time.NewTimer(loginTimeout)
	defer timer.Stop()
	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", fmt.Errorf("timed out waiting for the sign-in redirect")
	}
}

// callbackHandler answers the single redirect request and reports the
// outcome on results. The browser tab gets a short HTML page either way.
func callbackHandler(wantState string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			replyPage(w, "Sign-in failed", "The authorization server refused the request. Return to the terminal for details.")
			results <- callbackResult{err: fmt.Errorf("authorization refused: %s", q.Get("error"))}
		case q.Get("state") != wantState:
			replyPage(w, "Sign-in failed", "This redirect does not belong to the current login attempt.")
			results <- callbackResult{err: fmt.Errorf("state parameter did not match; run login again")}
		default:
			replyPage(w, "Signed in", "tscli received the authorization code. This tab can be closed.")
			results <- callbackResult{code: q.Get("code")}
		}
	})
}

func replyPage(w http.ResponseWriter, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><title>tscli</title><h2>%s</h2><p>%s</p>", title, detail)
}

func openBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}
