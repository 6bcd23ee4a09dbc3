// Package cli implements the tscli command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	tradestation "github.com/quantpulse/tradestation-go"
	"github.com/quantpulse/tradestation-go/internal/config"
	"github.com/quantpulse/tradestation-go/internal/tokenstore"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type globalFlags struct {
	ClientID string
	Profile  string
	BaseURL  string
	Trace    bool
}

func registerGlobalFlags(fs *pflag.FlagSet, flags *globalFlags) {
	fs.StringVar(&flags.ClientID, "client-id", "", "OAuth client id (overrides config)")
	fs.StringVar(&flags.Profile, "profile", "", "token profile to use")
	fs.StringVar(&flags.BaseURL, "base-url", "", "API base URL (overrides config)")
	fs.BoolVar(&flags.Trace, "trace", false, "trace requests and stream events to stderr")
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "tscli",
		Short:         "Command-line client for the TradeStation API",
		Long:          "tscli logs in to TradeStation and exposes accounts, quotes, bars, and order entry from the command line.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	registerGlobalFlags(cmd.PersistentFlags(), &flags)

	cmd.AddCommand(
		newLoginCmd(&flags),
		newLogoutCmd(&flags),
		newStatusCmd(&flags),
		newRefreshCmd(&flags),
		newAccountsCmd(&flags),
		newBalancesCmd(&flags),
		newOrdersCmd(&flags),
		newQuoteCmd(&flags),
		newBarsCmd(&flags),
		newStreamQuotesCmd(&flags),
		newRoutesCmd(&flags),
	)

	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tscli: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the layered configuration with flag overrides applied.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	return config.Load(config.FlagOverrides{
		ClientID: flags.ClientID,
		Profile:  flags.Profile,
		BaseURL:  flags.BaseURL,
		Trace:    flags.Trace,
		TraceSet: cmd.Flags().Changed("trace"),
	})
}

func newStore() *tokenstore.Store {
	return tokenstore.NewStore(config.GlobalConfigDir())
}

// buildClient assembles an API client from config and the stored token for
// the active profile. A stale token is fine; the client refreshes on first
// use.
func buildClient(cmd *cobra.Command, flags *globalFlags) (*tradestation.Client, *config.Config, error) {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return nil, nil, err
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, nil, fmt.Errorf("no API credentials configured; set TS_CLIENT_ID and TS_CLIENT_SECRET or run tscli login")
	}

	stored, err := newStore().Load(cfg.Profile)
	if err != nil {
		return nil, nil, fmt.Errorf("no token for profile %q; run tscli login first", cfg.Profile)
	}
	tok, err := stored.Token()
	if err != nil {
		return nil, nil, err
	}

	scopes, err := cfg.Scopes()
	if err != nil {
		return nil, nil, err
	}

	cb := tradestation.NewBuilder().
		Credentials(cfg.ClientID, cfg.ClientSecret).
		RedirectURI(cfg.RedirectURI).
		Scopes(scopes...)
	if cfg.BaseURL != tradestation.DefaultBaseURL {
		cb = cb.TestingURL(config.NormalizeBaseURL(cfg.BaseURL))
	}
	if cfg.SigninURL != tradestation.DefaultSigninURL {
		cb = cb.SigninURL(config.NormalizeBaseURL(cfg.SigninURL))
	}
	if cfg.Trace {
		cb = cb.Trace(os.Stderr)
	}

	client, err := cb.Token(tok).RefreshMargin(cfg.RefreshMargin).Build()
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// persistToken writes the client's current token back to the store so
// refreshes survive the process.
func persistToken(client *tradestation.Client, cfg *config.Config) {
	tok := client.Token()
	if tok.AccessToken == "" {
		return
	}
	stored := tokenstore.FromToken(tok)
	if err := newStore().Save(cfg.Profile, &stored); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not persist token: %v\n", err)
	}
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return time.Since(t).Truncate(time.Second).String()
}
