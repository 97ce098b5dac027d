package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/config"
	"github.com/teemow/connectorhub/internal/connector"
	"github.com/teemow/connectorhub/internal/credentials"
	"github.com/teemow/connectorhub/internal/logging"
	"github.com/teemow/connectorhub/internal/server"
)

func newAccountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage connector accounts",
		Long: `Manage the accounts of each connector.

Services: ` + strings.Join(config.Services, ", ") + `

Accounts are stored encrypted (when CONNECTORHUB_ENCRYPTION_KEY is set) in the
token directory, and are picked up by 'connectorhub serve' at startup. The
default account of a service is set with <SERVICE>_DEFAULT_ACCOUNT; otherwise
the first stored account is used.`,
	}
	cmd.AddCommand(newAccountsListCmd())
	cmd.AddCommand(newAccountsAddCmd())
	cmd.AddCommand(newAccountsRemoveCmd())
	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [service]",
		Short: "List the registered accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServerContext(cmd, func(sc *server.ServerContext) error {
				conns := sc.Connectors()
				if len(args) == 1 {
					c, err := lookupConnector(sc, args[0])
					if err != nil {
						return err
					}
					conns = []*server.Connector{c}
				}
				for _, c := range conns {
					printSummary(cmd.OutOrStdout(), c.Accounts.ListAccounts().Value)
				}
				return nil
			})
		},
	}
}

func newAccountsAddCmd() *cobra.Command {
	var (
		values      []string
		makeDefault bool
	)
	cmd := &cobra.Command{
		Use:   "add <service> <account>",
		Short: "Register an account",
		Long: `Register an account for a service.

Without --set, the service's authorization strategy runs: Google services open
the consent page in the browser (the URL is also printed to stderr).

With --set, the given credential values are stored as the account's
credential, for example:

  connectorhub accounts add notion team --set api_key=secret_...
  connectorhub accounts add caldav me --set username=me@icloud.com --set password=xxxx-xxxx
  connectorhub accounts add gmail work --set refresh_token=1//...`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secrets, err := parseKeyValues(values)
			if err != nil {
				return err
			}
			return withServerContext(cmd, func(sc *server.ServerContext) error {
				c, err := lookupConnector(sc, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), c.AddAccount(cmd.Context(), args[1], secrets, makeDefault))
			})
		},
	}
	cmd.Flags().StringArrayVar(&values, "set", nil, "Credential value as key=value (repeatable)")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "Make the account the service's default")
	return cmd
}

func newAccountsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <service> <account>",
		Short: "Remove an account and revoke its stored credential",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServerContext(cmd, func(sc *server.ServerContext) error {
				c, err := lookupConnector(sc, args[0])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), c.Accounts.RemoveAccount(cmd.Context(), args[1]))
			})
		},
	}
}

func withServerContext(cmd *cobra.Command, fn func(sc *server.ServerContext) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	level := slog.LevelWarn
	if cfg.LogLevel < level {
		level = cfg.LogLevel
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sc, err := server.NewServerContext(ctx, cfg,
		server.WithLogger(logging.New(cmd.ErrOrStderr(), level)),
		server.WithPrompt(cmd.ErrOrStderr()),
		server.WithBrowser(credentials.OpenBrowser),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()
	return fn(sc)
}

func lookupConnector(sc *server.ServerContext, service string) (*server.Connector, error) {
	c, ok := sc.Connector(strings.ToLower(strings.TrimSpace(service)))
	if !ok {
		return nil, fmt.Errorf("unknown service %q (supported: %s)", service, strings.Join(config.Services, ", "))
	}
	return c, nil
}

// parseKeyValues parses repeated key=value flags. Keys are case-insensitive.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", p)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("duplicate --set key %q", k)
		}
		out[k] = v
	}
	return out, nil
}

func printResult(w io.Writer, res connector.Result[accounts.Summary]) error {
	if !res.Success {
		return fmt.Errorf("%s", res.Error)
	}
	printSummary(w, res.Value)
	return nil
}

func printSummary(w io.Writer, s accounts.Summary) {
	if s.Count == 0 {
		fmt.Fprintf(w, "%s: no accounts\n", s.Service)
		return
	}
	fmt.Fprintf(w, "%s:\n", s.Service)
	for _, a := range s.Accounts {
		marker := " "
		if a == s.Default {
			marker = "*"
		}
		fmt.Fprintf(w, "  %s %s\n", marker, a)
	}
}
