package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantpulse/tradestation-go/brokerage"
)

func newAccountsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List brokerage accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := buildClient(cmd, flags)
			if err != nil {
				return err
			}
			defer persistToken(client, cfg)

			accounts, err := brokerage.GetAccounts(cmd.Context(), client)
			if err != nil {
				return err
			}
			for _, a := range accounts {
				fmt.Printf("%s\t%s\t%s\t%s\n", a.AccountID, a.AccountType, a.Currency, a.Status)
			}
			return nil
		},
	}
}

func newBalancesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "balances <account-id>...",
		Short: "Show account balances",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := buildClient(cmd, flags)
			if err != nil {
				return err
			}
			defer persistToken(client, cfg)

			balances, itemErrs, err := brokerage.GetBalances(cmd.Context(), client, args)
			if err != nil {
				return err
			}
			for _, b := range balances {
				fmt.Printf("%s\tequity=%s\tcash=%s\tbuying-power=%s\n",
					b.AccountID, b.Equity, b.CashBalance, b.BuyingPower)
			}
			printItemErrors(itemErrs)
			return nil
		},
	}
}

func newOrdersCmd(flags *globalFlags) *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "orders <account-id>...",
		Short: "List orders for accounts",
		Long:  "List today's and open orders, or closed orders since a date with --since.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := buildClient(cmd, flags)
			if err != nil {
				return err
			}
			defer persistToken(client, cfg)

			var (
				orders   []brokerage.Order
				itemErrs []brokerage.ItemError
			)
			if since != "" {
				t, parseErr := time.Parse("2006-01-02", since)
				if parseErr != nil {
					return fmt.Errorf("invalid --since date %q: %w", since, parseErr)
				}
				orders, itemErrs, err = brokerage.GetHistoricOrders(cmd.Context(), client, args, t)
			} else {
				orders, itemErrs, err = brokerage.GetOrders(cmd.Context(), client, args)
			}
			if err != nil {
				return err
			}
			for _, o := range orders {
				fmt.Printf("%s\t%s\t%s\t%s\n", o.OrderID, o.AccountID, o.OrderType, o.Status)
			}
			printItemErrors(itemErrs)
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "list closed orders since this date (YYYY-MM-DD, at most 90 days back)")
	return cmd
}

func printItemErrors(itemErrs []brokerage.ItemError) {
	for _, e := range itemErrs {
		fmt.Printf("error\t%s\t%s: %s\n", e.AccountID, e.Error, e.Message)
	}
}
