package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	tradestation "github.com/quantpulse/tradestation-go"
	"github.com/quantpulse/tradestation-go/marketdata"
	"github.com/quantpulse/tradestation-go/orderexecution"
)

func newQuoteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>...",
		Short: "Show quote snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := buildClient(cmd, flags)
			if err != nil {
				return err
			}
			defer persistToken(client, cfg)

			quotes, itemErrs, err := marketdata.GetQuotes(cmd.Context(), client, args)
			if err != nil {
				return err
			}
			for _, q := range quotes {
				fmt.Printf("%s\tlast=%s\tbid=%s\task=%s\tvolume=%s\n",
					q.Symbol, q.Last, q.Bid, q.Ask, q.Volume)
			}
			for _, e := range itemErrs {
				fmt.Printf("error\t%s\t%s: %s\n", e.Symbol, e.Error, e.Message)
			}
			return nil
		},
	}
}

func newBarsCmd(flags *globalFlags) *cobra.Command {
	var (
		interval int
		unit     string
		barsBack int
		stream   bool
	)

	cmd := &cobra.Command{
		Use:   "bars <symbol>",
		Short: "Fetch or stream bar charts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := buildClient(cmd, flags)
			if err != nil {
				return err
			}
			defer persistToken(client, cfg)

			qb := marketdata.NewBarsQuery(args[0]).
				Interval(interval).
				Unit(marketdata.BarUnit(unit))
			if barsBack > 0 {
				qb = qb.BarsBack(barsBack)
			}
			query, err := qb.Build()
			if err != nil {
				return err
			}

			if stream {
				return marketdata.StreamBars(cmd.Context(), client, query, func(ev marketdata.BarStreamEvent) error {
					switch {
					case ev.Bar != nil:
						printBar(*ev.Bar)
					case ev.Err != nil:
						fmt.Printf("stream error\t%s: %s\n", ev.Err.Error, ev.Err.Message)
					}
					return nil
				})
			}

			bars, err := marketdata.GetBars(cmd.Context(), client, query)
			if err != nil {
				return err
			}
			for _, b := range bars {
				printBar(b)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 1, "units per bar")
	cmd.Flags().StringVar(&unit, "unit", string(marketdata.UnitDaily), "bar unit: Minute, Daily, Weekly, Monthly")
	cmd.Flags().IntVar(&barsBack, "bars-back", 0, "number of bars back to fetch")
	cmd.Flags().BoolVar(&stream, "stream", false, "stream realtime bars instead of a snapshot")
	return cmd
}

func printBar(b marketdata.Bar) {
	fmt.Printf("%s\topen=%s high=%s low=%s close=%s volume=%s\n",
		b.TimeStamp, b.Open, b.High, b.Low, b.Close, b.TotalVolume)
}

func newStreamQuotesCmd(flags *globalFlags) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "stream-quotes <symbol>...",
		Short: "Stream realtime quotes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := buildClient(cmd, flags)
			if err != nil {
				return err
			}
			defer persistToken(client, cfg)

			seen := 0
			return marketdata.StreamQuotes(cmd.Context(), client, args, func(ev marketdata.QuoteStreamEvent) error {
				switch {
				case ev.Quote != nil:
					fmt.Printf("%s\tlast=%s\tbid=%s\task=%s\n",
						ev.Quote.Symbol, ev.Quote.Last, ev.Quote.Bid, ev.Quote.Ask)
					seen++
					if count > 0 && seen >= count {
						return tradestation.ErrStopStream
					}
				case ev.Status != nil:
					fmt.Printf("stream %s\n", ev.Status.StreamStatus)
				case ev.Err != nil:
					fmt.Printf("stream error\t%s: %s\n", ev.Err.Error, ev.Err.Message)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "stop after this many quote updates (0 streams forever)")
	return cmd
}

func newRoutesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List order execution routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := buildClient(cmd, flags)
			if err != nil {
				return err
			}
			defer persistToken(client, cfg)

			routes, err := orderexecution.GetRoutes(cmd.Context(), client)
			if err != nil {
				return err
			}
			for _, r := range routes {
				fmt.Printf("%s\t%s\t%v\n", r.ID, r.Name, r.AssetTypes)
			}
			return nil
		},
	}
}
