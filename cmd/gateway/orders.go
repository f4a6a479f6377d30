package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"orders-gateway/internal/aggregator"
	"orders-gateway/internal/exchange"
)

func newOrdersCmd() *cobra.Command {
	var (
		sortByDatetime bool
		format         string
	)

	cmd := &cobra.Command{
		Use:   "orders <wallet> <symbol>",
		Short: "Aggregate one wallet's orders for a symbol (e.g. BTC-USDT)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithTimeout(context.Background(), rt.cfg.Server.RequestTimeout)
			defer cancel()

			var opts aggregator.Options
			if cmd.Flags().Changed("sort") {
				opts.SortByDatetime = &sortByDatetime
			}
			result, err := rt.app.Aggregator().AggregateOrders(ctx, args[0], args[1], opts)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]aggregator.Result{"response": result})
			}
			renderResult(os.Stdout, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&sortByDatetime, "sort", false, "sort orders by datetime ascending (default from aggregator.sort_by_datetime)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	return cmd
}

func renderResult(w io.Writer, result aggregator.Result) {
	fmt.Fprintf(w, "Open orders: %d, closed orders: %d\n\n", len(result.OpenOrders), len(result.ClosedOrders))

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Exchange", "ID", "Symbol", "Status", "Side", "Type", "Price", "Amount", "Filled", "Datetime"}),
	)
	for _, orders := range [][]exchange.Order{result.OpenOrders, result.ClosedOrders} {
		for _, o := range orders {
			datetime := ""
			if o.Datetime != nil {
				datetime = o.Datetime.Format(time.RFC3339)
			}
			table.Append([]string{
				o.Exchange,
				o.ID,
				o.Symbol,
				o.RawStatus,
				o.Side,
				o.Type,
				o.Price.String(),
				o.Amount.String(),
				o.Filled.String(),
				datetime,
			})
		}
	}
	table.Render()

	for _, name := range result.Skipped {
		fmt.Fprintf(w, "skipped: %s (symbol not listed)\n", name)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "error: %s [%s] %s\n", e.Exchange, e.Kind, e.Message)
	}
}
