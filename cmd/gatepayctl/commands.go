package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"gatepay/internal/models"
	"gatepay/internal/presenter"
	"gatepay/internal/services/payment"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// cobraContext carries the persistent flags to the service factory.
type cobraContext struct {
	ctx     context.Context
	gateway string
	verbose bool
}

type serviceFactory func(*cobraContext) (payment.Service, func(), error)

type cli struct {
	open serviceFactory
	out  io.Writer
	opts cobraContext
}

func newRootCmd(open serviceFactory, out io.Writer) *cobra.Command {
	c := &cli{open: open, out: out}

	rootCmd := &cobra.Command{
		Use:           "gatepayctl",
		Short:         "Operate on payment gateway instruments and operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&c.opts.gateway, "gateway", "g", "", "Gateway name (default gateway when empty)")
	rootCmd.PersistentFlags().BoolVarP(&c.opts.verbose, "verbose", "v", false, "Log gateway calls to stdout")

	rootCmd.AddCommand(c.gatewaysCmd())
	rootCmd.AddCommand(c.capabilitiesCmd())
	rootCmd.AddCommand(c.instrumentCmd())
	rootCmd.AddCommand(c.operationCmd())
	return rootCmd
}

// with opens the service for the duration of fn.
func (c *cli) with(cmd *cobra.Command, fn func(ctx context.Context, svc payment.Service) error) error {
	c.opts.ctx = cmd.Context()
	if c.opts.ctx == nil {
		c.opts.ctx = context.Background()
	}
	svc, cleanup, err := c.open(&c.opts)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(c.opts.ctx, svc)
}

func (c *cli) print(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

// printResult prints res and turns a declined result into an error so the
// exit status reflects it.
func (c *cli) printResult(res *models.Result) error {
	if err := c.print(presenter.FromResult(res)); err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("gateway rejected the request")
	}
	return nil
}

func (c *cli) gatewaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateways",
		Short: "List configured gateways",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc payment.Service) error {
				for _, name := range svc.Gateways() {
					fmt.Fprintln(c.out, name)
				}
				return nil
			})
		},
	}
}

func (c *cli) capabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Show which features the gateway supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc payment.Service) error {
				caps, err := svc.Capabilities(ctx, c.opts.gateway)
				if err != nil {
					return err
				}
				features := make([]string, 0, len(caps))
				for f := range caps {
					features = append(features, string(f))
				}
				sort.Strings(features)

				w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
				for _, f := range features {
					fmt.Fprintf(w, "%s\t%t\n", f, caps[models.Feature(f)])
				}
				return w.Flush()
			})
		},
	}
}

func (c *cli) instrumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instrument",
		Short: "Inspect or delete stored cards",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show a stored card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc payment.Service) error {
				in, err := svc.LookupInstrument(ctx, c.opts.gateway, args[0])
				if err != nil {
					return err
				}
				return c.print(presenter.FromInstrument(in))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a stored card from the gateway vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc payment.Service) error {
				res, err := svc.DeleteInstrument(ctx, c.opts.gateway, args[0])
				if err != nil {
					return err
				}
				return c.printResult(res)
			})
		},
	})
	return cmd
}

func (c *cli) operationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operation",
		Short: "Inspect, capture, refund or void transactions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [id]",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc payment.Service) error {
				op, err := svc.LookupOperation(ctx, c.opts.gateway, args[0])
				if err != nil {
					return err
				}
				return c.print(presenter.FromOperation(op))
			})
		},
	})
	cmd.AddCommand(c.operationAction("capture", "Capture an authorized transaction", payment.Service.Capture))
	cmd.AddCommand(c.operationAction("void", "Void an authorized or settling transaction", payment.Service.Void))

	var amount string
	refund := &cobra.Command{
		Use:   "refund [id]",
		Short: "Refund a settled transaction in full, or partially with --amount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var partial decimal.NullDecimal
			if amount != "" {
				d, err := decimal.NewFromString(amount)
				if err != nil || !d.IsPositive() {
					return fmt.Errorf("invalid amount %q", amount)
				}
				partial = decimal.NewNullDecimal(d)
			}
			return c.with(cmd, func(ctx context.Context, svc payment.Service) error {
				res, err := svc.Refund(ctx, c.opts.gateway, args[0], partial)
				if err != nil {
					return err
				}
				return c.printResult(res)
			})
		},
	}
	refund.Flags().StringVarP(&amount, "amount", "a", "", "Partial refund amount")
	cmd.AddCommand(refund)
	return cmd
}

func (c *cli) operationAction(name, short string, action func(payment.Service, context.Context, string, string) (*models.Result, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.with(cmd, func(ctx context.Context, svc payment.Service) error {
				res, err := action(svc, ctx, c.opts.gateway, args[0])
				if err != nil {
					return err
				}
				return c.printResult(res)
			})
		},
	}
}
