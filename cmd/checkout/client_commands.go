package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/brojonat/checkout/client"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with the checkout service",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   60 * time.Second,
				Usage:   "HTTP request timeout",
			},
		},
		Subcommands: []*cli.Command{
			createIntentCommand(),
			verifyCommand(),
			getCommand(),
		},
	}
}

func newAPIClient(c *cli.Context) *client.Client {
	// Only errors to stderr
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	httpClient := &http.Client{Timeout: c.Duration("timeout")}
	return client.NewClient(c.String("server-url"), httpClient, logger)
}

func createIntentCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-intent",
		Usage: "Start a checkout: open a payment intent and a pending transaction",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Customer name",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Customer email",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "amount",
				Usage: "Amount to charge in major units (e.g. 10.00); mutually exclusive with --product",
			},
			&cli.Int64Flag{
				Name:  "product",
				Usage: "Product id to purchase; mutually exclusive with --amount",
			},
		},
		Action: func(c *cli.Context) error {
			req := client.CheckoutRequest{
				CustomerName:  c.String("name"),
				CustomerEmail: c.String("email"),
			}
			if c.IsSet("amount") {
				amount, err := decimal.NewFromString(c.String("amount"))
				if err != nil {
					return fmt.Errorf("invalid --amount %q: %w", c.String("amount"), err)
				}
				req.Amount = &amount
			}
			if c.IsSet("product") {
				id := c.Int64("product")
				req.ProductID = &id
			}

			intent, err := newAPIClient(c).CreatePaymentIntent(context.Background(), req)
			if err != nil {
				return fmt.Errorf("failed to create payment intent: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(intent)
			}
			fmt.Printf("Transaction:   %s\n", intent.TransactionID)
			fmt.Printf("Client Secret: %s\n", intent.ClientSecret)
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Reconcile a transaction with the payment processor",
		ArgsUsage: "<transaction-id> <payment-intent-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "require-success",
				Usage: "Exit non-zero unless the status is Succeeded",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires exactly two arguments: transaction id and payment intent id")
			}

			v, err := newAPIClient(c).VerifyPayment(context.Background(), c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("failed to verify payment: %w", err)
			}

			if c.Bool("json") {
				if err := outputJSON(v); err != nil {
					return err
				}
			} else {
				fmt.Printf("Transaction: %s\n", v.TransactionID)
				fmt.Printf("Status:      %s\n", v.Status)
			}

			if c.Bool("require-success") && v.Status != "Succeeded" {
				return cli.Exit(fmt.Sprintf("payment not successful: %s", v.Status), 2)
			}
			return nil
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a transaction from the server",
		ArgsUsage: "<transaction-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times); exits non-zero otherwise",
				Aliases: []string{"jq"},
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction id")
			}

			filter, err := compileFilters(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}

			txn, err := newAPIClient(c).GetTransaction(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get transaction: %w", err)
			}

			if c.Bool("json") {
				if err := outputJSON(txn); err != nil {
					return err
				}
			} else {
				printTransactionDetailed(txn)
			}

			ok, err := filter.Match(txn)
			if err != nil {
				return err
			}
			if !ok {
				return cli.Exit("transaction did not match --must-jq filters", 2)
			}
			return nil
		},
	}
}

func printTransactionDetailed(txn *client.Transaction) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Transaction:    %s\n", txn.TransactionID)
	fmt.Printf("Status:         %s\n", txn.Status)
	fmt.Printf("Amount:         %s %s\n", txn.Amount, txn.Currency)
	fmt.Printf("Customer:       %s <%s>\n", txn.CustomerName, txn.CustomerEmail)
	fmt.Printf("Payment Intent: %s\n", txn.PaymentIntentID)
	if txn.ProductID != nil {
		fmt.Printf("Product:        %d\n", *txn.ProductID)
	}
	fmt.Printf("Created:        %s\n", txn.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:        %s\n", txn.UpdatedAt.Format(time.RFC3339))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}
