package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/checkout/service/checkout"
	"github.com/brojonat/checkout/service/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

// transactionRecord is the CLI's JSON view of a stored transaction.
type transactionRecord struct {
	ID              string    `json:"id"`
	CustomerName    string    `json:"customer_name"`
	CustomerEmail   string    `json:"customer_email"`
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	PaymentIntentID string    `json:"payment_intent_id"`
	Status          string    `json:"status"`
	ProductID       *int64    `json:"product_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int32     `json:"version"`
}

func toTransactionRecord(t *checkout.Transaction) transactionRecord {
	return transactionRecord{
		ID:              t.ID.String(),
		CustomerName:    t.CustomerName,
		CustomerEmail:   t.CustomerEmail,
		Amount:          t.Amount.String(),
		Currency:        t.Currency,
		PaymentIntentID: t.PaymentIntentID,
		Status:          string(t.Status),
		ProductID:       t.ProductID,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		Version:         t.Version,
	}
}

type productRecord struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

func listTransactionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-transactions",
		Usage:   "List transactions, newest first",
		Aliases: []string{"txs"},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "status",
				Aliases: []string{"s"},
				Usage:   "Filter by status (Pending, Succeeded, Failed, Canceled)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of transactions",
				Value:   50,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Skip this many transactions",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression that must evaluate to true (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
		},
		Action: func(c *cli.Context) error {
			status := c.String("status")
			if status != "" && !checkout.Status(status).Valid() {
				return fmt.Errorf("invalid status %q: must be one of Pending, Succeeded, Failed, Canceled", status)
			}

			filter, err := compileFilters(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			txns, err := store.ListTransactions(context.Background(), db.ListTransactionsParams{
				Status: status,
				Limit:  int32(c.Int("limit")),
				Offset: int32(c.Int("offset")),
			})
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			records := make([]transactionRecord, 0, len(txns))
			for _, txn := range txns {
				rec := toTransactionRecord(txn)
				ok, err := filter.Match(rec)
				if err != nil {
					return err
				}
				if ok {
					records = append(records, rec)
				}
			}

			if c.Bool("json") {
				return outputJSON(records)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tAMOUNT\tCUSTOMER\tPAYMENT INTENT\tCREATED")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
					rec.ID,
					rec.Status,
					rec.Amount,
					rec.Currency,
					rec.CustomerEmail,
					rec.PaymentIntentID,
					rec.CreatedAt.Format(time.RFC3339),
				)
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d transactions\n", len(records))
			return nil
		},
	}
}

func getTransactionCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-transaction",
		Usage:     "Get transaction details by id or payment intent id",
		Aliases:   []string{"get"},
		ArgsUsage: "<transaction-id | pi_...>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction id or payment intent id")
			}
			arg := c.Args().First()

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			var txn *checkout.Transaction
			if id, parseErr := uuid.Parse(arg); parseErr == nil {
				txn, err = store.GetTransaction(context.Background(), id)
			} else {
				txn, err = store.GetTransactionByPaymentIntent(context.Background(), arg)
			}
			if err != nil {
				return fmt.Errorf("failed to get transaction: %w", err)
			}

			rec := toTransactionRecord(txn)
			if c.Bool("json") {
				return outputJSON(rec)
			}

			fmt.Printf("ID:             %s\n", rec.ID)
			fmt.Printf("Status:         %s\n", rec.Status)
			fmt.Printf("Amount:         %s %s\n", rec.Amount, rec.Currency)
			fmt.Printf("Customer:       %s <%s>\n", rec.CustomerName, rec.CustomerEmail)
			fmt.Printf("Payment Intent: %s\n", rec.PaymentIntentID)
			if rec.ProductID != nil {
				fmt.Printf("Product:        %d\n", *rec.ProductID)
			} else {
				fmt.Printf("Product:        (none)\n")
			}
			fmt.Printf("Version:        %d\n", rec.Version)
			fmt.Printf("Created:        %s\n", rec.CreatedAt.Format(time.RFC3339))
			fmt.Printf("Updated:        %s\n", rec.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func listProductsCommand() *cli.Command {
	return &cli.Command{
		Name:    "list-products",
		Usage:   "List products",
		Aliases: []string{"products"},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			products, err := store.ListProducts(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list products: %w", err)
			}

			records := make([]productRecord, len(products))
			for i, p := range products {
				records[i] = productRecord{
					ID:          p.ID,
					Name:        p.Name,
					Description: p.Description,
					Price:       p.Price.StringFixed(2),
				}
			}

			if c.Bool("json") {
				return outputJSON(records)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tDESCRIPTION")
			for _, p := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Price, p.Description)
			}
			w.Flush()
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Insert the demonstration product if the catalogue is empty",
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			inserted, err := store.SeedDemoProduct(context.Background())
			if err != nil {
				return fmt.Errorf("failed to seed products: %w", err)
			}
			if inserted {
				fmt.Printf("✓ Inserted %s (id %d)\n", db.DemoProduct.Name, db.DemoProduct.ID)
			} else {
				fmt.Println("Products already present, nothing to do")
			}
			return nil
		},
	}
}

func applySchemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "apply-schema",
		Usage: "Create the products and transactions tables if they do not exist",
		Action: func(c *cli.Context) error {
			pool, err := getPool(c)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.ApplySchema(context.Background(), pool); err != nil {
				return err
			}
			fmt.Println("✓ Schema applied")
			return nil
		},
	}
}

// getPool connects to the database named by --database-url.
func getPool(c *cli.Context) (*pgxpool.Pool, error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Helper function to connect to database
func getStore(c *cli.Context) (*db.Store, func(), error) {
	pool, err := getPool(c)
	if err != nil {
		return nil, nil, err
	}
	return db.NewStore(pool, nil), pool.Close, nil
}

// Helper function to output JSON
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
