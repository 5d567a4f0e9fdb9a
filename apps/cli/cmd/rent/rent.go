// Package rentcmd groups rental workflow helpers for the admin CLI.
package rentcmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/vdgsa/rental-backend/apps/cli/wire"
	"github.com/vdgsa/rental-backend/domains/rentals/be/service"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

const dateLayout = "2006-01-02"

// Command groups rental helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rent",
		Short: "Rental workflow (out, renew, return, history)",
	}

	cmd.AddCommand(outCommand())
	cmd.AddCommand(renewCommand())
	cmd.AddCommand(returnCommand())
	cmd.AddCommand(historyCommand())
	return cmd
}

func violIDArg(args []string) (int64, error) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("viol id must be a positive integer, got %q", args[0])
	}
	return id, nil
}

func parseDate(flag, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD, got %q", flag, raw)
	}
	return t, nil
}

func outCommand() *cobra.Command {
	var (
		databaseURL string
		renterID    int64
		start       string
		end         string
		contract    string
		notes       string
	)

	c := &cobra.Command{
		Use:   "out <viol-id>",
		Short: "Rent an available viol to a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			violID, err := violIDArg(args)
			if err != nil {
				return err
			}
			rentalStart, err := parseDate("start", start)
			if err != nil {
				return err
			}
			rentalEnd, err := parseDate("end", end)
			if err != nil {
				return err
			}

			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			input := service.RentOutInput{
				ViolID:      violID,
				RenterID:    renterID,
				RentalStart: rentalStart,
				RentalEnd:   rentalEnd,
				Notes:       notes,
			}
			if contract != "" {
				input.ContractReference = &contract
			}

			entry, err := svcs.Rentals.RentOut(ctx, input)
			if err != nil {
				return err
			}
			return wire.PrintJSON(entry)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().Int64Var(&renterID, "renter", 0, "member id of the renter")
	c.Flags().StringVar(&start, "start", "", "rental start date (YYYY-MM-DD)")
	c.Flags().StringVar(&end, "end", "", "rental end date (YYYY-MM-DD)")
	c.Flags().StringVar(&contract, "contract", "", "contract reference")
	c.Flags().StringVar(&notes, "notes", "", "ledger notes")
	_ = c.MarkFlagRequired("renter")
	_ = c.MarkFlagRequired("start")
	_ = c.MarkFlagRequired("end")
	return c
}

func renewCommand() *cobra.Command {
	var (
		databaseURL string
		end         string
		notes       string
	)

	c := &cobra.Command{
		Use:   "renew <viol-id>",
		Short: "Extend the current rental to a new end date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			violID, err := violIDArg(args)
			if err != nil {
				return err
			}
			rentalEnd, err := parseDate("end", end)
			if err != nil {
				return err
			}

			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			entry, err := svcs.Rentals.Renew(ctx, violID, rentalEnd, notes)
			if err != nil {
				return err
			}
			return wire.PrintJSON(entry)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&end, "end", "", "new rental end date (YYYY-MM-DD)")
	c.Flags().StringVar(&notes, "notes", "", "ledger notes")
	_ = c.MarkFlagRequired("end")
	return c
}

func returnCommand() *cobra.Command {
	var databaseURL, notes string

	c := &cobra.Command{
		Use:   "return <viol-id>",
		Short: "Take a rented viol back into the available pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			violID, err := violIDArg(args)
			if err != nil {
				return err
			}
			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			entries, err := svcs.Rentals.Return(ctx, violID, notes)
			if err != nil {
				return err
			}
			return wire.PrintJSON(entries)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&notes, "notes", "", "ledger notes")
	return c
}

func historyCommand() *cobra.Command {
	var (
		databaseURL string
		kind        string
		itemID      int64
		personID    int64
		limit       int
	)

	c := &cobra.Command{
		Use:   "history",
		Short: "Show the rental trail for an item or a person",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			switch {
			case personID > 0:
				entries, err := svcs.Rentals.HistoryForPerson(ctx, personID, limit)
				if err != nil {
					return err
				}
				return wire.PrintJSON(entries)
			case itemID > 0:
				k, err := lifecycle.ParseKind(kind)
				if err != nil {
					return err
				}
				entries, err := svcs.Rentals.HistoryForItem(ctx, k, itemID)
				if err != nil {
					return err
				}
				return wire.PrintJSON(entries)
			default:
				return fmt.Errorf("pass --person, or --kind with --item")
			}
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&kind, "kind", "viol", "item kind for --item")
	c.Flags().Int64Var(&itemID, "item", 0, "item id")
	c.Flags().Int64Var(&personID, "person", 0, "member id")
	c.Flags().IntVar(&limit, "limit", 0, "max entries for --person (0 = all)")
	return c
}
