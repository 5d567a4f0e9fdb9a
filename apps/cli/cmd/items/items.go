// Package itemscmd groups inventory helpers for the admin CLI.
package itemscmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vdgsa/rental-backend/apps/cli/wire"
	"github.com/vdgsa/rental-backend/domains/inventory/be/service"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

// Command groups item-related helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Inventory utilities (intake, listing, attachment, end of life)",
	}

	cmd.AddCommand(addCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(availableCommand())
	cmd.AddCommand(attachCommand())
	cmd.AddCommand(detachCommand())
	cmd.AddCommand(retireCommand())
	cmd.AddCommand(deleteCommand())
	cmd.AddCommand(custodianCommand())
	return cmd
}

func parseItemArgs(args []string) (lifecycle.Kind, int64, error) {
	kind, err := lifecycle.ParseKind(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("item id must be a positive integer, got %q", args[1])
	}
	return kind, id, nil
}

func addCommand() *cobra.Command {
	var (
		databaseURL string
		kind        string
		size        string
		vdgsaNumber int64
		strings     int
		maker       string
		provenance  string
		description string
		notes       string
		value       float64
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Register a new item in status new",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			input := service.CreateInput{
				Kind:        kind,
				Size:        size,
				VdgsaNumber: vdgsaNumber,
				Maker:       maker,
				Provenance:  provenance,
				Description: description,
				Notes:       notes,
			}
			if cmd.Flags().Changed("strings") {
				input.Strings = &strings
			}
			if cmd.Flags().Changed("value") {
				input.Value = &value
			}

			item, err := svcs.Inventory.Create(ctx, input)
			if err != nil {
				return err
			}
			return wire.PrintJSON(item)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&kind, "kind", "", "item kind: viol, bow or case")
	c.Flags().StringVar(&size, "size", "", "size, e.g. treble, tenor, bass")
	c.Flags().Int64Var(&vdgsaNumber, "number", 0, "VdGSA number (0 assigns the next one)")
	c.Flags().IntVar(&strings, "strings", 0, "string count (viols only)")
	c.Flags().StringVar(&maker, "maker", "", "maker")
	c.Flags().StringVar(&provenance, "provenance", "", "provenance")
	c.Flags().StringVar(&description, "description", "", "description")
	c.Flags().StringVar(&notes, "notes", "", "notes")
	c.Flags().Float64Var(&value, "value", 0, "insured value")
	_ = c.MarkFlagRequired("kind")
	_ = c.MarkFlagRequired("size")
	return c
}

func listCommand() *cobra.Command {
	var (
		databaseURL string
		kind        string
		filter      string
		size        string
		violSize    string
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List items of one kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			k, err := lifecycle.ParseKind(kind)
			if err != nil {
				return err
			}
			f, err := service.ParseFilter(filter)
			if err != nil {
				return err
			}
			q := service.Query{Kind: k, Filter: f}
			if size != "" {
				sz, err := lifecycle.ParseSize(size)
				if err != nil {
					return err
				}
				q.Size = &sz
			}
			if violSize != "" {
				sz, err := lifecycle.ParseSize(violSize)
				if err != nil {
					return err
				}
				q.ViolSize = &sz
			}

			items, err := svcs.Inventory.List(ctx, q)
			if err != nil {
				return err
			}
			return wire.PrintJSON(items)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&kind, "kind", "", "item kind: viol, bow or case")
	c.Flags().StringVar(&filter, "filter", "all", "all, available, rented, retired, attachable or unattached")
	c.Flags().StringVar(&size, "size", "", "restrict to one size")
	c.Flags().StringVar(&violSize, "viol-size", "", "with --filter attachable: the viol size to fit")
	_ = c.MarkFlagRequired("kind")
	return c
}

func availableCommand() *cobra.Command {
	var databaseURL, notes string

	c := &cobra.Command{
		Use:   "available <kind> <id>",
		Short: "Move a new item into the rental pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			kind, id, err := parseItemArgs(args)
			if err != nil {
				return err
			}
			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			item, err := svcs.Inventory.MarkAvailable(ctx, kind, id, notes)
			if err != nil {
				return err
			}
			return wire.PrintJSON(item)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&notes, "notes", "", "ledger notes")
	return c
}

func attachCommand() *cobra.Command {
	var (
		databaseURL string
		violID      int64
	)

	c := &cobra.Command{
		Use:   "attach <kind> <id>",
		Short: "Attach a bow or case to a viol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			kind, id, err := parseItemArgs(args)
			if err != nil {
				return err
			}
			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			if err := svcs.Inventory.Attach(ctx, kind, id, violID); err != nil {
				return err
			}
			fmt.Printf("%s %d attached to viol %d\n", kind, id, violID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().Int64Var(&violID, "viol", 0, "viol id to attach to")
	_ = c.MarkFlagRequired("viol")
	return c
}

func detachCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "detach <kind> <id>",
		Short: "Detach a bow or case from its viol",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			kind, id, err := parseItemArgs(args)
			if err != nil {
				return err
			}
			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			if err := svcs.Inventory.Detach(ctx, kind, id); err != nil {
				return err
			}
			fmt.Printf("%s %d detached\n", kind, id)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	return c
}

func retireCommand() *cobra.Command {
	var databaseURL, reason string

	c := &cobra.Command{
		Use:   "retire <kind> <id>",
		Short: "Retire an item (a viol's attachments retire with it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			kind, id, err := parseItemArgs(args)
			if err != nil {
				return err
			}
			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			if err := svcs.Inventory.Retire(ctx, kind, id, reason); err != nil {
				return err
			}
			fmt.Printf("%s %d retired\n", kind, id)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&reason, "reason", "", "retirement reason for the ledger")
	return c
}

func deleteCommand() *cobra.Command {
	var databaseURL, notes string

	c := &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Soft-delete a mistakenly created item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			kind, id, err := parseItemArgs(args)
			if err != nil {
				return err
			}
			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			if err := svcs.Inventory.SoftDelete(ctx, kind, id, notes); err != nil {
				return err
			}
			fmt.Printf("%s %d deleted\n", kind, id)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&notes, "notes", "", "ledger notes")
	return c
}

func custodianCommand() *cobra.Command {
	var (
		databaseURL string
		personID    int64
		clear       bool
	)

	c := &cobra.Command{
		Use:   "custodian <kind> <id>",
		Short: "Record who physically holds an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			kind, id, err := parseItemArgs(args)
			if err != nil {
				return err
			}
			if !clear && personID <= 0 {
				return fmt.Errorf("pass --person or --clear")
			}
			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			var custodian *int64
			if !clear {
				custodian = &personID
			}
			if err := svcs.Inventory.ChangeCustodian(ctx, kind, id, custodian); err != nil {
				return err
			}
			fmt.Printf("%s %d custodian updated\n", kind, id)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().Int64Var(&personID, "person", 0, "custodian person id")
	c.Flags().BoolVar(&clear, "clear", false, "clear the custodian")
	return c
}
