// Package waitcmd groups waiting-list helpers for the admin CLI.
package waitcmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vdgsa/rental-backend/apps/cli/wire"
	"github.com/vdgsa/rental-backend/domains/waitlist/be/service"
	"github.com/vdgsa/rental-backend/platform/go/lifecycle"
)

// Command groups waiting-list helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Waiting list (enqueue, list, fulfill, cancel)",
	}

	cmd.AddCommand(addCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(fulfillCommand())
	cmd.AddCommand(cancelCommand())
	return cmd
}

func entryIDArg(args []string) (int64, error) {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("entry id must be a positive integer, got %q", args[0])
	}
	return id, nil
}

func addCommand() *cobra.Command {
	var (
		databaseURL string
		size        string
		firstName   string
		lastName    string
		email       string
		phone       string
		notes       string
		violID      int64
	)

	c := &cobra.Command{
		Use:   "add",
		Short: "Record a request for a viol size",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			input := service.EnqueueInput{
				Size:      size,
				FirstName: firstName,
				LastName:  lastName,
				Email:     email,
				Phone:     phone,
				Notes:     notes,
			}
			if violID > 0 {
				input.ViolID = &violID
			}

			entry, err := svcs.Waitlist.Enqueue(ctx, input)
			if err != nil {
				return err
			}
			return wire.PrintJSON(entry)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&size, "size", "", "requested viol size")
	c.Flags().StringVar(&firstName, "first-name", "", "requester first name")
	c.Flags().StringVar(&lastName, "last-name", "", "requester last name")
	c.Flags().StringVar(&email, "email", "", "requester email")
	c.Flags().StringVar(&phone, "phone", "", "requester phone")
	c.Flags().StringVar(&notes, "notes", "", "notes")
	c.Flags().Int64Var(&violID, "viol", 0, "pin the request to a specific viol (reserves it)")
	_ = c.MarkFlagRequired("size")
	_ = c.MarkFlagRequired("first-name")
	_ = c.MarkFlagRequired("last-name")
	_ = c.MarkFlagRequired("email")
	return c
}

func listCommand() *cobra.Command {
	var databaseURL, size string

	c := &cobra.Command{
		Use:   "list",
		Short: "List open requests first-come-first-served",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			var sz *lifecycle.Size
			if size != "" {
				parsed, err := lifecycle.ParseSize(size)
				if err != nil {
					return err
				}
				sz = &parsed
			}

			entries, err := svcs.Waitlist.ListOpen(ctx, sz)
			if err != nil {
				return err
			}
			return wire.PrintJSON(entries)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().StringVar(&size, "size", "", "restrict to one requested size")
	return c
}

func fulfillCommand() *cobra.Command {
	var (
		databaseURL string
		violID      int64
	)

	c := &cobra.Command{
		Use:   "fulfill <entry-id>",
		Short: "Match an open request with an available viol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			entryID, err := entryIDArg(args)
			if err != nil {
				return err
			}
			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			entry, err := svcs.Waitlist.Fulfill(ctx, entryID, violID)
			if err != nil {
				return err
			}
			return wire.PrintJSON(entry)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	c.Flags().Int64Var(&violID, "viol", 0, "viol id to match")
	_ = c.MarkFlagRequired("viol")
	return c
}

func cancelCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "cancel <entry-id>",
		Short: "Close an open request, releasing any reserved viol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			entryID, err := entryIDArg(args)
			if err != nil {
				return err
			}
			svcs, err := wire.Open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer svcs.Close()

			if err := svcs.Waitlist.Cancel(ctx, entryID); err != nil {
				return err
			}
			fmt.Printf("waitlist entry %d cancelled\n", entryID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to DATABASE_URL)")
	return c
}
