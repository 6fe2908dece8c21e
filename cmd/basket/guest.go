package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/five82/basket/internal/app"
	"github.com/five82/basket/internal/shop"
)

func newGuestCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guest",
		Short: "Manage lists stored on this device",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "export",
			Short: "Print guest lists as JSON",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(svc.Guest.Load(ctx))
				})
			},
		},
		&cobra.Command{
			Use:   "import <file>",
			Short: "Replace guest lists with the JSON array in file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read %s: %w", args[0], err)
				}
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					var flat []shop.List
					if err := json.Unmarshal(data, &flat); err == nil {
						svc.Guest.SaveAll(ctx, flat)
						pterm.Success.Printf("Stored %d guest list(s)\n", len(flat))
						return nil
					}
					var nested [][]shop.List
					if err := json.Unmarshal(data, &nested); err != nil {
						return fmt.Errorf("decode %s: %w", args[0], err)
					}
					svc.Guest.SaveAllNested(ctx, nested)
					pterm.Success.Printf("Stored %d guest list(s)\n", len(svc.Guest.Load(ctx)))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every guest list on this device",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					svc.Guest.Clear(ctx)
					pterm.Success.Println("Guest lists cleared")
					return nil
				})
			},
		},
	)
	return cmd
}
