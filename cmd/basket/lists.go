package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/five82/basket/internal/app"
	"github.com/five82/basket/internal/lists"
	"github.com/five82/basket/internal/shop"
	"github.com/five82/basket/internal/ui"
)

func newListsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show and manage shopping lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
				all, err := svc.Lists.Lists(ctx)
				if err != nil {
					return fmt.Errorf("load lists: %s", ui.DescribeError(err))
				}
				if len(all) == 0 {
					pterm.Info.Println("No lists yet")
					return nil
				}
				table := pterm.TableData{{"ID", "NAME", "ITEMS"}}
				for _, l := range all {
					table = append(table, []string{l.ID.String(), l.Name, strconv.FormatInt(l.ItemsCount, 10)})
				}
				return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a list",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					saved, err := svc.Lists.SaveList(ctx, shop.List{Name: strings.Join(args, " ")})
					if err != nil {
						return fmt.Errorf("create list: %s", ui.DescribeError(err))
					}
					pterm.Success.Printf("Created %s (%s)\n", saved.Name, saved.ID)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rename <list-id> <name>",
			Short: "Rename a list",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					list := shop.List{ID: shop.ID(args[0]), Name: strings.Join(args[1:], " ")}
					saved, err := svc.Lists.SaveList(ctx, list)
					if err != nil {
						return fmt.Errorf("rename list: %s", ui.DescribeError(err))
					}
					pterm.Success.Printf("Renamed to %s\n", saved.Name)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm <list-id>",
			Short: "Delete a list",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					if err := svc.Lists.DeleteList(ctx, shop.ID(args[0])); err != nil {
						return fmt.Errorf("delete list: %s", ui.DescribeError(err))
					}
					pterm.Success.Printf("Deleted %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "share <list-id> <email>",
			Short: "Share a list with another account",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					if err := svc.Lists.ShareList(ctx, shop.ID(args[0]), args[1]); err != nil {
						return fmt.Errorf("share list: %s", ui.DescribeError(err))
					}
					pterm.Success.Printf("Shared %s with %s\n", args[0], args[1])
					return nil
				})
			},
		},
	)
	return cmd
}

func newItemsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items <list-id>",
		Short: "Show and manage the items of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
				items, err := svc.Lists.Items(ctx, shop.ID(args[0]))
				if err != nil {
					return fmt.Errorf("load items: %s", ui.DescribeError(err))
				}
				if len(items) == 0 {
					pterm.Info.Println("Nothing to buy")
					return nil
				}
				table := pterm.TableData{{"ID", "NAME", "COUNT", "PURCHASED"}}
				for _, it := range items {
					done := ""
					if it.Purchased {
						done = "yes"
					}
					table = append(table, []string{it.ID.String(), it.Name, strconv.FormatFloat(it.Count, 'f', -1, 64), done})
				}
				return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
			})
		},
	}

	var count float64
	add := &cobra.Command{
		Use:   "add <list-id> <name>",
		Short: "Add an item",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
				item := shop.Item{Name: strings.Join(args[1:], " "), Count: count}
				saved, err := svc.Lists.SaveItem(ctx, shop.ID(args[0]), item)
				if err != nil {
					return fmt.Errorf("add item: %s", ui.DescribeError(err))
				}
				pterm.Success.Printf("Added %s (%s)\n", saved.Name, saved.ID)
				return nil
			})
		},
	}
	add.Flags().Float64Var(&count, "count", 1, "quantity to buy")

	cmd.AddCommand(
		add,
		&cobra.Command{
			Use:   "toggle <list-id> <item-id>",
			Short: "Flip the purchased flag of an item",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					item, err := svc.Lists.TogglePurchased(ctx, shop.ID(args[0]), shop.ID(args[1]))
					if err != nil {
						return fmt.Errorf("toggle item: %s", ui.DescribeError(err))
					}
					pterm.Success.Printf("%s purchased: %t\n", item.Name, item.Purchased)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm <list-id> <item-id>",
			Short: "Delete an item",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					if err := svc.Lists.DeleteItem(ctx, shop.ID(args[0]), shop.ID(args[1])); err != nil {
						return fmt.Errorf("delete item: %s", ui.DescribeError(err))
					}
					pterm.Success.Printf("Deleted %s\n", args[1])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "image <list-id> <item-id> <file>",
			Short: "Attach a picture to an item",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
					if !svc.Session.Snapshot().Authenticated() {
						return fmt.Errorf("attach image: %s", ui.DescribeError(lists.ErrGuestUnsupported))
					}
					f, err := os.Open(args[2])
					if err != nil {
						return fmt.Errorf("open image: %w", err)
					}
					defer f.Close()

					img, err := svc.Client.PutItemImage(ctx, shop.ID(args[0]), shop.ID(args[1]), filepath.Base(args[2]), f)
					if err != nil {
						return fmt.Errorf("attach image: %s", ui.DescribeError(err))
					}
					pterm.Success.Printf("Uploaded image %s\n", img.URL)
					return nil
				})
			},
		},
	)
	return cmd
}
