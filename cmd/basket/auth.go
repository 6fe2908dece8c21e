package main

import (
	"context"
	"errors"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/five82/basket/internal/app"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mode, storage and session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
				sess := svc.Session.Snapshot()
				pterm.DefaultSection.Println("Basket")
				pterm.Info.Printf("Mode: %s (%s)\n", svc.Config.Mode, svc.Client.BaseURL())
				pterm.Info.Printf("Guest storage: %s %s\n", svc.Config.Storage, svc.Config.StoragePath)

				if sess.Authenticated() && sess.Actor != nil {
					pterm.Success.Printf("Signed in as %s\n", sess.Actor.Email)
				} else {
					pterm.Warning.Println("Not signed in, using guest lists")
				}
				pterm.Info.Printf("Guest lists on this device: %d\n", len(svc.Guest.Load(ctx)))
				return nil
			})
		},
	}
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and move guest lists into the account",
		Long: `Signs in with --email and --password. Lists created as a guest are
imported into the account and removed from this device.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.email == "" {
				return errors.New("--email is required")
			}
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
				sess := svc.Session.Snapshot()
				if !sess.Authenticated() {
					return errors.New("not signed in")
				}
				pterm.Success.Printf("Signed in as %s\n", flags.email)
				if left := len(svc.Guest.Load(ctx)); left > 0 {
					pterm.Warning.Printf("%d guest list(s) could not be imported and stay on this device\n", left)
				}
				return nil
			})
		},
	}
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the server session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc *app.Services) error {
				if !svc.Session.Snapshot().Authenticated() {
					pterm.Info.Println("Not signed in")
					return nil
				}
				svc.Session.Logout(ctx)
				pterm.Success.Println("Signed out")
				return nil
			})
		},
	}
}
