package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/five82/basket/internal/app"
	"github.com/five82/basket/internal/config"
	"github.com/five82/basket/internal/prefs"
	"github.com/five82/basket/internal/shop"
	"github.com/five82/basket/internal/ui"
)

const (
	envEmail    = "BASKET_EMAIL"
	envPassword = "BASKET_PASSWORD"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	prefsPath  string
	debug      bool
	email      string
	password   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	var pollSeconds int

	root := &cobra.Command{
		Use:   "basket",
		Short: "Shopping lists in the terminal",
		Long: `basket keeps shopping lists locally while you are a guest and moves
them into your account when you sign in. Run without arguments to open the
interactive UI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.email == "" {
				flags.email = os.Getenv(envEmail)
			}
			if flags.password == "" {
				flags.password = os.Getenv(envPassword)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), app.Options{
				ConfigPath: flags.configPath,
				PrefsPath:  flags.prefsPath,
				PollEvery:  pollSeconds,
				Debug:      flags.debug,
			})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.config/basket/config.toml)")
	pf.StringVar(&flags.prefsPath, "prefs", "", "preferences file (default ~/.config/basket/prefs.toml)")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&flags.email, "email", "", "sign in with this email (also "+envEmail+")")
	pf.StringVar(&flags.password, "password", "", "password for --email (also "+envPassword+")")
	root.Flags().IntVar(&pollSeconds, "poll", 0, "list refresh interval in seconds (default from config)")

	root.AddCommand(
		newStatusCmd(flags),
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newListsCmd(flags),
		newItemsCmd(flags),
		newGuestCmd(flags),
		newLogsCmd(flags),
		newServeCmd(flags),
	)
	return root
}

// withServices builds the application graph, resolves the session and signs
// in when credentials were given, then runs fn.
func withServices(ctx context.Context, flags *globalFlags, fn func(context.Context, *app.Services) error) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.Build(ctx, cfg, cliLogger(flags.debug))
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	svc.Session.Bootstrap(ctx)
	if flags.email != "" && !svc.Session.Snapshot().Authenticated() {
		if err := signIn(ctx, flags, svc); err != nil {
			return err
		}
	}
	return fn(ctx, svc)
}

func signIn(ctx context.Context, flags *globalFlags, svc *app.Services) error {
	if flags.password == "" {
		return errors.New("--password is required with --email")
	}
	if _, err := svc.Session.Login(ctx, shop.Credentials{Email: flags.email, Password: flags.password}); err != nil {
		return fmt.Errorf("sign in: %s", ui.DescribeError(err))
	}
	// Guest lists move in the background; commands expect the result.
	svc.Session.Wait()
	if err := prefs.Update(flags.prefsPath, func(p *prefs.Prefs) { p.LastEmail = flags.email }); err != nil {
		svc.Logger.Warn("save last email failed", "error", err)
	}
	return nil
}

func cliLogger(debug bool) *slog.Logger {
	if debug {
		return app.NewLogger(os.Stderr, true)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
