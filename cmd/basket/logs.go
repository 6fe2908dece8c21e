package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/five82/basket/internal/config"
	"github.com/five82/basket/internal/logtail"
)

func newLogsCmd(flags *globalFlags) *cobra.Command {
	var (
		lines int
		level string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the end of the UI log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var min slog.Level
			if err := min.UnmarshalText([]byte(level)); err != nil {
				return fmt.Errorf("invalid --level %q", level)
			}
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			raw, err := logtail.Read(cfg.LogPath(), lines)
			if err != nil {
				return err
			}
			entries := logtail.Filter(raw, min)
			if len(entries) == 0 {
				pterm.Info.Printf("No log entries in %s\n", cfg.LogPath())
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(cmd.OutOrStdout(), formatEntry(e))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "number of lines to read from the end of the file")
	cmd.Flags().StringVar(&level, "level", "info", "minimum level (debug, info, warn, error)")
	return cmd
}

func formatEntry(e logtail.Entry) string {
	if e.Time.IsZero() {
		return e.Raw
	}
	var b strings.Builder
	b.WriteString(pterm.Gray(e.Time.Format("15:04:05")))
	b.WriteByte(' ')
	b.WriteString(levelStyle(e.Level).Sprint(fmt.Sprintf("%-5s", e.Level.String())))
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(pterm.Cyan(a.Key + "="))
		b.WriteString(a.Value)
	}
	return b.String()
}

func levelStyle(l slog.Level) *pterm.Style {
	switch {
	case l >= slog.LevelError:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	case l >= slog.LevelWarn:
		return pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	case l >= slog.LevelInfo:
		return pterm.NewStyle(pterm.FgGreen)
	default:
		return pterm.NewStyle(pterm.FgLightBlue)
	}
}
