package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	showStation stationFlag
	showFilter  string

	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Fetch a station's departures once and print the board",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.resolve(); err != nil {
				return err
			}
			f, err := parseFilter(showFilter)
			if err != nil {
				return err
			}
			st := showStation.Station
			if st.Name == "" {
				st = DefaultStation()
			}

			source, err := newSource(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout)
			defer cancel()

			fmt.Fprintf(os.Stderr, "Fetching live departures for %s...\n", st.Name)
			data, err := source.Fetch(ctx, st)
			if err != nil {
				return err
			}
			styled := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
			renderBoard(os.Stdout, buildBoard(st, false, "", data, f), styled)
			return nil
		},
	}

	stationsCmd = &cobra.Command{
		Use:   "stations",
		Short: "List the known stations",
		Run: func(cmd *cobra.Command, args []string) {
			for _, st := range Stations() {
				fmt.Printf("%-4s %s\n", st.Code, st.Name)
			}
		},
	}
)

func init() {
	showCmd.Flags().VarP(&showStation, "station", "s", "Station name or code")
	showCmd.Flags().StringVarP(&showFilter, "filter", "f", "ALL", "Transport filter (ALL, TRAIN, TUBE, TRAM)")
	rootCmd.AddCommand(showCmd, stationsCmd)
}

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	destStyle  = lipgloss.NewStyle().Bold(true)
	metaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	toneStyles = map[StatusTone]lipgloss.Style{
		ToneGood: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		ToneWarn: lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		ToneBad:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		ToneInfo: lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
	}
)

// renderBoard prints a board; styled=false writes plain text for pipes.
func renderBoard(w io.Writer, b Board, styled bool) {
	render := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	updated := "Never"
	if b.Data != nil {
		updated = b.Data.LastUpdated
	}
	header := b.Station.Name
	if b.Station.Code != "" {
		header += " (" + b.Station.Code + ")"
	}
	fmt.Fprintf(w, "%s  %s\n", render(titleStyle, header), render(metaStyle, "UPDATED: "+updated))
	if b.ShowFilters {
		names := make([]string, 0, len(b.Filters))
		for _, f := range b.Filters {
			if f == b.Filter {
				names = append(names, "["+string(f)+"]")
			} else {
				names = append(names, string(f))
			}
		}
		fmt.Fprintln(w, render(metaStyle, strings.Join(names, "  ")))
	}
	fmt.Fprintln(w)

	if len(b.Departures) == 0 {
		fmt.Fprintf(w, "No services currently scheduled from %s.\n", b.Station.Name)
	}
	for _, d := range b.Departures {
		status := d.Status
		if d.ETA != "" {
			status += " (exp " + d.ETA + ")"
		}
		fmt.Fprintf(w, "%s  %-5s %s\n      %s  %s\n",
			render(timeStyle, d.Time),
			string(d.Type),
			render(destStyle, d.Destination),
			render(metaStyle, d.Operator+" • Platform "+d.PlatformLabel),
			render(toneStyles[statusTone(d.Status)], status),
		)
	}

	if b.Data != nil && len(b.Data.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, render(metaStyle, "Sources:"))
		for _, s := range b.Data.Sources {
			fmt.Fprintf(w, "  %s <%s>\n", s.Title, s.URI)
		}
	}
}
