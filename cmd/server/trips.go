package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/residency-engine/calendar"
	"github.com/warp/residency-engine/generic"
	"github.com/warp/residency-engine/locale"
	"github.com/warp/residency-engine/residency"
)

// =============================================================================
// ACCOUNTING COMMANDS
// =============================================================================

func statusCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show days present in the trailing year",
		RunE: func(cmd *cobra.Command, args []string) error {
			book, store, err := openBook()
			if err != nil {
				return err
			}
			defer store.Close()

			loc, err := localizer()
			if err != nil {
				return err
			}

			ref := book.Today()
			if strings.TrimSpace(date) != "" {
				if ref, err = generic.ParseTimePoint(date); err != nil {
					return errors.New(loc.Error(err))
				}
			}

			status, err := book.StatusOn(cmd.Context(), ref)
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), loc, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default: today)")
	return cmd
}

func checkCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether departing on a date keeps the permit safe",
		RunE: func(cmd *cobra.Command, args []string) error {
			book, store, err := openBook()
			if err != nil {
				return err
			}
			defer store.Close()

			loc, err := localizer()
			if err != nil {
				return err
			}

			candidate, err := generic.ParseTimePoint(date)
			if err != nil {
				return errors.New(loc.Error(err))
			}

			verdict, err := book.CheckDeparture(cmd.Context(), candidate)
			if err != nil {
				return err
			}
			printVerdict(cmd.OutOrStdout(), loc, verdict)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Planned departure date YYYY-MM-DD")
	cmd.MarkFlagRequired("date")
	return cmd
}

// =============================================================================
// TRIP COMMANDS
// =============================================================================

func tripsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Manage stored trips",
	}
	cmd.AddCommand(tripsListCmd(), tripsAddCmd(), tripsDeleteCmd(), tripsExportCmd())
	return cmd
}

func tripsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored trips",
		RunE: func(cmd *cobra.Command, args []string) error {
			book, store, err := openBook()
			if err != nil {
				return err
			}
			defer store.Close()

			loc, err := localizer()
			if err != nil {
				return err
			}

			trips, err := book.Trips(cmd.Context())
			if err != nil {
				return err
			}
			printTrips(cmd.OutOrStdout(), loc, trips)
			return nil
		},
	}
}

func tripsAddCmd() *cobra.Command {
	var departure, arrival string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a trip abroad",
		RunE: func(cmd *cobra.Command, args []string) error {
			book, store, err := openBook()
			if err != nil {
				return err
			}
			defer store.Close()

			loc, err := localizer()
			if err != nil {
				return err
			}

			added, err := book.AddTrips(cmd.Context(),
				[]residency.TripDraft{{Departure: departure, Arrival: arrival}},
				residency.SourceManual)
			if err != nil {
				if generic.IsClientError(err) {
					return errors.New(loc.Error(err))
				}
				return err
			}
			if len(added) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Trip already recorded")
				return nil
			}
			printTrips(cmd.OutOrStdout(), loc, added)
			return nil
		},
	}

	cmd.Flags().StringVar(&departure, "departure", "", "Departure date YYYY-MM-DD (first day abroad)")
	cmd.Flags().StringVar(&arrival, "arrival", "", "Arrival date YYYY-MM-DD (first day back)")
	cmd.MarkFlagRequired("departure")
	cmd.MarkFlagRequired("arrival")
	return cmd
}

func tripsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, store, err := openBook()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := book.DeleteTrip(cmd.Context(), residency.TripID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func tripsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write stored trips as an iCalendar feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			book, store, err := openBook()
			if err != nil {
				return err
			}
			defer store.Close()

			trips, err := book.Trips(cmd.Context())
			if err != nil {
				return err
			}
			body, err := calendar.Exporter{}.Encode(trips, book.Today().Time)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func printStatus(w io.Writer, loc *locale.Localizer, s residency.Status) {
	fmt.Fprintln(w, loc.T(locale.MsgStatusHeading, map[string]any{"Date": s.AsOf.Display()}))
	fmt.Fprintln(w, strings.Repeat("=", 40))
	fmt.Fprintf(w, "  Window:       %s .. %s (%d days)\n",
		s.Window.Start.Display(), s.Window.End.AddDays(-1).Display(), s.PeriodDays)
	fmt.Fprintf(w, "  Days abroad:  %d\n", s.DaysOut)
	fmt.Fprintf(w, "  Days present: %d\n", s.DaysIn)
	fmt.Fprintf(w, "  Days needed:  %d\n", s.DaysNeeded)
	fmt.Fprintln(w)
	fmt.Fprintln(w, loc.T(locale.MsgStatusFootnote, map[string]any{
		"Country":    cfg.Residency.Country,
		"PeriodDays": s.PeriodDays,
		"Threshold":  residency.Threshold,
	}))
}

func printVerdict(w io.Writer, loc *locale.Localizer, v residency.Verdict) {
	data := map[string]any{"Date": v.Departure.Display(), "Threshold": residency.Threshold}
	if v.Safe {
		fmt.Fprintln(w, "✅ "+loc.T(locale.MsgVerdictSafe, data))
		return
	}
	fmt.Fprintln(w, "⚠️  "+loc.T(locale.MsgVerdictUnsafe, data))
	if !v.FirstViolation.IsZero() {
		fmt.Fprintln(w, "   "+loc.T(locale.MsgVerdictViolation, map[string]any{
			"Threshold":  residency.Threshold,
			"Violation":  v.FirstViolation.Display(),
			"DaysAbroad": v.DaysAbroadBeforeViolation,
		}))
	}
}

func printTrips(w io.Writer, loc *locale.Localizer, trips []residency.Trip) {
	if len(trips) == 0 {
		fmt.Fprintln(w, "No trips recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEPARTURE\tARRIVAL\tDURATION")
	for _, t := range trips {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			t.ID, t.Departure.Display(), t.Arrival.Display(),
			loc.T(locale.MsgTripDuration, map[string]any{"Days": t.DurationDays()}))
	}
	tw.Flush()
}
