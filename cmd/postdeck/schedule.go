package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/postdeck/internal/api"
)

// whenLayouts are tried in order after RFC 3339.
var whenLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseWhen reads a posting time in RFC 3339 or as a local "YYYY-MM-DD HH:MM".
// A bare date means 09:00 that day.
func parseWhen(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range whenLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if layout == dayLayout {
			t = t.Add(9 * time.Hour)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use \"YYYY-MM-DD HH:MM\" or RFC 3339", s)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Plan posts on the calendar",
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <history-id>",
	Short: "Schedule one platform's post from a past generation",
	Long: `Schedule one platform's post from a past generation.

Examples:
  postdeck schedule add 3f2a --platform linkedin --at "2024-06-03 09:30"
  postdeck schedule add 3f2a --platform instagram --variation 2 --at 2024-06-03T18:00:00+02:00`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, _ := cmd.Flags().GetString("platform")
		at, _ := cmd.Flags().GetString("at")
		variation, _ := cmd.Flags().GetInt("variation")
		if platform == "" || at == "" {
			return fmt.Errorf("--platform and --at are required")
		}
		if variation < 1 {
			return fmt.Errorf("--variation starts at 1")
		}
		when, err := parseWhen(at, time.Local)
		if err != nil {
			return err
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		d, err := openDeck(cmd.Context(), a)
		if err != nil {
			return err
		}
		defer d.Close()

		p, err := d.Schedule(cmd.Context(), api.ScheduleRequest{
			Platform:      platform,
			ScheduledDate: when,
			EntryID:       args[0],
			Variation:     variation - 1,
		})
		if err != nil {
			return err
		}
		printSuccess("Scheduled %s for %s (%s)", platformLabel(p.Platform), p.ScheduledDate.Local().Format(displayLayout), shortID(p.ID))
		if !d.ArmsReminders() {
			printWarning("No server running: the reminder is armed the next time \"postdeck serve\" or \"postdeck watch\" starts.")
		}
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled posts in date order",
	RunE: func(cmd *cobra.Command, args []string) error {
		upcoming, _ := cmd.Flags().GetBool("upcoming")

		a, err := loadApp()
		if err != nil {
			return err
		}
		d, err := openDeck(cmd.Context(), a)
		if err != nil {
			return err
		}
		defer d.Close()

		posts, err := d.Posts(cmd.Context(), upcoming)
		if err != nil {
			return err
		}
		if len(posts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing scheduled.")
			return nil
		}
		for _, p := range posts {
			printPostLine(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

var scheduleDayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "List posts scheduled on one day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now().Format(dayLayout)
		if len(args) == 1 {
			day = args[0]
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		d, err := openDeck(cmd.Context(), a)
		if err != nil {
			return err
		}
		defer d.Close()

		posts, err := d.PostsForDate(cmd.Context(), day)
		if err != nil {
			return err
		}
		if len(posts) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Nothing scheduled on %s.\n", day)
			return nil
		}
		for _, p := range posts {
			printPostLine(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

var scheduleMonthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "List the days of a month that have posts (default this month)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		month := time.Now().Format(monthLayout)
		if len(args) == 1 {
			month = args[0]
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		d, err := openDeck(cmd.Context(), a)
		if err != nil {
			return err
		}
		defer d.Close()

		dates, err := d.DatesWithPosts(cmd.Context(), month)
		if err != nil {
			return err
		}
		if len(dates) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No posts in %s.\n", month)
			return nil
		}
		for _, day := range dates {
			fmt.Fprintln(cmd.OutOrStdout(), day)
		}
		return nil
	},
}

var schedulePostedCmd = &cobra.Command{
	Use:   "posted <id>",
	Short: "Mark a scheduled post as published",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		d, err := openDeck(cmd.Context(), a)
		if err != nil {
			return err
		}
		defer d.Close()

		p, err := d.MarkPosted(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSuccess("Marked %s %s post as posted", shortID(p.ID), platformLabel(p.Platform))
		return nil
	},
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a scheduled post and its reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		d, err := openDeck(cmd.Context(), a)
		if err != nil {
			return err
		}
		defer d.Close()

		p, err := d.DeletePost(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSuccess("Deleted %s %s post for %s", shortID(p.ID), platformLabel(p.Platform), p.ScheduledDate.Local().Format(displayLayout))
		return nil
	},
}

func init() {
	scheduleAddCmd.Flags().String("platform", "", "instagram, linkedin, twitter or tiktok")
	scheduleAddCmd.Flags().String("at", "", "posting time, \"YYYY-MM-DD HH:MM\" (local) or RFC 3339")
	scheduleAddCmd.Flags().Int("variation", 1, "variation to schedule, starting at 1")
	scheduleListCmd.Flags().Bool("upcoming", false, "only posts not yet published and not in the past")

	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleDayCmd)
	scheduleCmd.AddCommand(scheduleMonthCmd)
	scheduleCmd.AddCommand(schedulePostedCmd)
	scheduleCmd.AddCommand(scheduleDeleteCmd)
}
