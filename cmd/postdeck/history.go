package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and manage past generations",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past generations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := loadApp()
		if err != nil {
			return err
		}
		d, err := openDeck(cmd.Context(), a)
		if err != nil {
			return err
		}
		defer d.Close()

		entries, err := d.Entries(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No history yet.")
			return nil
		}
		if limit > 0 && len(entries) > limit {
			entries = entries[:limit]
		}
		for _, e := range entries {
			printEntryLine(cmd.OutOrStdout(), e)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the posts of one generation",
	Long: `Show the posts of one generation. The id may be any unique prefix.

--variation selects the same variation index on every platform. Platforms
with fewer variations show their first one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		variation, _ := cmd.Flags().GetInt("variation")
		platformName, _ := cmd.Flags().GetString("platform")
		if variation < 1 {
			return fmt.Errorf("--variation starts at 1")
		}
		var only content.Platform
		if platformName != "" {
			p, err := content.ParsePlatform(platformName)
			if err != nil {
				return err
			}
			only = p
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

		e, err := d.Entry(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printEntry(cmd.OutOrStdout(), e, variation-1, only)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one generation",
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

		e, err := d.DeleteEntry(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printSuccess("Deleted %s (%s: %s)", shortID(e.ID), e.Company, e.Topic)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all generations",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL history. Use --confirm to proceed.")
			return nil
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

		if err := d.ClearHistory(cmd.Context()); err != nil {
			return err
		}
		printSuccess("History cleared")
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history as JSON or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatName, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		format, err := history.ParseExportFormat(formatName)
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

		entries, err := d.Entries(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}
		if err := history.Export(w, entries, format); err != nil {
			return err
		}
		if output != "" {
			printSuccess("Exported %d entries to %s", len(entries), output)
		}
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 0, "maximum number of entries to list")
	historyShowCmd.Flags().Int("variation", 1, "variation to show, starting at 1")
	historyShowCmd.Flags().String("platform", "", "show only this platform")
	historyClearCmd.Flags().Bool("confirm", false, "confirm deleting all history")
	historyExportCmd.Flags().String("format", "json", "json or yaml")
	historyExportCmd.Flags().String("output", "", "output file path (default: stdout)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
}
