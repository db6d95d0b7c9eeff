package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kalambet/postdeck/internal/api"
	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/studio"
)

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend, server and data status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			// Still show partial status even if config fails.
			printError("config error: %v", err)
			return nil
		}
		ctx := cmd.Context()

		backend := a.backendClient()
		if h, err := backend.Health(ctx); err != nil {
			printStatus("Backend", "offline at %s", backend.BaseURL())
		} else {
			printStatus("Backend", "%s at %s", h.Status, backend.BaseURL())
		}

		if detectServer(ctx, a) != nil {
			printStatus("Server", "running on port %d", a.cfg.Server.Port)
		} else {
			printStatus("Server", "stopped")
		}

		d, err := openDeck(ctx, a)
		if err != nil {
			printError("could not open data: %v", err)
		} else {
			defer d.Close()
			if entries, err := d.Entries(ctx); err == nil {
				printStatus("History", "%d entries", len(entries))
			}
			if posts, err := d.Posts(ctx, true); err == nil {
				printStatus("Upcoming posts", "%d", len(posts))
			}
		}

		reminders := "off"
		if a.cfg.Notify.Enabled {
			reminders = "desktop"
			if a.cfg.Notify.TelegramEnabled() {
				reminders += ", telegram"
			}
		}
		printStatus("Reminders", "%s", reminders)
		printStatus("Storage", "%s", a.cfg.Storage.Backend)
		printStatus("Data dir", "%s", a.cfg.Storage.DataDir)
		return nil
	},
}

// --- companies ---

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List the companies the backend can write for",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		conn, err := a.studio(nil).Connect(cmd.Context())
		if err != nil {
			return err
		}
		if len(conn.Companies) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No companies configured on the backend.")
			return nil
		}
		for _, c := range conn.Companies {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
				colorize(colorCyan, c.ID), colorize(colorBold, c.Name), preview(c.Description, previewRunes))
		}
		return nil
	},
}

// --- ideas ---

var ideasCmd = &cobra.Command{
	Use:   "ideas <company>",
	Short: "Ask the backend for topic ideas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		s := a.studio(nil)
		company := findCompany(cmd.Context(), s, args[0])

		printStep("Asking for ideas for %s...", company.Name)
		ideas, err := s.Ideas(cmd.Context(), company.ID)
		if err != nil {
			return err
		}
		for i, idea := range ideas {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", colorize(colorBold, strconv.Itoa(i+1)+"."), idea.Title)
			if idea.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "   %s\n", colorize(colorFaint, idea.Description))
			}
		}
		return nil
	},
}

// findCompany resolves ref by id or name. Unknown refs are used as ids.
func findCompany(ctx context.Context, s *studio.Studio, ref string) content.Company {
	if _, err := s.Connect(ctx); err == nil {
		if c, ok := s.FindCompany(ref); ok {
			return c
		}
	}
	return content.Company{ID: ref, Name: ref}
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate posts for a company and topic",
	Long: `Generate posts for a company and topic and record them in history.

Examples:
  postdeck generate --company acme --topic "Spring product launch"
  postdeck generate --company acme --idea 2 --tone fun --variations 3
  postdeck generate --company acme --topic "Hiring" --images --style illustration`,
	RunE: func(cmd *cobra.Command, args []string) error {
		companyRef, _ := cmd.Flags().GetString("company")
		topic, _ := cmd.Flags().GetString("topic")
		ideaNum, _ := cmd.Flags().GetInt("idea")
		if companyRef == "" {
			return fmt.Errorf("--company is required")
		}
		if topic == "" && ideaNum == 0 {
			return fmt.Errorf("one of --topic or --idea is required")
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		req := api.GenerateRequest{
			CompanyID:  companyRef,
			Topic:      topic,
			Tone:       a.cfg.Generate.Tone,
			ImageStyle: a.cfg.Generate.ImageStyle,
			Variations: a.cfg.Generate.Variations,
		}
		if cmd.Flags().Changed("tone") {
			req.Tone, _ = cmd.Flags().GetString("tone")
		}
		if cmd.Flags().Changed("style") {
			req.ImageStyle, _ = cmd.Flags().GetString("style")
		}
		if cmd.Flags().Changed("variations") {
			req.Variations, _ = cmd.Flags().GetInt("variations")
		}
		req.GenerateImages, _ = cmd.Flags().GetBool("images")

		if ideaNum > 0 {
			s := a.studio(nil)
			company := findCompany(ctx, s, companyRef)
			ideas, err := s.Ideas(ctx, company.ID)
			if err != nil {
				return err
			}
			if ideaNum > len(ideas) {
				return fmt.Errorf("--idea %d: the backend suggested %d ideas", ideaNum, len(ideas))
			}
			req.CompanyID = company.ID
			req.IdeaTitle = ideas[ideaNum-1].Title
			req.IdeaDescription = ideas[ideaNum-1].Description
		}

		d, err := openDeck(ctx, a)
		if err != nil {
			return err
		}
		defer d.Close()

		printStep("Generating %d variation(s)...", max(req.Variations, 1))
		entry, err := d.Generate(ctx, req)
		if err != nil {
			return err
		}
		printEntry(cmd.OutOrStdout(), entry, 0, "")
		fmt.Fprintln(cmd.OutOrStdout())
		printSuccess("Saved to history as %s", shortID(entry.ID))
		return nil
	},
}

func init() {
	generateCmd.Flags().String("company", "", "company id or name")
	generateCmd.Flags().String("topic", "", "topic to write about")
	generateCmd.Flags().Int("idea", 0, "use the Nth idea from \"postdeck ideas\" as the topic")
	generateCmd.Flags().String("tone", "", "professional, casual or fun (default from config)")
	generateCmd.Flags().String("style", "", "image style: photo, illustration, infographic, minimalist or 3d")
	generateCmd.Flags().Bool("images", false, "ask the backend to generate images")
	generateCmd.Flags().Int("variations", 0, "variations per platform, 1-3 (default from config)")
}
