package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/imageconv"
	"github.com/kalambet/postdeck/internal/media"
)

// systemClipboard is replaced in tests.
var systemClipboard = media.SystemClipboard

// pickVariation returns the platform's content at the one-based variation,
// falling back to the first one.
func pickVariation(e history.Entry, platformName string, variation int) (content.Platform, content.PlatformContent, error) {
	p, err := content.ParsePlatform(platformName)
	if err != nil {
		return "", content.PlatformContent{}, err
	}
	pc, ok := e.Content.Variation(p, variation-1)
	if !ok {
		return "", content.PlatformContent{}, fmt.Errorf("%s has no %s posts", shortID(e.ID), p.DisplayName())
	}
	return p, pc, nil
}

var copyCmd = &cobra.Command{
	Use:   "copy <history-id>",
	Short: "Copy a post, its hashtags or its image idea to the clipboard",
	Long: `Copy a post, its hashtags or its image idea to the clipboard.

Examples:
  postdeck copy 3f2a --platform linkedin
  postdeck copy 3f2a --platform instagram --variation 2 --what hashtags
  postdeck copy 3f2a --platform instagram --what image`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		platformName, _ := cmd.Flags().GetString("platform")
		variation, _ := cmd.Flags().GetInt("variation")
		what, _ := cmd.Flags().GetString("what")
		if platformName == "" {
			return fmt.Errorf("--platform is required")
		}
		if variation < 1 {
			return fmt.Errorf("--variation starts at 1")
		}

		var copyFn func(context.Context, media.Clipboard, content.PlatformContent) error
		switch what {
		case "post":
			copyFn = media.CopyPost
		case "hashtags":
			copyFn = media.CopyHashtags
		case "image":
			copyFn = media.CopyImageSuggestion
		default:
			return fmt.Errorf("--what must be post, hashtags or image, got %q", what)
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
		p, pc, err := pickVariation(e, platformName, variation)
		if err != nil {
			return err
		}

		cb, err := systemClipboard()
		if err != nil {
			return err
		}
		if err := copyFn(cmd.Context(), cb, pc); err != nil {
			return err
		}
		printSuccess("Copied %s %s to the clipboard", p.DisplayName(), what)
		return nil
	},
}

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Work with generated images",
}

var imageSaveCmd = &cobra.Command{
	Use:   "save <history-id>",
	Short: "Download generated images to disk",
	Long: `Download generated images to disk, converted to png, jpg or webp.

Without --platform every platform's image for the variation is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		platformName, _ := cmd.Flags().GetString("platform")
		variation, _ := cmd.Flags().GetInt("variation")
		formatName, _ := cmd.Flags().GetString("format")
		dir, _ := cmd.Flags().GetString("dir")
		if variation < 1 {
			return fmt.Errorf("--variation starts at 1")
		}
		format, err := imageconv.ParseFormat(formatName)
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

		e, err := d.Entry(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		saver := media.NewImageSaver(dir, format,
			media.WithBaseURL(a.cfg.Backend.BaseURL),
			media.WithLogger(a.logger),
		)

		if platformName != "" {
			p, pc, err := pickVariation(e, platformName, variation)
			if err != nil {
				return err
			}
			index := variation - 1
			if index >= len(e.Content.Platforms[p]) {
				index = 0
			}
			path, err := saver.Save(cmd.Context(), e.Company, p, index, pc)
			if err != nil {
				return err
			}
			printSuccess("Saved %s", path)
			return nil
		}

		saved, err := saver.SaveAll(cmd.Context(), e.Content, variation-1)
		if err != nil {
			return err
		}
		if len(saved) == 0 {
			printWarning("%s has no generated images", shortID(e.ID))
			return nil
		}
		for _, s := range saved {
			printStatus(s.Platform.DisplayName(), "%s", s.Path)
		}
		printSuccess("Saved %d image(s)", len(saved))
		return nil
	},
}

func init() {
	copyCmd.Flags().String("platform", "", "instagram, linkedin, twitter or tiktok")
	copyCmd.Flags().Int("variation", 1, "variation to copy, starting at 1")
	copyCmd.Flags().String("what", "post", "post, hashtags or image")

	imageSaveCmd.Flags().String("platform", "", "save only this platform's image")
	imageSaveCmd.Flags().Int("variation", 1, "variation to save, starting at 1")
	imageSaveCmd.Flags().String("format", "png", "png, jpg or webp")
	imageSaveCmd.Flags().String("dir", ".", "directory to write images to")

	imageCmd.AddCommand(imageSaveCmd)
}
