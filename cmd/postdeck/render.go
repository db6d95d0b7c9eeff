package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/schedule"
)

const (
	shortIDLen    = 8
	previewRunes  = 60
	timeLayout    = "2006-01-02 15:04"
	displayLayout = "Mon Jan 2 15:04"
)

var platformColors = map[string]*color.Color{
	"pink":  color.New(color.FgMagenta),
	"blue":  color.New(color.FgBlue),
	"cyan":  color.New(color.FgCyan),
	"black": color.New(color.FgWhite, color.Bold),
}

func platformLabel(p content.Platform) string {
	info := content.PlatformInfo(p)
	c, ok := platformColors[info.Color]
	if !ok {
		c = colorBold
	}
	return colorize(c, info.DisplayName)
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func printEntryLine(w io.Writer, e history.Entry) {
	var names []string
	for _, p := range e.Content.AvailablePlatforms() {
		names = append(names, p.DisplayName())
	}
	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
		colorize(colorCyan, shortID(e.ID)),
		e.CreatedAt.Local().Format(timeLayout),
		colorize(colorBold, e.Company),
		e.Topic,
		colorize(colorFaint, "["+strings.Join(names, ", ")+"]"),
	)
}

// printEntry renders one generation. Platforms with fewer variations than
// the requested index show their first variation, and say so.
func printEntry(w io.Writer, e history.Entry, variation int, only content.Platform) {
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, e.Company+": "+e.Topic), colorize(colorFaint, "("+e.ID+")"))
	fmt.Fprintf(w, "Tone: %s  Created: %s  Variations: %d\n",
		content.Tone(e.Tone).DisplayName(), e.CreatedAt.Local().Format(timeLayout), e.Content.VariationCount())

	for _, p := range e.Content.AvailablePlatforms() {
		if only != "" && p != only {
			continue
		}
		pc, _ := e.Content.Variation(p, variation)
		fmt.Fprintln(w)
		header := platformLabel(p)
		if n := len(e.Content.Platforms[p]); variation >= n && variation > 0 {
			header += colorize(colorFaint, fmt.Sprintf(" (only %d variation, showing 1)", n))
		}
		fmt.Fprintln(w, header)
		printPlatformContent(w, p, pc)
	}
}

func printPlatformContent(w io.Writer, p content.Platform, pc content.PlatformContent) {
	fmt.Fprintln(w, pc.Content)
	if len(pc.Hashtags) > 0 {
		fmt.Fprintln(w, colorize(colorCyan, strings.Join(pc.Hashtags, " ")))
	}

	count := pc.CharCount
	if count == 0 {
		count = utf8.RuneCountInString(pc.Content)
	}
	counter := fmt.Sprintf("%d/%d characters", count, content.PlatformInfo(p).CharLimit)
	if pc.OverLimit(p) {
		counter = colorize(colorRed, counter+" (over limit)")
	} else {
		counter = colorize(colorFaint, counter)
	}
	fmt.Fprintln(w, counter)

	if pc.ImageSuggestion != "" {
		fmt.Fprintf(w, "%s %s\n", colorize(colorFaint, "Image idea:"), pc.ImageSuggestion)
	}
	if pc.ImageURL != "" {
		fmt.Fprintf(w, "%s %s\n", colorize(colorFaint, "Image:"), pc.ImageURL)
	}
}

func printPostLine(w io.Writer, p schedule.Post) {
	state := colorize(colorYellow, "scheduled")
	if p.IsPosted {
		state = colorize(colorGreen, "posted")
	}
	fmt.Fprintf(w, "%s  %s  %-10s  %s  %s  %s\n",
		colorize(colorCyan, shortID(p.ID)),
		p.ScheduledDate.Local().Format(displayLayout),
		platformLabel(p.Platform),
		state,
		colorize(colorBold, p.Company+": "+p.Topic),
		preview(p.Content.Content, previewRunes),
	)
}
