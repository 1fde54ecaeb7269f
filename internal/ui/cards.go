package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/lovewrapped/internal/formatter"
	"github.com/desertthunder/lovewrapped/internal/models"
)

const barWidth = 20

// RenderProfile draws p as a card: top artists, top tracks and mood bars.
func RenderProfile(p models.Profile) string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Love Wrapped: " + formatter.Title(p)))
	b.WriteString("\n")

	b.WriteString(styles.ok.Render("Top Artists"))
	b.WriteString("\n")
	if len(p.TopArtists) == 0 {
		b.WriteString(styles.help.Render("  nothing yet"))
		b.WriteString("\n")
	}
	for i, a := range p.TopArtists {
		fmt.Fprintf(&b, "  %2d. %s\n", i+1, a.Name)
	}

	b.WriteString("\n")
	b.WriteString(styles.ok.Render("Top Tracks"))
	b.WriteString("\n")
	if len(p.TopTracks) == 0 {
		b.WriteString(styles.help.Render("  nothing yet"))
		b.WriteString("\n")
	}
	for i, t := range p.TopTracks {
		fmt.Fprintf(&b, "  %2d. %s %s\n", i+1, t.Name, styles.help.Render(formatter.ArtistNames(t)))
	}

	b.WriteString("\n")
	b.WriteString(renderMood(p.Mood))

	return styles.card.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderMerged draws the comparison of me and partner.
func RenderMerged(me, partner models.Profile, view models.MergedView) string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("%s 💖 %s", formatter.Title(me), formatter.Title(partner))))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s%s\n", styles.label.Render("Artist match"), formatter.Percent(view.ArtistSimilarity))
	fmt.Fprintf(&b, "%s%s\n", styles.label.Render("Track match"), formatter.Percent(view.TrackSimilarity))

	b.WriteString("\n")
	b.WriteString(styles.ok.Render(fmt.Sprintf("Shared Artists (%d)", len(view.SharedArtistIDs))))
	b.WriteString("\n")
	names := make(map[string]string)
	for _, p := range []models.Profile{me, partner} {
		for _, a := range p.TopArtists {
			names[a.ID] = a.Name
		}
		for _, t := range p.TopTracks {
			names[t.ID] = t.Name
		}
	}
	for _, id := range view.SharedArtistIDs {
		fmt.Fprintf(&b, "  • %s\n", nameOr(names, id))
	}

	b.WriteString(styles.ok.Render(fmt.Sprintf("Shared Tracks (%d)", len(view.SharedTrackIDs))))
	b.WriteString("\n")
	for _, id := range view.SharedTrackIDs {
		fmt.Fprintf(&b, "  • %s\n", nameOr(names, id))
	}

	b.WriteString("\n")
	b.WriteString(renderMood(view.BlendedMood))

	return styles.card.Render(strings.TrimRight(b.String(), "\n"))
}

func renderMood(m models.MoodVector) string {
	rows := []struct {
		name  string
		value float64
	}{
		{"valence", m.Valence},
		{"energy", m.Energy},
		{"danceability", m.Danceability},
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			styles.label.Render(r.name),
			styles.warn.Render(formatter.Bar(r.value, barWidth)),
			fmt.Sprintf(" %.2f", r.value),
		))
	}
	return strings.Join(lines, "\n")
}

func nameOr(names map[string]string, id string) string {
	if n := names[id]; n != "" {
		return n
	}
	return id
}
