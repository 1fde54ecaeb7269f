// package formatter renders profiles and merged views as Markdown, plain text, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/shared"
)

// Format is an export encoding.
type Format string

const (
	JSON     Format = "json"
	Markdown Format = "markdown"
	Text     Format = "text"
	CSV      Format = "csv"
)

// ParseFormat accepts json, markdown (or md), text (or txt) and csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return JSON, nil
	case "markdown", "md":
		return Markdown, nil
	case "text", "txt":
		return Text, nil
	case "csv":
		return CSV, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	switch f {
	case Markdown:
		return "md"
	case Text:
		return "txt"
	default:
		return string(f)
	}
}

// Percent renders a [0,1] score as a rounded percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(v*100)))
}

// Bar renders v in [0,1] as a fixed-width bar of filled and empty cells.
func Bar(v float64, width int) string {
	v = math.Max(0, math.Min(1, v))
	filled := int(math.Round(v * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// ArtistNames joins the credited artist names of t.
func ArtistNames(t models.Track) string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Title is the display name, falling back to the user id.
func Title(p models.Profile) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.UserID
}

func moodRows(m models.MoodVector) [][2]string {
	return [][2]string{
		{"Valence", strconv.FormatFloat(m.Valence, 'f', 2, 64)},
		{"Energy", strconv.FormatFloat(m.Energy, 'f', 2, 64)},
		{"Danceability", strconv.FormatFloat(m.Danceability, 'f', 2, 64)},
	}
}

// ProfileMarkdown renders p as a Markdown document.
func ProfileMarkdown(p models.Profile) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Love Wrapped: %s\n\n", Title(p))

	buf.WriteString("## Top Artists\n\n")
	if len(p.TopArtists) == 0 {
		buf.WriteString("_No top artists yet._\n")
	}
	for i, a := range p.TopArtists {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, a.Name)
	}

	buf.WriteString("\n## Top Tracks\n\n")
	if len(p.TopTracks) == 0 {
		buf.WriteString("_No top tracks yet._\n")
	}
	for i, t := range p.TopTracks {
		if artists := ArtistNames(t); artists != "" {
			fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, artists, t.Name)
		} else {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, t.Name)
		}
	}

	buf.WriteString("\n## Mood\n\n| Metric | Value |\n|---|---|\n")
	for _, row := range moodRows(p.Mood) {
		fmt.Fprintf(&buf, "| %s | %s |\n", row[0], row[1])
	}

	return buf.Bytes()
}

// ProfileText renders p as plain text with mood bars.
func ProfileText(p models.Profile) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Love Wrapped: %s\n", Title(p))
	fmt.Fprintf(&buf, "Top artists: %d\n", len(p.TopArtists))
	for i, a := range p.TopArtists {
		fmt.Fprintf(&buf, "  %2d. %s\n", i+1, a.Name)
	}

	fmt.Fprintf(&buf, "Top tracks: %d\n", len(p.TopTracks))
	for i, t := range p.TopTracks {
		fmt.Fprintf(&buf, "  %2d. %s - %s\n", i+1, ArtistNames(t), t.Name)
	}

	buf.WriteString("Mood:\n")
	fmt.Fprintf(&buf, "  %-13s%s %.2f\n", "valence", Bar(p.Mood.Valence, 20), p.Mood.Valence)
	fmt.Fprintf(&buf, "  %-13s%s %.2f\n", "energy", Bar(p.Mood.Energy, 20), p.Mood.Energy)
	fmt.Fprintf(&buf, "  %-13s%s %.2f\n", "danceability", Bar(p.Mood.Danceability, 20), p.Mood.Danceability)

	return buf.Bytes()
}

// ProfileCSV renders the ranked top tracks with columns: Rank, ID, Name, Artists
func ProfileCSV(p models.Profile) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Rank", "ID", "Name", "Artists"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for i, t := range p.TopTracks {
		if err := writer.Write([]string{strconv.Itoa(i + 1), t.ID, t.Name, ArtistNames(t)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// MergedMarkdown renders the comparison of me and partner. Shared ids are shown by
// name when either profile knows it.
func MergedMarkdown(me, partner models.Profile, view models.MergedView) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s + %s\n\n", Title(me), Title(partner))
	fmt.Fprintf(&buf, "**Artist match**: %s\n", Percent(view.ArtistSimilarity))
	fmt.Fprintf(&buf, "**Track match**: %s\n\n", Percent(view.TrackSimilarity))

	artistNames := artistIndex(me, partner)
	buf.WriteString("## Shared Artists\n\n")
	if len(view.SharedArtistIDs) == 0 {
		buf.WriteString("_Nothing in common yet._\n")
	}
	for _, id := range view.SharedArtistIDs {
		fmt.Fprintf(&buf, "- %s\n", lookup(artistNames, id))
	}

	trackNames := trackIndex(me, partner)
	buf.WriteString("\n## Shared Tracks\n\n")
	if len(view.SharedTrackIDs) == 0 {
		buf.WriteString("_Nothing in common yet._\n")
	}
	for _, id := range view.SharedTrackIDs {
		fmt.Fprintf(&buf, "- %s\n", lookup(trackNames, id))
	}

	buf.WriteString("\n## Blended Mood\n\n| Metric | Value |\n|---|---|\n")
	for _, row := range moodRows(view.BlendedMood) {
		fmt.Fprintf(&buf, "| %s | %s |\n", row[0], row[1])
	}
	return buf.Bytes()
}

// Render encodes p in format f.
func Render(p models.Profile, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(p, true)
	case Markdown:
		return ProfileMarkdown(p), nil
	case Text:
		return ProfileText(p), nil
	case CSV:
		return ProfileCSV(p)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteExport renders p and writes it to path.
//
// Defaults to {userId}_wrapped.{ext} as the filename.
func WriteExport(p models.Profile, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_wrapped.%s", p.UserID, f.Ext())
	}

	data, err := Render(p, f)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func artistIndex(profiles ...models.Profile) map[string]string {
	idx := make(map[string]string)
	for _, p := range profiles {
		for _, a := range p.TopArtists {
			if a.Name != "" {
				idx[a.ID] = a.Name
			}
		}
	}
	return idx
}

func trackIndex(profiles ...models.Profile) map[string]string {
	idx := make(map[string]string)
	for _, p := range profiles {
		for _, t := range p.TopTracks {
			if t.Name != "" {
				idx[t.ID] = t.Name
			}
		}
	}
	return idx
}

func lookup(idx map[string]string, id string) string {
	if name, ok := idx[id]; ok {
		return name
	}
	return id
}
