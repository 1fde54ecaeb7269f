package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/services"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	// PageSize is the number of top artists and tracks requested.
	PageSize = 10
	// TimeRange is the ranking window for top items.
	TimeRange = services.MediumTerm
)

// Builder assembles a [models.Profile] from the data API.
type Builder struct {
	client services.DataClient
	logger *log.Logger
}

func NewBuilder(client services.DataClient, logger *log.Logger) *Builder {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Builder{client: client, logger: logger}
}

// Build fetches everything a profile needs. It returns no profile on any failure.
func (b *Builder) Build(ctx context.Context, cred models.Credential) (*models.Profile, error) {
	start := time.Now()

	user, err := b.client.CurrentUser(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	logger := shared.WithLogger(b.logger, "user", user.ID)

	var (
		artists []models.Artist
		tracks  []models.Track
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		artists, err = b.client.TopArtists(gctx, cred, PageSize, TimeRange)
		if err != nil {
			return fmt.Errorf("failed to fetch top artists: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tracks, err = b.client.TopTracks(gctx, cred, PageSize, TimeRange)
		if err != nil {
			return fmt.Errorf("failed to fetch top tracks: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Warn("profile build aborted", "error", err)
		return nil, err
	}

	var features []models.AudioFeatures
	if ids := distinctTrackIDs(tracks); len(ids) > 0 {
		features, err = b.client.AudioFeatures(ctx, cred, ids)
		if err != nil {
			logger.Warn("profile build aborted", "error", err)
			return nil, fmt.Errorf("failed to fetch audio features: %w", err)
		}
	}

	p := &models.Profile{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		TopArtists:  nonNil(artists),
		TopTracks:   nonNil(tracks),
		Mood:        Mood(features),
	}
	logger.Info("profile built", "artists", len(p.TopArtists), "tracks", len(p.TopTracks), "elapsed", time.Since(start))
	return p, nil
}

// distinctTrackIDs keeps the first occurrence of each id.
func distinctTrackIDs(tracks []models.Track) []string {
	seen := make(map[string]bool, len(tracks))
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		ids = append(ids, t.ID)
	}
	return ids
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
