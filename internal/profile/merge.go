package profile

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
)

// Merge compares me against partner. It is symmetric in its arguments.
func Merge(me, partner models.Profile) models.MergedView {
	myArtists, theirArtists := idSet(me.ArtistIDs()), idSet(partner.ArtistIDs())
	myTracks, theirTracks := idSet(me.TrackIDs()), idSet(partner.TrackIDs())

	return models.MergedView{
		SharedArtistIDs:  intersect(myArtists, theirArtists),
		SharedTrackIDs:   intersect(myTracks, theirTracks),
		ArtistSimilarity: jaccard(myArtists, theirArtists),
		TrackSimilarity:  jaccard(myTracks, theirTracks),
		BlendedMood:      Blend(me.Mood, partner.Mood),
	}
}

// Jaccard is |a ∩ b| / |a ∪ b| over the distinct ids of a and b, and 0 when both are empty.
func Jaccard(a, b []string) float64 {
	return jaccard(idSet(a), idSet(b))
}

// Blend is the per-field mean of a and b.
func Blend(a, b models.MoodVector) models.MoodVector {
	return models.MoodVector{
		Valence:      (a.Valence + b.Valence) / 2,
		Energy:       (a.Energy + b.Energy) / 2,
		Danceability: (a.Danceability + b.Danceability) / 2,
	}
}

// MergeStored decodes both stored profiles and merges them.
//
// A missing self profile is [shared.ErrProfileNotFound]; a missing partner is [shared.ErrNoPartner].
func MergeStored(ctx context.Context, ps *store.ProfileStore) (*models.Profile, *models.Profile, models.MergedView, error) {
	me, err := LoadSlot(ctx, ps, store.SlotSelf)
	if err != nil {
		return nil, nil, models.MergedView{}, err
	}

	partner, err := LoadSlot(ctx, ps, store.SlotPartner)
	if err != nil {
		return nil, nil, models.MergedView{}, err
	}

	return me, partner, Merge(*me, *partner), nil
}

// LoadSlot decodes the profile stored in slot.
func LoadSlot(ctx context.Context, ps *store.ProfileStore, slot store.Slot) (*models.Profile, error) {
	data, ok, err := ps.Load(ctx, slot)
	if err != nil {
		return nil, err
	}
	if !ok {
		if slot == store.SlotPartner {
			return nil, shared.ErrNoPartner
		}
		return nil, fmt.Errorf("%w: nothing stored in %s", shared.ErrProfileNotFound, slot)
	}
	return Decode(data)
}

type set map[string]struct{}

func idSet(ids []string) set {
	s := make(set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// intersect returns the sorted common ids, never nil.
func intersect(a, b set) []string {
	out := []string{}
	for id := range a {
		if _, ok := b[id]; ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func jaccard(a, b set) float64 {
	common := 0
	for id := range a {
		if _, ok := b[id]; ok {
			common++
		}
	}
	union := len(a) + len(b) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}
