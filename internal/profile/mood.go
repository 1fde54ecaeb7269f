package profile

import "github.com/desertthunder/lovewrapped/internal/models"

// Mood averages valence, energy and danceability over features.
//
// Every record counts toward the denominator; a missing field contributes 0.
// An empty batch is the zero vector.
func Mood(features []models.AudioFeatures) models.MoodVector {
	if len(features) == 0 {
		return models.MoodVector{}
	}

	var sum models.MoodVector
	for _, f := range features {
		sum.Valence += value(f.Valence)
		sum.Energy += value(f.Energy)
		sum.Danceability += value(f.Danceability)
	}

	n := float64(len(features))
	return models.MoodVector{
		Valence:      sum.Valence / n,
		Energy:       sum.Energy / n,
		Danceability: sum.Danceability / n,
	}
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
