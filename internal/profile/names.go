package profile

import "github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"

// moodName names a cluster from its centroid using an energy/valence
// quadrant, with an acoustic modifier when acousticness dominates.
//
//   - high energy, high valence: "Upbeat Party"
//   - high energy, low valence:  "Intense & Dark"
//   - low energy,  high valence: "Chill & Happy"
//   - low energy,  low valence:  "Reflective & Melancholy"
func moodName(centroid emotion.AudioFeatures) string {
	highEnergy := centroid.Energy > 0.6
	highValence := centroid.Valence > 0.5

	var base string
	switch {
	case highEnergy && highValence:
		base = "Upbeat Party"
	case highEnergy && !highValence:
		base = "Intense & Dark"
	case !highEnergy && highValence:
		base = "Chill & Happy"
	default:
		base = "Reflective & Melancholy"
	}

	if centroid.Acousticness > 0.6 {
		return base + " (Acoustic)"
	}
	return base
}
