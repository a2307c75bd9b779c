package emotion

import "math"

// Classify maps audio features to an emotion using a fixed-priority rule
// tree. Rules overlap, so evaluation order matters: the first matching rule
// wins. All comparisons are strict, so boundary values fall through to later
// rules. Classify is total; the final fallback always produces a value.
func Classify(f AudioFeatures) Emotion {
	if f.Valence > 0.6 && f.Energy > 0.6 {
		return Happy
	}
	if f.Energy > 0.7 && f.Danceability > 0.6 {
		return Energetic
	}
	if f.Valence < 0.4 && f.Energy < 0.5 {
		return Sad
	}
	if f.Acousticness > 0.5 && f.Energy < 0.5 {
		return Calm
	}

	if f.Valence > 0.5 {
		if f.Energy > 0.5 {
			return Happy
		}
		return Calm
	}
	if f.Energy > 0.5 {
		return Energetic
	}
	return Sad
}

var targetProfiles = map[Emotion]TargetProfile{
	Happy: {
		TargetValence: f64(0.8),
		TargetEnergy:  f64(0.7),
		MinValence:    f64(0.6),
		MinEnergy:     f64(0.5),
	},
	Sad: {
		TargetValence: f64(0.2),
		TargetEnergy:  f64(0.3),
		MaxValence:    f64(0.4),
		MaxEnergy:     f64(0.5),
	},
	Energetic: {
		TargetEnergy:       f64(0.9),
		TargetDanceability: f64(0.8),
		MinEnergy:          f64(0.7),
	},
	Calm: {
		TargetEnergy:       f64(0.3),
		TargetAcousticness: f64(0.7),
		MaxEnergy:          f64(0.5),
	},
}

// TargetFeatures returns the static target profile for an emotion.
// Unknown emotions return the Calm profile rather than an error.
func TargetFeatures(e Emotion) TargetProfile {
	if p, ok := targetProfiles[e]; ok {
		return p
	}
	return targetProfiles[Calm]
}

// Score rates how well the features match the target emotion's profile,
// as an integer in [0,100]. Only target valence and target energy are
// scored; the other target fields bias recommendation requests but carry no
// weight here (the ENERGETIC and CALM profiles therefore score on energy
// alone). A profile defining neither scored dimension yields 0.
func Score(f AudioFeatures, target Emotion) int {
	p := TargetFeatures(target)

	var sum float64
	var count int
	if p.TargetValence != nil {
		sum += (1 - math.Abs(f.Valence-*p.TargetValence)) * 100
		count++
	}
	if p.TargetEnergy != nil {
		sum += (1 - math.Abs(f.Energy-*p.TargetEnergy)) * 100
		count++
	}

	if count == 0 {
		return 0
	}
	return int(math.Round(sum / float64(count)))
}

func f64(v float64) *float64 {
	return &v
}
