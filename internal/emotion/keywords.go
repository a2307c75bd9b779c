package emotion

import "math/rand/v2"

// keywordPools holds the search keywords used to find candidate tracks for
// each emotion when feature-based recommendation is unavailable.
var keywordPools = map[Emotion][]string{
	Happy: {
		"happy songs", "feel good music", "upbeat pop", "cheerful hits",
		"joyful music", "positive vibes", "sunshine songs", "party hits",
		"dance pop", "uplifting tracks", "good mood", "fun music",
		"celebration songs", "happy beats", "smile songs",
	},
	Sad: {
		"sad songs", "emotional ballads", "melancholy music", "heartbreak songs",
		"tearjerker", "lonely songs", "breakup music", "cry songs",
		"emotional music", "sad piano", "melancholic", "sorrowful",
		"grief songs", "nostalgic music", "blue mood",
	},
	Energetic: {
		"workout music", "pump up songs", "energetic hits", "party music",
		"power songs", "intense music", "adrenaline rush", "high energy",
		"motivation music", "gym playlist", "cardio music", "running songs",
		"beast mode", "power workout", "energy boost",
	},
	Calm: {
		"chill music", "relaxing songs", "peaceful melodies", "calm vibes",
		"meditation music", "ambient sounds", "soft music", "tranquil",
		"soothing songs", "zen music", "calm piano", "study music",
		"lofi beats", "peaceful piano", "relaxation",
	},
}

// preferenceBuckets narrows an emotion's keyword pool by the user's
// per-emotion sub-preference from the initial survey.
var preferenceBuckets = map[Emotion]map[string][]string{
	Happy: {
		"upbeat":    {"upbeat pop", "party hits", "dance pop", "happy beats"},
		"cheerful":  {"cheerful hits", "feel good music", "smile songs", "sunshine songs"},
		"energetic": {"dance pop", "party hits", "celebration songs", "fun music"},
	},
	Sad: {
		"melancholic": {"melancholy music", "melancholic", "sad piano", "sorrowful"},
		"uplifting":   {"emotional ballads", "emotional music", "nostalgic music", "heartbreak songs"},
		"calm":        {"sad piano", "blue mood", "lonely songs", "nostalgic music"},
	},
	Energetic: {
		"intense": {"intense music", "power songs", "adrenaline rush", "beast mode"},
		"workout": {"workout music", "gym playlist", "cardio music", "power workout"},
		"dance":   {"party music", "high energy", "energy boost", "pump up songs"},
	},
	Calm: {
		"ambient":  {"ambient sounds", "meditation music", "zen music", "lofi beats"},
		"acoustic": {"calm piano", "peaceful piano", "soft music", "peaceful melodies"},
		"soft":     {"soothing songs", "relaxing songs", "chill music", "calm vibes"},
	},
}

// fallbackKeywords is used when an emotion has no pool, which only happens
// for values outside the supported set.
var fallbackKeywords = []string{"popular music"}

// Keywords returns the search keyword pool for an emotion, narrowed to the
// preference bucket when the preference is recognized. An empty or unknown
// preference returns the full pool.
func Keywords(e Emotion, preference string) []string {
	if preference != "" {
		if buckets, ok := preferenceBuckets[e]; ok {
			if kws, ok := buckets[preference]; ok {
				return kws
			}
		}
	}
	if pool, ok := keywordPools[e]; ok {
		return pool
	}
	return fallbackKeywords
}

// PickKeywords selects up to n distinct keywords from the pool, uniformly at
// random. The pool itself is not modified.
func PickKeywords(rng *rand.Rand, pool []string, n int) []string {
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
