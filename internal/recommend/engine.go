package recommend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"sort"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"
)

const (
	// DefaultLimit is the number of tracks returned when the request does
	// not specify one.
	DefaultLimit = 20

	// maxSeeds caps the seed tracks passed to the recommendation call.
	maxSeeds = 5

	// keywordSearches is the number of keyword searches the keyword mode
	// runs per request.
	keywordSearches = 4

	// keywordSearchLimit is the result count requested per keyword search.
	keywordSearchLimit = 15

	// fallbackSeedID is used when the seed search fails or comes back
	// empty, so a momentary search outage never fails the whole request.
	fallbackSeedID = "4uLU6hMCjMI75M1A2tKUQC"
)

// Mode selects the recommendation strategy.
type Mode string

const (
	// ModeFeatures is the primary strategy: seed-based candidates scored
	// against the emotion's target profile.
	ModeFeatures Mode = "features"

	// ModeKeywords is the fallback strategy for when feature enrichment is
	// unavailable: keyword searches, shuffled, with synthetic scores.
	ModeKeywords Mode = "keywords"
)

// seedQueries biases the seed search per emotion.
var seedQueries = map[emotion.Emotion]string{
	emotion.Happy:     "happy pop",
	emotion.Sad:       "sad songs",
	emotion.Energetic: "workout music",
	emotion.Calm:      "chill music",
}

// Request describes one recommendation call. It is built per inbound
// request and never persisted.
type Request struct {
	Emotion    emotion.Emotion
	Limit      int
	Preference string // optional per-emotion sub-preference bucket
}

// Engine orchestrates candidate retrieval, deduplication, scoring and
// ranking. One Engine is built per request credential; it holds no state
// shared across requests.
type Engine struct {
	source CandidateSource
	mode   Mode
	rng    *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithMode selects the recommendation strategy. Default is ModeFeatures.
func WithMode(m Mode) Option {
	return func(e *Engine) { e.mode = m }
}

// WithRand injects the random source used for keyword selection and
// shuffling, so tests can pin outcomes.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// New creates an Engine over the given candidate source.
func New(source CandidateSource, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		mode:   ModeFeatures,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend returns an ordered list of at most req.Limit tracks matching
// the requested emotion. An empty result is a valid outcome, not an error.
func (e *Engine) Recommend(ctx context.Context, req Request) ([]Track, error) {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if e.mode == ModeKeywords {
		return e.recommendByKeywords(ctx, req)
	}
	return e.recommendByFeatures(ctx, req)
}

// recommendByFeatures runs the feature-driven strategy: find seed tracks,
// ask the source for similar tracks biased toward the emotion's target
// profile, then classify and score each candidate by its audio features.
func (e *Engine) recommendByFeatures(ctx context.Context, req Request) ([]Track, error) {
	profile := emotion.TargetFeatures(req.Emotion)

	seeds := e.findSeeds(ctx, req.Emotion)

	candidates, err := e.source.GetRecommendations(ctx, seeds, profile)
	if err != nil {
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}
	candidates = dedupeByID(candidates)
	if len(candidates) == 0 {
		return []Track{}, nil
	}

	ids := make([]string, len(candidates))
	for i, t := range candidates {
		ids[i] = t.ID
	}

	features, err := e.source.GetAudioFeatures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching audio features: %w", err)
	}

	scored := make([]Track, 0, len(candidates))
	for i, f := range features {
		if i >= len(candidates) {
			break
		}
		if f == nil {
			// No feature vector, nothing to score against.
			continue
		}
		t := candidates[i]
		t.Emotion = emotion.Classify(*f)
		t.MatchScore = emotion.Score(*f, req.Emotion)
		scored = append(scored, t)
	}

	// Stable sort keeps the source's relative order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].MatchScore > scored[j].MatchScore
	})

	if len(scored) > req.Limit {
		scored = scored[:req.Limit]
	}
	return scored, nil
}

// findSeeds searches for seed track ids biased by the emotion. Seed search
// is non-critical: on failure or empty result it falls back to a single
// hardcoded seed instead of failing the request.
func (e *Engine) findSeeds(ctx context.Context, em emotion.Emotion) []string {
	query, ok := seedQueries[em]
	if !ok {
		query = seedQueries[emotion.Calm]
	}

	tracks, err := e.source.SearchTracks(ctx, query, maxSeeds)
	if err != nil || len(tracks) == 0 {
		if err != nil {
			log.Printf("seed search %q failed, using fallback seed: %v", query, err)
		}
		return []string{fallbackSeedID}
	}

	seeds := make([]string, 0, maxSeeds)
	for _, t := range tracks {
		seeds = append(seeds, t.ID)
		if len(seeds) == maxSeeds {
			break
		}
	}
	return seeds
}

// recommendByKeywords runs the keyword-only strategy: a few random keyword
// searches merged, deduplicated and shuffled. The match scores it assigns
// are synthetic presentation values in [75,95), not a real signal.
func (e *Engine) recommendByKeywords(ctx context.Context, req Request) ([]Track, error) {
	pool := emotion.Keywords(req.Emotion, req.Preference)
	keywords := emotion.PickKeywords(e.rng, pool, keywordSearches)

	var merged []Track
	for _, kw := range keywords {
		tracks, err := e.source.SearchTracks(ctx, kw, keywordSearchLimit)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				return nil, fmt.Errorf("searching %q: %w", kw, err)
			}
			// Individual keyword failures are absorbed; the other
			// searches still contribute candidates.
			log.Printf("search %q failed: %v", kw, err)
			continue
		}
		merged = append(merged, tracks...)
	}

	unique := dedupeByID(merged)
	if len(unique) == 0 {
		return []Track{}, nil
	}

	e.rng.Shuffle(len(unique), func(i, j int) {
		unique[i], unique[j] = unique[j], unique[i]
	})

	if len(unique) > req.Limit {
		unique = unique[:req.Limit]
	}
	for i := range unique {
		unique[i].Emotion = req.Emotion
		unique[i].MatchScore = 75 + e.rng.IntN(20)
	}
	return unique, nil
}

// dedupeByID removes duplicate tracks, keeping the first occurrence of each
// id so relative order is preserved.
func dedupeByID(tracks []Track) []Track {
	seen := make(map[string]bool, len(tracks))
	unique := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		unique = append(unique, t)
	}
	return unique
}
