package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"
)

// fakeSource is a scriptable CandidateSource for engine tests.
type fakeSource struct {
	searchResults map[string][]Track // query -> results
	searchErr     error
	searchCalls   []string

	recommendations []Track
	recommendErr    error
	gotSeeds        []string
	gotProfile      emotion.TargetProfile

	features    map[string]*emotion.AudioFeatures // id -> features (missing = nil)
	featuresErr error
}

func (f *fakeSource) SearchTracks(_ context.Context, query string, _ int) ([]Track, error) {
	f.searchCalls = append(f.searchCalls, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults[query], nil
}

func (f *fakeSource) GetAudioFeatures(_ context.Context, ids []string) ([]*emotion.AudioFeatures, error) {
	if f.featuresErr != nil {
		return nil, f.featuresErr
	}
	out := make([]*emotion.AudioFeatures, len(ids))
	for i, id := range ids {
		out[i] = f.features[id]
	}
	return out, nil
}

func (f *fakeSource) GetRecommendations(_ context.Context, seedIDs []string, target emotion.TargetProfile) ([]Track, error) {
	f.gotSeeds = seedIDs
	f.gotProfile = target
	if f.recommendErr != nil {
		return nil, f.recommendErr
	}
	return f.recommendations, nil
}

func track(id string) Track {
	return Track{ID: id, Name: "track " + id}
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 7))
}

func TestRecommendByFeatures(t *testing.T) {
	src := &fakeSource{
		searchResults: map[string][]Track{
			"happy pop": {track("s1"), track("s2")},
		},
		recommendations: []Track{track("a"), track("b"), track("c")},
		features: map[string]*emotion.AudioFeatures{
			"a": {Valence: 0.9, Energy: 0.8, Danceability: 0.5, Acousticness: 0.1},
			"b": {Valence: 0.2, Energy: 0.3},
			// c has no features and must be dropped
		},
	}

	engine := New(src, WithRand(testRand()))
	got, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d tracks, want 2 (candidate without features dropped)", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("ranking = [%s %s], want [a b]", got[0].ID, got[1].ID)
	}
	if got[0].MatchScore != 90 {
		t.Errorf("track a score = %d, want 90", got[0].MatchScore)
	}
	// The emotion carried on the track is the classified one, which can
	// differ from the requested emotion.
	if got[0].Emotion != emotion.Happy {
		t.Errorf("track a emotion = %q, want happy", got[0].Emotion)
	}
	if got[1].Emotion != emotion.Sad {
		t.Errorf("track b emotion = %q, want sad (classified, not requested)", got[1].Emotion)
	}

	if len(src.gotSeeds) != 2 || src.gotSeeds[0] != "s1" {
		t.Errorf("seeds = %v, want the searched track ids", src.gotSeeds)
	}
	if src.gotProfile.TargetValence == nil || *src.gotProfile.TargetValence != 0.8 {
		t.Errorf("recommendation profile = %+v, want the happy profile", src.gotProfile)
	}
}

func TestRecommendFallbackSeed(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSource
	}{
		{
			name: "seed search error",
			src: &fakeSource{
				searchErr:       errors.New("network down"),
				recommendations: []Track{track("a")},
				features: map[string]*emotion.AudioFeatures{
					"a": {Valence: 0.9, Energy: 0.8},
				},
			},
		},
		{
			name: "seed search empty",
			src: &fakeSource{
				recommendations: []Track{track("a")},
				features: map[string]*emotion.AudioFeatures{
					"a": {Valence: 0.9, Energy: 0.8},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := New(tt.src, WithRand(testRand()))
			got, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy})
			if err != nil {
				t.Fatalf("Recommend returned error: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("got %d tracks, want 1", len(got))
			}
			if len(tt.src.gotSeeds) != 1 || tt.src.gotSeeds[0] != fallbackSeedID {
				t.Errorf("seeds = %v, want the single fallback seed", tt.src.gotSeeds)
			}
		})
	}
}

func TestRecommendCandidateFetchFailurePropagates(t *testing.T) {
	src := &fakeSource{
		searchResults: map[string][]Track{"happy pop": {track("s1")}},
		recommendErr:  errors.New("upstream 503"),
	}
	engine := New(src, WithRand(testRand()))

	_, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy})
	if err == nil {
		t.Fatal("expected error from failed candidate fetch")
	}
}

func TestRecommendTokenExpiredPropagates(t *testing.T) {
	src := &fakeSource{
		searchResults: map[string][]Track{"happy pop": {track("s1")}},
		recommendErr:  fmt.Errorf("recommendations: %w", ErrTokenExpired),
	}
	engine := New(src, WithRand(testRand()))

	_, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy})
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("error = %v, want ErrTokenExpired", err)
	}
}

func TestRecommendDedupesBeforeRanking(t *testing.T) {
	src := &fakeSource{
		searchResults: map[string][]Track{"happy pop": {track("s1")}},
		recommendations: []Track{
			track("a"), track("b"), track("a"), track("c"), track("b"),
		},
		features: map[string]*emotion.AudioFeatures{
			"a": {Valence: 0.8, Energy: 0.7},
			"b": {Valence: 0.5, Energy: 0.5},
			"c": {Valence: 0.6, Energy: 0.6},
		},
	}
	engine := New(src, WithRand(testRand()))

	got, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d tracks, want 3 unique", len(got))
	}
	seen := make(map[string]bool)
	for _, tr := range got {
		if seen[tr.ID] {
			t.Errorf("duplicate id %q in results", tr.ID)
		}
		seen[tr.ID] = true
	}
}

func TestRecommendRankingStableAndTruncated(t *testing.T) {
	// Features tuned so the scores are [80, 95, 80, 60]; the two 80s must
	// keep their original relative order.
	src := &fakeSource{
		searchResults: map[string][]Track{"happy pop": {track("s1")}},
		recommendations: []Track{
			track("first80"), track("top"), track("second80"), track("low"),
		},
		features: map[string]*emotion.AudioFeatures{
			"first80":  {Valence: 0.6, Energy: 0.5}, // (80 + 80) / 2 = 80
			"top":      {Valence: 0.85, Energy: 0.75},
			"second80": {Valence: 0.8, Energy: 0.3}, // (100 + 60) / 2 = 80
			"low":      {Valence: 0.4, Energy: 0.3}, // (60 + 60) / 2 = 60
		},
	}
	engine := New(src, WithRand(testRand()))

	got, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	wantOrder := []string{"top", "first80", "second80", "low"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("position %d = %q, want %q (order %v)", i, got[i].ID, want, got)
		}
	}

	t.Run("truncates to limit", func(t *testing.T) {
		got, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy, Limit: 2})
		if err != nil {
			t.Fatalf("Recommend returned error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d tracks, want 2", len(got))
		}
		if got[0].ID != "top" || got[1].ID != "first80" {
			t.Errorf("top-2 = [%s %s], want [top first80]", got[0].ID, got[1].ID)
		}
	})
}

func TestRecommendEmptyResultIsNotError(t *testing.T) {
	src := &fakeSource{
		searchResults: map[string][]Track{"happy pop": {track("s1")}},
	}
	engine := New(src, WithRand(testRand()))

	got, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d tracks, want 0", len(got))
	}
}

func TestRecommendByKeywords(t *testing.T) {
	// Every keyword search returns the same overlapping batch plus one
	// keyword-specific track, to exercise merging and deduplication.
	results := make(map[string][]Track)
	for i, kw := range emotion.Keywords(emotion.Happy, "") {
		results[kw] = []Track{track("shared"), track(fmt.Sprintf("kw%d", i))}
	}
	src := &fakeSource{searchResults: results}
	engine := New(src, WithMode(ModeKeywords), WithRand(testRand()))

	got, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}

	if len(src.searchCalls) != 4 {
		t.Errorf("ran %d searches, want 4", len(src.searchCalls))
	}
	// 4 keyword-specific tracks + 1 shared track after dedup.
	if len(got) != 5 {
		t.Fatalf("got %d tracks, want 5 unique", len(got))
	}

	seen := make(map[string]bool)
	for _, tr := range got {
		if seen[tr.ID] {
			t.Errorf("duplicate id %q after shuffle", tr.ID)
		}
		seen[tr.ID] = true

		// Synthetic presentation scores, not a real signal.
		if tr.MatchScore < 75 || tr.MatchScore >= 95 {
			t.Errorf("track %q synthetic score = %d, want in [75,95)", tr.ID, tr.MatchScore)
		}
		// Keyword mode annotates with the requested emotion; no features
		// are available to classify.
		if tr.Emotion != emotion.Happy {
			t.Errorf("track %q emotion = %q, want requested emotion", tr.ID, tr.Emotion)
		}
	}
}

func TestRecommendByKeywordsPreferenceBucket(t *testing.T) {
	results := make(map[string][]Track)
	for _, kw := range emotion.Keywords(emotion.Happy, "upbeat") {
		results[kw] = []Track{track(kw)}
	}
	src := &fakeSource{searchResults: results}
	engine := New(src, WithMode(ModeKeywords), WithRand(testRand()))

	_, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Happy, Preference: "upbeat"})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}

	bucket := emotion.Keywords(emotion.Happy, "upbeat")
	for _, q := range src.searchCalls {
		found := false
		for _, kw := range bucket {
			if q == kw {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("searched %q, outside the upbeat bucket %v", q, bucket)
		}
	}
}

func TestRecommendByKeywordsSwallowsSearchFailures(t *testing.T) {
	src := &fakeSource{searchErr: errors.New("network down")}
	engine := New(src, WithMode(ModeKeywords), WithRand(testRand()))

	got, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Calm})
	if err != nil {
		t.Fatalf("Recommend returned error: %v, want failures absorbed", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d tracks, want 0", len(got))
	}
}

func TestRecommendByKeywordsTokenExpiredPropagates(t *testing.T) {
	src := &fakeSource{searchErr: fmt.Errorf("search: %w", ErrTokenExpired)}
	engine := New(src, WithMode(ModeKeywords), WithRand(testRand()))

	_, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Calm})
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("error = %v, want ErrTokenExpired", err)
	}
}

func TestRecommendByKeywordsTruncates(t *testing.T) {
	results := make(map[string][]Track)
	for i, kw := range emotion.Keywords(emotion.Energetic, "") {
		var batch []Track
		for j := 0; j < 15; j++ {
			batch = append(batch, track(fmt.Sprintf("%d-%d", i, j)))
		}
		results[kw] = batch
	}
	src := &fakeSource{searchResults: results}
	engine := New(src, WithMode(ModeKeywords), WithRand(testRand()))

	got, err := engine.Recommend(context.Background(), Request{Emotion: emotion.Energetic, Limit: 7})
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("got %d tracks, want limit 7", len(got))
	}
}

func TestDedupeByID(t *testing.T) {
	batch1 := []Track{track("a"), track("b"), track("c")}
	batch2 := []Track{track("b"), track("c"), track("d")}

	merged := dedupeByID(append(batch1, batch2...))
	if len(merged) != 4 {
		t.Fatalf("merged %d tracks, want 4 (union by id)", len(merged))
	}
	wantOrder := []string{"a", "b", "c", "d"}
	for i, want := range wantOrder {
		if merged[i].ID != want {
			t.Errorf("position %d = %q, want %q", i, merged[i].ID, want)
		}
	}
}
