package emotion

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		features AudioFeatures
		want     Emotion
	}{
		{
			name:     "high valence high energy is happy",
			features: AudioFeatures{Valence: 0.9, Energy: 0.8, Danceability: 0.5, Acousticness: 0.1},
			want:     Happy,
		},
		{
			name:     "high energy danceable is energetic",
			features: AudioFeatures{Valence: 0.5, Energy: 0.8, Danceability: 0.7, Acousticness: 0.1},
			want:     Energetic,
		},
		{
			name:     "low valence low energy is sad",
			features: AudioFeatures{Valence: 0.2, Energy: 0.3, Danceability: 0.4, Acousticness: 0.3},
			want:     Sad,
		},
		{
			name:     "acoustic low energy is calm",
			features: AudioFeatures{Valence: 0.45, Energy: 0.4, Danceability: 0.4, Acousticness: 0.7},
			want:     Calm,
		},
		{
			name: "happy rule wins over energetic when both match",
			// Satisfies rule 1 (valence/energy) and rule 2 (energy/danceability).
			features: AudioFeatures{Valence: 0.7, Energy: 0.8, Danceability: 0.9, Acousticness: 0.1},
			want:     Happy,
		},
		{
			name:     "boundary valence 0.6 falls through happy rule",
			features: AudioFeatures{Valence: 0.6, Energy: 0.8, Danceability: 0.7, Acousticness: 0.1},
			want:     Energetic,
		},
		{
			name:     "boundary energy 0.5 falls through sad and calm rules",
			features: AudioFeatures{Valence: 0.3, Energy: 0.5, Danceability: 0.4, Acousticness: 0.6},
			want:     Sad,
		},
		{
			name:     "fallback positive valence moderate energy is happy",
			features: AudioFeatures{Valence: 0.55, Energy: 0.55, Danceability: 0.5, Acousticness: 0.4},
			want:     Happy,
		},
		{
			name:     "fallback positive valence low energy is calm",
			features: AudioFeatures{Valence: 0.55, Energy: 0.45, Danceability: 0.5, Acousticness: 0.4},
			want:     Calm,
		},
		{
			name:     "fallback low valence high energy is energetic",
			features: AudioFeatures{Valence: 0.45, Energy: 0.65, Danceability: 0.5, Acousticness: 0.4},
			want:     Energetic,
		},
		{
			name:     "fallback low valence mid energy is sad",
			features: AudioFeatures{Valence: 0.45, Energy: 0.5, Danceability: 0.5, Acousticness: 0.4},
			want:     Sad,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.features)
			if got != tt.want {
				t.Errorf("Classify(%+v) = %q, want %q", tt.features, got, tt.want)
			}
		})
	}
}

func TestClassifyIsTotalAndDeterministic(t *testing.T) {
	// Sweep a grid over [0,1]^4 and check every point classifies to a valid
	// emotion, and that repeated calls agree.
	steps := []float64{0, 0.25, 0.4, 0.5, 0.6, 0.7, 0.75, 1}
	for _, v := range steps {
		for _, e := range steps {
			for _, d := range steps {
				for _, a := range steps {
					f := AudioFeatures{Valence: v, Energy: e, Danceability: d, Acousticness: a}
					got := Classify(f)
					if !got.Valid() {
						t.Fatalf("Classify(%+v) = %q, not a valid emotion", f, got)
					}
					if again := Classify(f); again != got {
						t.Fatalf("Classify(%+v) not deterministic: %q then %q", f, got, again)
					}
				}
			}
		}
	}
}

func TestTargetFeatures(t *testing.T) {
	t.Run("happy profile", func(t *testing.T) {
		p := TargetFeatures(Happy)
		if p.TargetValence == nil || *p.TargetValence != 0.8 {
			t.Errorf("happy TargetValence = %v, want 0.8", p.TargetValence)
		}
		if p.TargetEnergy == nil || *p.TargetEnergy != 0.7 {
			t.Errorf("happy TargetEnergy = %v, want 0.7", p.TargetEnergy)
		}
		if p.MinValence == nil || *p.MinValence != 0.6 {
			t.Errorf("happy MinValence = %v, want 0.6", p.MinValence)
		}
	})

	t.Run("energetic profile has no valence target", func(t *testing.T) {
		p := TargetFeatures(Energetic)
		if p.TargetValence != nil {
			t.Errorf("energetic TargetValence = %v, want nil", *p.TargetValence)
		}
		if p.TargetDanceability == nil || *p.TargetDanceability != 0.8 {
			t.Errorf("energetic TargetDanceability = %v, want 0.8", p.TargetDanceability)
		}
	})

	t.Run("unknown emotion falls back to calm profile", func(t *testing.T) {
		got := TargetFeatures(Emotion("confused"))
		want := TargetFeatures(Calm)
		if *got.TargetEnergy != *want.TargetEnergy || *got.TargetAcousticness != *want.TargetAcousticness {
			t.Errorf("unknown emotion profile = %+v, want calm profile %+v", got, want)
		}
		if got.TargetValence != nil {
			t.Errorf("unknown emotion profile has TargetValence %v, calm defines none", *got.TargetValence)
		}
	})
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		features AudioFeatures
		target   Emotion
		want     int
	}{
		{
			name:     "exact match scores 100",
			features: AudioFeatures{Valence: 0.8, Energy: 0.7},
			target:   Happy,
			want:     100,
		},
		{
			name:     "near match averages both dimensions",
			features: AudioFeatures{Valence: 0.9, Energy: 0.8, Danceability: 0.5, Acousticness: 0.1},
			target:   Happy,
			want:     90, // (1-0.1)*100 and (1-0.1)*100, averaged
		},
		{
			name:     "divergence discounts a dimension linearly",
			features: AudioFeatures{Valence: 1.0, Energy: 0.3},
			target:   Sad, // targets valence 0.2, energy 0.3
			want:     60,  // (1-0.8)*100=20 and (1-0)*100=100, averaged
		},
		{
			name:     "energetic scores on energy only",
			features: AudioFeatures{Valence: 0.0, Energy: 0.9},
			target:   Energetic,
			want:     100,
		},
		{
			name:     "calm scores on energy only",
			features: AudioFeatures{Valence: 1.0, Energy: 0.5, Acousticness: 0.0},
			target:   Calm, // target energy 0.3
			want:     80,
		},
		{
			name:     "averages uneven dimension scores",
			features: AudioFeatures{Valence: 0.9, Energy: 0.74},
			target:   Happy,
			want:     93, // (90 + 96) / 2
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.features, tt.target)
			if got != tt.want {
				t.Errorf("Score(%+v, %q) = %d, want %d", tt.features, tt.target, got, tt.want)
			}
		})
	}
}

func TestScoreRange(t *testing.T) {
	steps := []float64{0, 0.2, 0.5, 0.8, 1}
	for _, e := range All() {
		for _, v := range steps {
			for _, en := range steps {
				f := AudioFeatures{Valence: v, Energy: en}
				got := Score(f, e)
				if got < 0 || got > 100 {
					t.Fatalf("Score(%+v, %q) = %d, outside [0,100]", f, e, got)
				}
			}
		}
	}
}

func TestScoreGuardsEmptyProfile(t *testing.T) {
	// An empty scored profile cannot come from the shipped table, so exercise
	// the guard through the package-internal map.
	targetProfiles["test-empty"] = TargetProfile{}
	defer delete(targetProfiles, "test-empty")

	if got := Score(AudioFeatures{Valence: 0.5, Energy: 0.5}, "test-empty"); got != 0 {
		t.Errorf("Score with empty profile = %d, want 0", got)
	}
}
