// Package emotion implements the emotion model: a rule-based classifier
// mapping audio features to emotion labels, static target profiles per
// emotion, and a 0-100 match scorer.
package emotion

import "strings"

// Emotion is a discrete emotion tag for a track or a listening mood.
type Emotion string

const (
	Happy     Emotion = "happy"
	Sad       Emotion = "sad"
	Energetic Emotion = "energetic"
	Calm      Emotion = "calm"
)

// All returns the supported emotions in canonical order.
func All() []Emotion {
	return []Emotion{Happy, Sad, Energetic, Calm}
}

// Valid reports whether e is one of the four supported emotions.
func (e Emotion) Valid() bool {
	switch e {
	case Happy, Sad, Energetic, Calm:
		return true
	}
	return false
}

// labelMapping maps raw detector labels to supported emotions.
var labelMapping = map[string]Emotion{
	"happy":     Happy,
	"joy":       Happy,
	"excited":   Energetic,
	"angry":     Energetic,
	"energetic": Energetic,
	"sad":       Sad,
	"fear":      Sad,
	"neutral":   Calm,
	"calm":      Calm,
	"relaxed":   Calm,
}

// Parse maps a raw emotion label (e.g. from a face-detection model) to a
// supported Emotion. Unrecognized labels map to Calm.
func Parse(label string) Emotion {
	if e, ok := labelMapping[strings.ToLower(label)]; ok {
		return e
	}
	return Calm
}

// Mapping returns a copy of the raw-label mapping table.
func Mapping() map[string]Emotion {
	m := make(map[string]Emotion, len(labelMapping))
	for k, v := range labelMapping {
		m[k] = v
	}
	return m
}

// AudioFeatures holds the continuous audio descriptors used by the model.
// All values are conventionally in [0,1].
type AudioFeatures struct {
	Valence      float64 `json:"valence"`
	Energy       float64 `json:"energy"`
	Danceability float64 `json:"danceability"`
	Acousticness float64 `json:"acousticness"`
}

// TargetProfile describes the desired region of feature space for one
// emotion. Nil fields are absent; target_* fields bias recommendation
// requests, and target valence/energy additionally drive match scoring.
type TargetProfile struct {
	TargetValence      *float64
	TargetEnergy       *float64
	TargetDanceability *float64
	TargetAcousticness *float64
	MinValence         *float64
	MinEnergy          *float64
	MaxValence         *float64
	MaxEnergy          *float64
}
