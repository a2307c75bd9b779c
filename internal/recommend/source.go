// Package recommend implements the recommendation engine: it turns an
// emotion into an ordered list of matching tracks using a candidate source
// (the music catalog API) and the emotion model.
package recommend

import (
	"context"
	"errors"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"
)

// ErrTokenExpired is returned when the candidate source rejects the access
// credential. The caller is expected to refresh the token and retry the
// whole recommendation flow exactly once.
var ErrTokenExpired = errors.New("access token expired")

// Image is one variant of an album cover.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Album holds the album metadata carried on a track.
type Album struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a catalog track, annotated with an emotion and a match score
// once it has passed through the engine.
type Track struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []string        `json:"artists"`
	Album      Album           `json:"album"`
	DurationMS int             `json:"duration_ms"`
	PreviewURL string          `json:"preview_url"`
	URI        string          `json:"uri"`
	Emotion    emotion.Emotion `json:"emotion,omitempty"`
	MatchScore int             `json:"matchScore,omitempty"`
}

// CandidateSource is the narrow surface of the music catalog API the engine
// consumes. Implementations translate credential rejections (HTTP 401) to
// ErrTokenExpired.
type CandidateSource interface {
	// SearchTracks runs a keyword search for tracks.
	SearchTracks(ctx context.Context, query string, limit int) ([]Track, error)

	// GetAudioFeatures returns feature vectors aligned positionally with
	// ids; a nil entry means features are unavailable for that id.
	GetAudioFeatures(ctx context.Context, ids []string) ([]*emotion.AudioFeatures, error)

	// GetRecommendations returns tracks similar to the seeds, biased toward
	// the target profile.
	GetRecommendations(ctx context.Context, seedIDs []string, target emotion.TargetProfile) ([]Track, error)
}
