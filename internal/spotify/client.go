// Package spotify adapts the Spotify Web API to the recommendation
// engine's candidate source contract.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"
	"github.com/moodtracks/go-spotify-mood-recommender/internal/recommend"
)

const (
	// maxFeaturesPerRequest is the Spotify audio-features batch limit.
	maxFeaturesPerRequest = 100

	// maxTracksPerRequest is the Spotify track-lookup batch limit.
	maxTracksPerRequest = 50

	// candidateLimit is the number of candidates requested from the
	// recommendations endpoint.
	candidateLimit = 20
)

// Client wraps the Spotify API client behind recommend.CandidateSource.
type Client struct {
	api *spotify.Client
}

// New creates a Client. The underlying API client must already carry an
// access token.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// SearchTracks runs a track search for the query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]recommend.Track, error) {
	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, wrapErr("searching tracks", err)
	}
	if result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]recommend.Track, 0, len(result.Tracks.Tracks))
	for _, ft := range result.Tracks.Tracks {
		tracks = append(tracks, convertTrack(ft))
	}
	return tracks, nil
}

// GetAudioFeatures fetches feature vectors for the given track ids, in
// batches of up to 100. The result is aligned positionally with ids; a nil
// entry means Spotify has no features for that track.
func (c *Client) GetAudioFeatures(ctx context.Context, ids []string) ([]*emotion.AudioFeatures, error) {
	out := make([]*emotion.AudioFeatures, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	indexByID := make(map[string]int, len(ids))
	spotifyIDs := make([]spotify.ID, len(ids))
	for i, id := range ids {
		indexByID[id] = i
		spotifyIDs[i] = spotify.ID(id)
	}

	for start := 0; start < len(spotifyIDs); start += maxFeaturesPerRequest {
		end := min(start+maxFeaturesPerRequest, len(spotifyIDs))
		batch := spotifyIDs[start:end]

		features, err := c.api.GetAudioFeatures(ctx, batch...)
		if err != nil {
			return nil, wrapErr(fmt.Sprintf("fetching audio features (batch %d-%d)", start+1, end), err)
		}

		for _, f := range features {
			if f == nil {
				continue
			}
			idx, ok := indexByID[f.ID.String()]
			if !ok {
				continue
			}
			out[idx] = &emotion.AudioFeatures{
				Valence:      float64(f.Valence),
				Energy:       float64(f.Energy),
				Danceability: float64(f.Danceability),
				Acousticness: float64(f.Acousticness),
			}
		}
	}
	return out, nil
}

// GetRecommendations asks Spotify for tracks similar to the seeds, biased
// toward the target profile, and resolves them to full track metadata.
func (c *Client) GetRecommendations(ctx context.Context, seedIDs []string, target emotion.TargetProfile) ([]recommend.Track, error) {
	seeds := spotify.Seeds{Tracks: make([]spotify.ID, len(seedIDs))}
	for i, id := range seedIDs {
		seeds.Tracks[i] = spotify.ID(id)
	}

	recs, err := c.api.GetRecommendations(ctx, seeds, trackAttributes(target), spotify.Limit(candidateLimit))
	if err != nil {
		return nil, wrapErr("fetching recommendations", err)
	}
	if len(recs.Tracks) == 0 {
		return nil, nil
	}

	// The recommendations endpoint returns simplified tracks without album
	// art; resolve them to full tracks.
	ids := make([]spotify.ID, len(recs.Tracks))
	for i, t := range recs.Tracks {
		ids[i] = t.ID
	}

	var tracks []recommend.Track
	for start := 0; start < len(ids); start += maxTracksPerRequest {
		end := min(start+maxTracksPerRequest, len(ids))

		full, err := c.api.GetTracks(ctx, ids[start:end])
		if err != nil {
			return nil, wrapErr("fetching track details", err)
		}
		for _, ft := range full {
			if ft == nil {
				continue
			}
			tracks = append(tracks, convertTrack(*ft))
		}
	}
	return tracks, nil
}

// trackAttributes converts a target profile to Spotify track attributes.
func trackAttributes(p emotion.TargetProfile) *spotify.TrackAttributes {
	attrs := spotify.NewTrackAttributes()
	if p.TargetValence != nil {
		attrs = attrs.TargetValence(*p.TargetValence)
	}
	if p.TargetEnergy != nil {
		attrs = attrs.TargetEnergy(*p.TargetEnergy)
	}
	if p.TargetDanceability != nil {
		attrs = attrs.TargetDanceability(*p.TargetDanceability)
	}
	if p.TargetAcousticness != nil {
		attrs = attrs.TargetAcousticness(*p.TargetAcousticness)
	}
	if p.MinValence != nil {
		attrs = attrs.MinValence(*p.MinValence)
	}
	if p.MaxValence != nil {
		attrs = attrs.MaxValence(*p.MaxValence)
	}
	if p.MinEnergy != nil {
		attrs = attrs.MinEnergy(*p.MinEnergy)
	}
	if p.MaxEnergy != nil {
		attrs = attrs.MaxEnergy(*p.MaxEnergy)
	}
	return attrs
}

// convertTrack converts a Spotify track to the engine's track type.
func convertTrack(ft spotify.FullTrack) recommend.Track {
	artists := make([]string, len(ft.Artists))
	for i, a := range ft.Artists {
		artists[i] = a.Name
	}

	images := make([]recommend.Image, len(ft.Album.Images))
	for i, img := range ft.Album.Images {
		images[i] = recommend.Image{
			URL:    img.URL,
			Height: int(img.Height),
			Width:  int(img.Width),
		}
	}

	return recommend.Track{
		ID:      ft.ID.String(),
		Name:    ft.Name,
		Artists: artists,
		Album: recommend.Album{
			Name:   ft.Album.Name,
			Images: images,
		},
		DurationMS: int(ft.Duration),
		PreviewURL: ft.PreviewURL,
		URI:        string(ft.URI),
	}
}

// wrapErr adds operation context and translates 401 responses to the
// engine's credential-expired error so the caller can refresh and retry.
func wrapErr(op string, err error) error {
	var spErr spotify.Error
	if errors.As(err, &spErr) && spErr.Status == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, recommend.ErrTokenExpired)
	}
	return fmt.Errorf("%s: %w", op, err)
}
