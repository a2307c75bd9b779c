// Package profile summarizes a user's listening taste by clustering the
// audio features of tracks they have listened to into named mood clusters.
package profile

import (
	"log"
	"slices"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"
)

// Config holds clustering parameters.
type Config struct {
	NumClusters    int // number of mood clusters to build (default 3)
	MinClusterSize int // smaller clusters become outliers (default 3)
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{
		NumClusters:    3,
		MinClusterSize: 3,
	}
}

// Listen is one listened track with its audio features.
type Listen struct {
	TrackID  string
	Features emotion.AudioFeatures
}

// MoodCluster is a group of listens with a similar sonic character.
type MoodCluster struct {
	Name     string                `json:"name"`
	Emotion  emotion.Emotion       `json:"emotion"`
	Size     int                   `json:"size"`
	Centroid emotion.AudioFeatures `json:"centroid"`
	TrackIDs []string              `json:"trackIds"`
}

// listenObservation wraps a Listen to implement clusters.Observation.
type listenObservation struct {
	listen *Listen
	coords clusters.Coordinates
}

func (o listenObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o listenObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// Build groups listens into mood clusters with k-means over the four audio
// features. Listens in clusters below the minimum size come back as
// outlier track ids. Clusters are ordered largest first.
func Build(listens []Listen, cfg Config) ([]MoodCluster, []string) {
	if len(listens) == 0 {
		return nil, nil
	}
	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultConfig().NumClusters
	}

	if len(listens) < cfg.NumClusters {
		return nil, trackIDs(listens)
	}

	var obs clusters.Observations
	for i := range listens {
		obs = append(obs, listenObservation{
			listen: &listens[i],
			coords: coordinates(listens[i].Features),
		})
	}

	km := kmeans.New()
	result, err := km.Partition(obs, cfg.NumClusters)
	if err != nil {
		log.Printf("k-means partition failed, reporting all listens as outliers: %v", err)
		return nil, trackIDs(listens)
	}

	var moods []MoodCluster
	var outliers []string

	for _, cluster := range result {
		var ids []string
		for _, o := range cluster.Observations {
			if lo, ok := o.(listenObservation); ok {
				ids = append(ids, lo.listen.TrackID)
			}
		}

		if len(ids) < cfg.MinClusterSize {
			outliers = append(outliers, ids...)
			continue
		}

		centroid := centroidFeatures(cluster.Center)
		moods = append(moods, MoodCluster{
			Name:     moodName(centroid),
			Emotion:  emotion.Classify(centroid),
			Size:     len(ids),
			Centroid: centroid,
			TrackIDs: ids,
		})
	}

	slices.SortFunc(moods, func(a, b MoodCluster) int {
		return b.Size - a.Size
	})

	return moods, outliers
}

// coordinates maps features to the clustering space. The order here must
// match centroidFeatures.
func coordinates(f emotion.AudioFeatures) clusters.Coordinates {
	return clusters.Coordinates{f.Energy, f.Valence, f.Danceability, f.Acousticness}
}

func centroidFeatures(center clusters.Coordinates) emotion.AudioFeatures {
	if len(center) < 4 {
		return emotion.AudioFeatures{}
	}
	return emotion.AudioFeatures{
		Energy:       center[0],
		Valence:      center[1],
		Danceability: center[2],
		Acousticness: center[3],
	}
}

func trackIDs(listens []Listen) []string {
	ids := make([]string, len(listens))
	for i, l := range listens {
		ids[i] = l.TrackID
	}
	return ids
}
