// Package detect provides the emotion-source capability: either a real
// detection model reached over HTTP, or an explicitly configured simulation.
package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"
)

// modelTimeout bounds the call to a remote detection model; past it the
// service degrades to a simulated result instead of blocking the request.
const modelTimeout = 10 * time.Second

// Result is one emotion detection.
type Result struct {
	Emotion    emotion.Emotion `json:"emotion"`
	Confidence float64         `json:"confidence"`
	Simulation bool            `json:"simulation"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Detector produces emotion detections.
type Detector interface {
	Detect(ctx context.Context) (Result, error)
}

// Simulated returns a uniformly random emotion with a confidence in
// [0.7,1.0). It stands in for a real detection model and always labels its
// results as simulated.
type Simulated struct {
	rng *rand.Rand
	now func() time.Time
}

// NewSimulated creates a simulated detector. A nil rng falls back to a
// self-seeded source.
func NewSimulated(rng *rand.Rand) *Simulated {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulated{rng: rng, now: time.Now}
}

// Detect returns a random detection.
func (s *Simulated) Detect(_ context.Context) (Result, error) {
	all := emotion.All()
	return Result{
		Emotion:    all[s.rng.IntN(len(all))],
		Confidence: 0.7 + s.rng.Float64()*0.3,
		Simulation: true,
		Timestamp:  s.now(),
	}, nil
}

// Remote calls an external detection model over HTTP and degrades to a
// simulated result when the model is unreachable or too slow.
type Remote struct {
	url      string
	client   *http.Client
	fallback *Simulated
	now      func() time.Time
}

// NewRemote creates a remote detector for the model at url.
func NewRemote(url string, fallback *Simulated) *Remote {
	return &Remote{
		url:      url,
		client:   &http.Client{Timeout: modelTimeout},
		fallback: fallback,
		now:      time.Now,
	}
}

// Detect asks the remote model for a detection. Failures and timeouts fall
// back to the simulated detector; the result is then flagged accordingly.
func (r *Remote) Detect(ctx context.Context) (Result, error) {
	result, err := r.detectRemote(ctx)
	if err != nil {
		log.Printf("remote detection failed, falling back to simulation: %v", err)
		return r.fallback.Detect(ctx)
	}
	return result, nil
}

func (r *Remote) detectRemote(ctx context.Context) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader("{}"))
	if err != nil {
		return Result{}, fmt.Errorf("building model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling detection model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("detection model returned status %d", resp.StatusCode)
	}

	var body struct {
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("decoding model response: %w", err)
	}

	confidence := body.Confidence
	if confidence <= 0 {
		confidence = 1.0
	}
	return Result{
		Emotion:    emotion.Parse(body.Emotion),
		Confidence: confidence,
		Simulation: false,
		Timestamp:  r.now(),
	}, nil
}
