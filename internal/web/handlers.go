package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/detect"
	"github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"
	"github.com/moodtracks/go-spotify-mood-recommender/internal/history"
	"github.com/moodtracks/go-spotify-mood-recommender/internal/profile"
	"github.com/moodtracks/go-spotify-mood-recommender/internal/recommend"
	spotifysource "github.com/moodtracks/go-spotify-mood-recommender/internal/spotify"
)

// Recommender is the slice of the engine the handlers need; tests install
// fakes through it.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) ([]recommend.Track, error)
}

// Handlers holds the API handlers and their dependencies.
type Handlers struct {
	auth         *spotifyauth.Authenticator
	sessions     *SessionStore
	store        *history.Store
	detector     detect.Detector
	engineMode   recommend.Mode
	defaultLimit int
	now          func() time.Time

	// engineFor builds a per-request recommender for a credential,
	// sourceFor builds the raw candidate source, and refreshFn runs the
	// OAuth refresh grant. All three are replaceable in tests.
	engineFor func(ctx context.Context, token *oauth2.Token) Recommender
	sourceFor func(ctx context.Context, token *oauth2.Token) recommend.CandidateSource
	refreshFn func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	mu          sync.Mutex
	pendingAuth map[string]bool // OAuth state values awaiting callback
}

// NewHandlers creates the API handlers.
func NewHandlers(auth *spotifyauth.Authenticator, sessions *SessionStore, store *history.Store, detector detect.Detector, engineMode recommend.Mode, defaultLimit int) *Handlers {
	h := &Handlers{
		auth:         auth,
		sessions:     sessions,
		store:        store,
		detector:     detector,
		engineMode:   engineMode,
		defaultLimit: defaultLimit,
		now:          time.Now,
		pendingAuth:  make(map[string]bool),
	}
	h.sourceFor = func(ctx context.Context, token *oauth2.Token) recommend.CandidateSource {
		return spotifysource.New(spotifyapi.New(h.auth.Client(ctx, token)))
	}
	h.engineFor = func(ctx context.Context, token *oauth2.Token) Recommender {
		return recommend.New(h.sourceFor(ctx, token), recommend.WithMode(h.engineMode))
	}
	h.refreshFn = h.refreshToken
	return h
}

// ============================================================================
// Auth
// ============================================================================

// Login starts the OAuth flow and returns the Spotify authorize URL.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateOAuthState()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to start login")
		return
	}

	h.mu.Lock()
	h.pendingAuth[state] = true
	h.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]string{
		"url": h.auth.AuthURL(state),
	})
}

// Callback exchanges the authorization code for a token and creates the
// session.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.FormValue("state")

	h.mu.Lock()
	pending := h.pendingAuth[state]
	delete(h.pendingAuth, state)
	h.mu.Unlock()

	if !pending {
		respondError(w, http.StatusBadRequest, "unknown OAuth state")
		return
	}

	token, err := h.auth.Token(r.Context(), state, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to exchange authorization code")
		return
	}

	client := spotifyapi.New(h.auth.Client(r.Context(), token))
	user, err := client.CurrentUser(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to look up Spotify user")
		return
	}

	session, err := h.sessions.Create(token, user.ID, user.DisplayName)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessions.SetCookie(w, session)

	respondJSON(w, http.StatusOK, map[string]any{
		"accessToken":  token.AccessToken,
		"refreshToken": token.RefreshToken,
		"expiresIn":    int(time.Until(token.Expiry).Seconds()),
		"user": map[string]string{
			"id":   user.ID,
			"name": user.DisplayName,
		},
	})
}

// Refresh exchanges a refresh token for a fresh access token.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	token, err := h.refreshFn(r.Context(), body.RefreshToken)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to refresh token")
		return
	}

	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.UpdateToken(session.ID, token)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"accessToken": token.AccessToken,
		"expiresIn":   int(time.Until(token.Expiry).Seconds()),
	})
}

// refreshToken runs the OAuth refresh grant for a refresh token. The
// oauth2 transport refreshes lazily, so an explicit Token() call forces it.
func (h *Handlers) refreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	stale := &oauth2.Token{RefreshToken: refreshToken, TokenType: "Bearer"}
	client := spotifyapi.New(h.auth.Client(ctx, stale))
	return client.Token()
}

// Logout clears the session and its token.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(session.ID)
	}
	h.sessions.ClearCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ============================================================================
// Recommendations
// ============================================================================

type recommendRequest struct {
	Emotion     string `json:"emotion"`
	AccessToken string `json:"accessToken"`
	Limit       int    `json:"limit"`
	Preference  string `json:"preference"`
}

// RecommendByEmotion returns tracks matching the requested emotion.
func (h *Handlers) RecommendByEmotion(w http.ResponseWriter, r *http.Request) {
	var body recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Emotion == "" {
		respondError(w, http.StatusBadRequest, "emotion is required")
		return
	}
	em := emotion.Parse(body.Emotion)

	session := h.sessions.GetFromRequest(r)
	token := requestToken(session, body.AccessToken)
	if token == nil {
		respondError(w, http.StatusUnauthorized, "access token is required")
		return
	}

	limit := body.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}
	preference := body.Preference
	if preference == "" && session != nil {
		preference = session.Preferences[em]
	}

	req := recommend.Request{Emotion: em, Limit: limit, Preference: preference}

	if session != nil {
		if err := h.sessions.SetState(session.ID, StateRecommendationLoading); err != nil {
			log.Printf("session %s: %v", session.ID, err)
		}
	}

	tracks, err := h.engineFor(r.Context(), token).Recommend(r.Context(), req)
	if errors.Is(err, recommend.ErrTokenExpired) && session != nil && session.Token != nil && session.Token.RefreshToken != "" {
		// Refresh the credential and retry the whole flow exactly once.
		fresh, refreshErr := h.refreshFn(r.Context(), session.Token.RefreshToken)
		if refreshErr != nil {
			respondError(w, http.StatusUnauthorized, "spotify credential expired")
			return
		}
		h.sessions.UpdateToken(session.ID, fresh)
		tracks, err = h.engineFor(r.Context(), fresh).Recommend(r.Context(), req)
	}
	if err != nil {
		if session != nil {
			if serr := h.sessions.SetState(session.ID, StateReady); serr != nil {
				log.Printf("session %s: %v", session.ID, serr)
			}
		}
		if errors.Is(err, recommend.ErrTokenExpired) {
			respondError(w, http.StatusUnauthorized, "spotify credential expired")
			return
		}
		log.Printf("recommendation for %q failed: %v", em, err)
		respondError(w, http.StatusBadGateway, "failed to get recommendations")
		return
	}

	if session != nil {
		if serr := h.sessions.SetState(session.ID, StateRecommendationReady); serr != nil {
			log.Printf("session %s: %v", session.ID, serr)
		}
	}

	response := map[string]any{
		"emotion": em,
		"count":   len(tracks),
		"tracks":  tracks,
	}
	if len(tracks) == 0 {
		// A valid outcome, not an error.
		response["message"] = "No recommendations found. Try again."
	}
	respondJSON(w, http.StatusOK, response)
}

// ============================================================================
// Emotion detection
// ============================================================================

// DetectEmotion normalizes a detected emotion label, or runs the configured
// detector when the request carries no label.
func (h *Handlers) DetectEmotion(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
		Timestamp  string  `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.Emotion == "" {
		result, err := h.detector.Detect(r.Context())
		if err != nil {
			respondError(w, http.StatusBadGateway, "emotion detection failed")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"original_emotion": string(result.Emotion),
			"mapped_emotion":   result.Emotion,
			"confidence":       result.Confidence,
			"simulation":       result.Simulation,
			"timestamp":        result.Timestamp.Format(time.RFC3339),
		})
		return
	}

	confidence := body.Confidence
	if confidence == 0 {
		confidence = 1.0
	}
	timestamp := body.Timestamp
	if timestamp == "" {
		timestamp = h.now().Format(time.RFC3339)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"original_emotion": body.Emotion,
		"mapped_emotion":   emotion.Parse(body.Emotion),
		"confidence":       confidence,
		"timestamp":        timestamp,
	})
}

// SupportedEmotions lists the emotions and the raw-label mapping.
func (h *Handlers) SupportedEmotions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"emotions": emotion.All(),
		"mapping":  emotion.Mapping(),
	})
}

// ============================================================================
// History
// ============================================================================

// SaveHistory appends a listening record.
func (h *Handlers) SaveHistory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID    string `json:"userId"`
		Emotion   string `json:"emotion"`
		TrackID   string `json:"trackId"`
		TrackName string `json:"trackName"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec := history.Record{
		UserID:    body.UserID,
		Emotion:   emotion.Emotion(body.Emotion),
		TrackID:   body.TrackID,
		TrackName: body.TrackName,
	}
	if body.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, body.Timestamp); err == nil {
			rec.Timestamp = ts
		}
	}

	if err := h.store.Append(rec); err != nil {
		if errors.Is(err, history.ErrMissingFields) {
			respondError(w, http.StatusBadRequest, "userId and emotion are required")
			return
		}
		log.Printf("saving history record: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save listening history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Listening history saved",
	})
}

// TimeSuggestion emits a time-of-day emotion suggestion for a user.
func (h *Handlers) TimeSuggestion(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}
	respondJSON(w, http.StatusOK, h.store.SuggestForHour(userID, h.now().Hour()))
}

// ============================================================================
// Preferences and taste profile
// ============================================================================

// SavePreferences stores the initial-survey sub-preferences on the session.
func (h *Handlers) SavePreferences(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		respondError(w, http.StatusUnauthorized, "login required")
		return
	}

	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for label, preference := range body {
		em := emotion.Emotion(label)
		if !em.Valid() || preference == "" {
			continue
		}
		h.sessions.SetPreference(session.ID, em, preference)
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// TasteProfile clusters the user's listening history into named mood
// clusters.
func (h *Handlers) TasteProfile(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		respondError(w, http.StatusUnauthorized, "login required")
		return
	}

	records := h.store.ForUser(session.UserID)
	ids := uniqueTrackIDs(records)
	if len(ids) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{
			"clusters": []profile.MoodCluster{},
			"message":  "Not enough listening history yet.",
		})
		return
	}

	source := h.sourceFor(r.Context(), session.Token)
	features, err := source.GetAudioFeatures(r.Context(), ids)
	if err != nil {
		if errors.Is(err, recommend.ErrTokenExpired) {
			respondError(w, http.StatusUnauthorized, "spotify credential expired")
			return
		}
		log.Printf("taste profile feature fetch: %v", err)
		respondError(w, http.StatusBadGateway, "failed to fetch audio features")
		return
	}

	var listens []profile.Listen
	for i, f := range features {
		if f == nil {
			continue
		}
		listens = append(listens, profile.Listen{TrackID: ids[i], Features: *f})
	}

	clusters, outliers := profile.Build(listens, profile.DefaultConfig())
	if clusters == nil {
		clusters = []profile.MoodCluster{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"clusters": clusters,
		"outliers": len(outliers),
	})
}

func uniqueTrackIDs(records []history.Record) []string {
	seen := make(map[string]bool, len(records))
	var ids []string
	for _, rec := range records {
		if rec.TrackID == "" || seen[rec.TrackID] {
			continue
		}
		seen[rec.TrackID] = true
		ids = append(ids, rec.TrackID)
	}
	return ids
}

// ============================================================================
// Helpers
// ============================================================================

// requestToken picks the credential for a request: the session token when
// logged in, otherwise a bearer token passed in the request body.
func requestToken(session *Session, accessToken string) *oauth2.Token {
	if session != nil && session.Token != nil {
		return session.Token
	}
	if accessToken != "" {
		return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	}
	return nil
}

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
