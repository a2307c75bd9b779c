package history

import (
	"fmt"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"
)

const (
	// minUserRecords is the history size below which no suggestion is made.
	minUserRecords = 5

	// minWindowCount is the minimum occurrences of the modal emotion in the
	// hour window for a suggestion.
	minWindowCount = 3
)

// Suggestion is a time-of-day listening suggestion derived from history.
type Suggestion struct {
	HasSuggestion    bool            `json:"hasSuggestion"`
	SuggestedEmotion emotion.Emotion `json:"suggestedEmotion,omitempty"`
	Confidence       int             `json:"confidence,omitempty"`
	Message          string          `json:"message"`
	TimeOfDay        string          `json:"timeOfDay,omitempty"`
	TotalListens     int             `json:"totalListens,omitempty"`
}

// SuggestForHour derives a suggestion for the user at the given hour. A
// suggestion is emitted only when the user has at least five records, the
// hour window (current hour ±1, wrapping at midnight) holds at least three
// records of one emotion, and that emotion is the modal one in the window.
func (s *Store) SuggestForHour(userID string, hour int) Suggestion {
	records := s.ForUser(userID)
	if len(records) < minUserRecords {
		return Suggestion{
			HasSuggestion: false,
			Message:       "Not enough listening history yet.",
		}
	}

	var window []Record
	for _, rec := range records {
		if inHourWindow(rec.Hour, hour) {
			window = append(window, rec)
		}
	}
	if len(window) == 0 {
		return Suggestion{
			HasSuggestion: false,
			Message:       "No listening history for this time of day yet.",
		}
	}

	counts := make(map[emotion.Emotion]int)
	for _, rec := range window {
		if rec.Emotion.Valid() {
			counts[rec.Emotion]++
		}
	}

	// Modal emotion, ties broken by canonical order with calm as the seed.
	modal := emotion.Calm
	max := 0
	for _, e := range emotion.All() {
		if counts[e] > max {
			max = counts[e]
			modal = e
		}
	}

	if max < minWindowCount {
		return Suggestion{
			HasSuggestion: false,
			Message:       "More listening history is needed for an accurate suggestion.",
		}
	}

	confidence := roundPercent(max, len(window))
	return Suggestion{
		HasSuggestion:    true,
		SuggestedEmotion: modal,
		Confidence:       confidence,
		Message: fmt.Sprintf("Around this hour (%d:00) you mostly listen to %s music (%d%%).",
			hour, modal, confidence),
		TimeOfDay:    timeOfDay(hour),
		TotalListens: len(window),
	}
}

// inHourWindow reports whether recordHour is within ±1 of hour, wrapping
// around midnight (23 and 0 are adjacent).
func inHourWindow(recordHour, hour int) bool {
	diff := recordHour - hour
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1 || diff >= 23
}

func roundPercent(part, total int) int {
	return int(float64(part)/float64(total)*100 + 0.5)
}

func timeOfDay(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	case hour >= 18 && hour < 22:
		return "evening"
	default:
		return "night"
	}
}
