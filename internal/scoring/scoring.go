package scoring

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SenderMeta carries the message author details a scorer may weigh in.
type SenderMeta struct {
	UserID    int64
	Username  string
	FirstName string
}

// Scorer rates a chat message on a 0 to 10 scale.
type Scorer interface {
	Score(ctx context.Context, text string, meta SenderMeta, groupName string) (float64, error)
}

// HeuristicScorer rates messages with a handful of cheap text signals. It is
// the default scorer and the fallback when no model-backed scorer is wired.
type HeuristicScorer struct{}

func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

var greetings = map[string]bool{
	"hi":        true,
	"hello":     true,
	"hey":       true,
	"yo":        true,
	"sup":       true,
	"gm":        true,
	"gn":        true,
	"lol":       true,
	"ok":        true,
	"okay":      true,
	"thanks":    true,
	"thank you": true,
}

var meaningfulKeywords = []string{
	"because", "think", "opinion", "experience", "learned",
	"project", "build", "idea", "question", "help",
}

func (s *HeuristicScorer) Score(ctx context.Context, text string, meta SenderMeta, groupName string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	lowered := strings.ToLower(trimmed)
	length := utf8.RuneCountInString(trimmed)

	if length < 3 || greetings[lowered] {
		return 0, nil
	}

	score := 1.0
	if length > 20 {
		score++
	}
	if length > 50 {
		score += 2
	}
	if strings.Contains(trimmed, "?") && length > 15 {
		score += 1.5
	}
	for _, kw := range meaningfulKeywords {
		if strings.Contains(lowered, kw) {
			score++
			break
		}
	}
	if countEmojis(trimmed) > 3 {
		score--
	}

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, nil
}

func countEmojis(text string) int {
	count := 0
	for _, r := range text {
		if unicode.Is(unicode.So, r) || (r >= 0x1F300 && r <= 0x1FAFF) {
			count++
		}
	}
	return count
}

// EmojiFor picks the reaction emoji tier for a score.
func EmojiFor(score float64) string {
	switch {
	case score >= 8:
		return "🎉"
	case score >= 6:
		return "🎯"
	case score >= 4:
		return "✨"
	default:
		return "💬"
	}
}

// Notification renders the private score notification for one message.
func Notification(score float64, groupName string) string {
	return fmt.Sprintf("%s You earned %.1f points in %s!", EmojiFor(score), score, groupName)
}
