package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// QuizConfig holds configuration for the quiz.
type QuizConfig struct {
	Addr           string
	AnthropicKey   string
	Model          string
	ProxyURL       string // grade through this proxy instead of calling the API directly
	FontPath       string
	FontSize       float64
	OutputDir      string
	DeckPath       string
	Seed           uint64 // 0 picks a random seed
	MaxSessions    int
	SessionTTL     time.Duration
	VerboseLogging bool
}

// Character is one deck entry: the character to write and its drawable
// components.
type Character struct {
	Character  string   `json:"character"`
	Meaning    string   `json:"meaning,omitempty"`
	Components []string `json:"components"`
}

// QuizState is the externally visible state of a quiz session.
type QuizState struct {
	ID         string `json:"id"`
	Character  string `json:"character"`
	Meaning    string `json:"meaning,omitempty"`
	Stage      int    `json:"stage"`
	Components int    `json:"components"`
	Visible    int    `json:"visible"`
	Ready      bool   `json:"ready"`
	Drawing    bool   `json:"drawing"`
}

// CheckResult is the outcome of grading the current drawing.
type CheckResult struct {
	Correct  bool      `json:"correct"`
	Reason   string    `json:"reason,omitempty"`
	Snapshot string    `json:"snapshot,omitempty"`
	State    QuizState `json:"state"`
}

// LoadDeck reads a JSON array of characters.
func LoadDeck(path string) ([]Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck: %w", err)
	}
	var deck []Character
	if err := json.Unmarshal(data, &deck); err != nil {
		return nil, fmt.Errorf("failed to parse deck %s: %w", path, err)
	}
	if len(deck) == 0 {
		return nil, fmt.Errorf("deck %s is empty", path)
	}
	for i, c := range deck {
		if c.Character == "" {
			return nil, fmt.Errorf("deck %s: entry %d has no character", path, i)
		}
	}
	return deck, nil
}
