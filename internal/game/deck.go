package game

import (
	"math/rand"
	"sync"
	"time"
)

// Card is one entry of a deck. Index is unique within the deck; Value may
// repeat across indices. Cards are immutable once the deck is built.
type Card struct {
	Index int `json:"index"`
	Value int `json:"value"`
}

// DeckValue describes one value and how many cards of it the deck carries.
type DeckValue struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// DeckConfig is the value table used to build a deck. The same config always
// produces the same index->value mapping.
type DeckConfig struct {
	Values []DeckValue `json:"values"`
}

// DefaultDeckConfig is the reference deck: values 1..20, two cards of each,
// 40 cards total.
func DefaultDeckConfig() DeckConfig {
	cfg := DeckConfig{Values: make([]DeckValue, 0, BoardSize)}
	for v := 1; v <= BoardSize; v++ {
		cfg.Values = append(cfg.Values, DeckValue{Value: v, Count: 2})
	}
	return cfg
}

// Deck is the fixed, indexable card sequence for one game instance.
type Deck struct {
	cards []Card
}

// DrawnSet tracks which deck indices have been drawn. It only ever grows.
type DrawnSet map[int]bool

// BuildDeck expands a DeckConfig into a deck. Construction is deterministic:
// values are laid out in config order, each repeated its configured count.
func BuildDeck(cfg DeckConfig) *Deck {
	var cards []Card
	for _, dv := range cfg.Values {
		for i := 0; i < dv.Count; i++ {
			cards = append(cards, Card{Index: len(cards), Value: dv.Value})
		}
	}
	return &Deck{cards: cards}
}

// Size returns the number of cards in the deck.
func (d *Deck) Size() int {
	return len(d.cards)
}

// Draw returns the card at index, or ErrInvalidDraw if the index is out of
// range or already drawn. The caller registers the index into the drawn set
// as part of the same locked step; Draw itself does not mutate anything.
func (d *Deck) Draw(drawn DrawnSet, index int) (Card, error) {
	if index < 0 || index >= len(d.cards) || drawn[index] {
		return Card{}, ErrInvalidDraw
	}
	return d.cards[index], nil
}

// rng is the shared source for random draws. Guarded because multiple game
// instances draw concurrently.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomUndrawn selects uniformly at random among the indices not yet drawn,
// or fails with ErrDeckExhausted when none remain.
func (d *Deck) RandomUndrawn(drawn DrawnSet) (int, error) {
	remaining := make([]int, 0, len(d.cards)-len(drawn))
	for i := range d.cards {
		if !drawn[i] {
			remaining = append(remaining, i)
		}
	}
	if len(remaining) == 0 {
		return 0, ErrDeckExhausted
	}
	rngMu.Lock()
	idx := remaining[rng.Intn(len(remaining))]
	rngMu.Unlock()
	return idx, nil
}
