package game

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
)

// DefaultWords is used whenever the managed word collection is empty.
var DefaultWords = []string{
	"cat", "dog", "house", "tree", "car", "sun", "moon", "star", "fish", "bird",
	"flower", "book", "cake", "pizza", "guitar", "piano", "rainbow", "castle",
	"elephant", "butterfly", "mountain", "ocean", "rocket", "bicycle", "dragon",
	"unicorn", "robot", "wizard", "princess", "pirate", "dinosaur", "spaceship",
}

type WordSource interface {
	Words(ctx context.Context) ([]string, error)
}

type WordProvider struct {
	source WordSource
	mu     sync.Mutex
	rng    *rand.Rand
}

func NewWordProvider(source WordSource, rng *rand.Rand) *WordProvider {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &WordProvider{source: source, rng: rng}
}

// Random returns a random word from the managed list, or from DefaultWords
// when the list is empty or unreadable.
func (p *WordProvider) Random(ctx context.Context) (string, error) {
	var words []string
	if p.source != nil {
		list, err := p.source.Words(ctx)
		if err != nil {
			return "", err
		}
		for _, word := range list {
			if word = strings.TrimSpace(word); word != "" {
				words = append(words, word)
			}
		}
	}
	if len(words) == 0 {
		words = DefaultWords
	}
	p.mu.Lock()
	idx := p.rng.IntN(len(words))
	p.mu.Unlock()
	return words[idx], nil
}
