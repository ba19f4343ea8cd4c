package db

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"draw-royale/internal/game"
)

// WordSink accepts parsed word rows.
type WordSink interface {
	AddWords(ctx context.Context, words []game.Word) (int, error)
}

// LoadWords reads a word CSV and stores the rows, returning how many were new.
func LoadWords(ctx context.Context, sink WordSink, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	words, err := ReadWords(file)
	if err != nil {
		return 0, err
	}
	return sink.AddWords(ctx, words)
}

// ReadWords parses rows of text,difficulty,category. The first row is a
// header. Difficulty and category are optional; unknown difficulties fall
// back to medium.
func ReadWords(r io.Reader) ([]game.Word, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var words []game.Word
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		text := strings.TrimSpace(row[0])
		if text == "" {
			continue
		}
		word := game.Word{Text: text, Difficulty: game.DifficultyMedium}
		if len(row) > 1 {
			word.Difficulty = parseDifficulty(row[1])
		}
		if len(row) > 2 {
			word.Category = strings.TrimSpace(row[2])
		}
		words = append(words, word)
	}
	return words, nil
}

func parseDifficulty(raw string) game.Difficulty {
	switch game.Difficulty(strings.ToLower(strings.TrimSpace(raw))) {
	case game.DifficultyEasy:
		return game.DifficultyEasy
	case game.DifficultyHard:
		return game.DifficultyHard
	default:
		return game.DifficultyMedium
	}
}
