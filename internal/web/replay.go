package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Replay renders the finished (or in-progress) history of a room: one card
// per round with its image and guesses, then the final scores.
func Replay(data ReplayData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.put(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>`, esc(data.RoomName), ` · Replay</title>
  </head>
  <body>
    <main class="shell replay" data-room-id="`, esc(data.RoomID), `">
      <header class="hero">
        <span class="tag">`, esc(data.Status), `</span>
        <h1>`, esc(data.RoomName), `</h1>
        <p>Started `, formatMillis(data.CreatedAt), ` · `, itoa(len(data.Rounds)), ` of `, itoa(data.MaxRounds), ` rounds</p>
      </header>
`)
		if len(data.Rounds) == 0 {
			w.put(`      <p class="empty">No rounds were played.</p>
`)
		}
		for _, round := range data.Rounds {
			writeReplayRound(w, round)
		}
		w.put(`      <section class="panel scores">
        <h2>Scores</h2>
        <ol>
`)
		for _, row := range data.Scores {
			w.put(`          <li><span class="name">`, esc(row.Name), `</span> <span class="score">`, itoa(row.Score), `</span></li>
`)
		}
		w.put(`        </ol>
      </section>
    </main>
  </body>
</html>
`)
		return w.err
	})
}

func writeReplayRound(w *writer, round ReplayRound) {
	w.put(`      <section class="panel round" id="round-`, itoa(round.Round), `">
        <h2>Round `, itoa(round.Round), `: `, esc(round.Word), `</h2>
        <p class="artist">Drawn by `, esc(round.ArtistName), `</p>
`)
	if round.ImageURL != "" {
		w.put(`        <img src="`, href(round.ImageURL), `" alt="`, esc(round.Word), `" width="800" height="600"/>
`)
	} else {
		w.put(`        <p class="empty">Nothing was drawn.</p>
`)
	}
	if len(round.Guesses) == 0 {
		w.put(`      </section>
`)
		return
	}
	w.put(`        <ul class="guesses">
`)
	for _, guess := range round.Guesses {
		class := "guess"
		if guess.Correct {
			class = "guess correct"
		}
		w.put(`          <li class="`, class, `"><time>`, formatMillis(guess.At), `</time> <b>`, esc(guess.PlayerName), `</b> `, esc(guess.Text))
		if guess.Correct {
			w.put(` <span class="points">+`, itoa(guess.Points), `</span>`)
		}
		w.put(`</li>
`)
	}
	w.put(`        </ul>
      </section>
`)
}
