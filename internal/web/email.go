package web

import (
	"context"
	"io"

	"draw-royale/internal/game"

	"github.com/a-h/templ"
)

func emailLayout(title string, body func(w *writer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.put(`<!doctype html>
<html lang="en">
  <body style="font-family: sans-serif; color: #1f2933;">
    <h1 style="font-size: 20px;">`, esc(title), `</h1>
`)
		body(w)
		w.put(`    <p style="color: #7b8794; font-size: 12px;">Draw Royale</p>
  </body>
</html>
`)
		return w.err
	})
}

func writeStandings(w *writer, rows []game.Standing) {
	if len(rows) == 0 {
		return
	}
	w.put(`    <ol>
`)
	for _, row := range rows {
		w.put(`      <li>`, esc(row.Name), ` · `, itoa(row.Score), `</li>
`)
	}
	w.put(`    </ol>
`)
}

func InviteEmail(p *game.InvitePayload) templ.Component {
	return emailLayout("You're invited to "+p.RoomName, func(w *writer) {
		w.put(`    <p>`, esc(p.HostName), ` wants you in their drawing room <b>`, esc(p.RoomName), `</b>.</p>
    <p><a href="`, href(p.JoinURL), `">Join the room</a> or use invite code <code>`, esc(p.InviteCode), `</code>.</p>
`)
	})
}

func PlayerJoinedEmail(p *game.PlayerJoinedPayload) templ.Component {
	return emailLayout(p.PlayerName+" joined "+p.RoomName, func(w *writer) {
		w.put(`    <p>`, esc(p.PlayerName), ` joined your room. `, itoa(p.PlayerCount), ` of `, itoa(p.MaxPlayers), ` seats are taken.</p>
    <p><a href="`, href(p.RoomURL), `">Open the room</a></p>
`)
	})
}

func RoundResultsEmail(p *game.RoundResultsPayload) templ.Component {
	return emailLayout("Round "+itoa(p.Round)+" of "+itoa(p.MaxRounds)+" in "+p.RoomName, func(w *writer) {
		w.put(`    <p>`, esc(p.ArtistName), ` drew <b>`, esc(p.Word), `</b>.</p>
`)
		if p.ImageURL != "" {
			w.put(`    <img src="`, href(p.ImageURL), `" alt="`, esc(p.Word), `" width="400" height="300"/>
`)
		}
		if len(p.CorrectGuessers) == 0 {
			w.put(`    <p>Nobody guessed it.</p>
`)
		} else {
			w.put(`    <ul>
`)
			for _, guesser := range p.CorrectGuessers {
				w.put(`      <li>`, esc(guesser.Name), ` +`, itoa(guesser.Points), `</li>
`)
			}
			w.put(`    </ul>
`)
		}
		writeStandings(w, p.Leaderboard)
	})
}

func GameCompleteEmail(p *game.GameCompletePayload) templ.Component {
	return emailLayout(p.RoomName+" is over", func(w *writer) {
		w.put(`    <p><b>`, esc(p.WinnerName), `</b> won with `, itoa(p.WinnerScore), ` points after `, itoa(p.TotalRounds), ` rounds.</p>
`)
		writeStandings(w, p.Leaderboard)
		if p.ReplayURL != "" {
			w.put(`    <p><a href="`, href(p.ReplayURL), `">Watch the replay</a></p>
`)
		}
	})
}

func DailyDigestEmail(p *game.DailyDigestPayload) templ.Component {
	return emailLayout("Top players for "+p.Date, func(w *writer) {
		w.put(`    <table>
      <tr><th>Player</th><th>Score</th><th>Games</th></tr>
`)
		for _, entry := range p.Entries {
			w.put(`      <tr><td>`, esc(entry.Name), `</td><td>`, itoa(entry.TotalScore), `</td><td>`, itoa(entry.GamesPlayed), `</td></tr>
`)
		}
		w.put(`    </table>
`)
	})
}
