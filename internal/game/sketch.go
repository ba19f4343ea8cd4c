package game

import (
	"context"
	"encoding/base64"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	canvasWidth  = 800
	canvasHeight = 600
)

type RoundImage struct {
	DataURL     string `json:"data_url"`
	SVG         string `json:"svg"`
	StrokeCount int    `json:"stroke_count"`
}

type UploadTarget struct {
	Handle string `json:"handle"`
	URL    string `json:"url"`
}

// SketchView is a sketch with its image resolved for display. Rounds that
// have strokes but no uploaded image get a rendered sketch with ID 0.
type SketchView struct {
	Sketch
	URL string `json:"url"`
}

// RenderSVG draws committed strokes in order as polylines on a white canvas.
// Strokes with fewer than two points are skipped. It returns the document
// and the number of strokes drawn.
func RenderSVG(strokes []Stroke) (string, int) {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="`)
	b.WriteString(strconv.Itoa(canvasWidth))
	b.WriteString(`" height="`)
	b.WriteString(strconv.Itoa(canvasHeight))
	b.WriteString(`" viewBox="0 0 `)
	b.WriteString(strconv.Itoa(canvasWidth))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(canvasHeight))
	b.WriteString(`"><rect width="100%" height="100%" fill="white"/>`)
	drawn := 0
	for _, stroke := range strokes {
		if stroke.IsLive || len(stroke.Points) < 2 {
			continue
		}
		b.WriteString(`<path d="`)
		for i, p := range stroke.Points {
			if i == 0 {
				b.WriteString("M ")
			} else {
				b.WriteString(" L ")
			}
			b.WriteString(formatCoord(p.X))
			b.WriteByte(' ')
			b.WriteString(formatCoord(p.Y))
		}
		b.WriteString(`" stroke="`)
		b.WriteString(escapeAttr(stroke.Color))
		b.WriteString(`" stroke-width="`)
		b.WriteString(formatCoord(stroke.Width))
		b.WriteString(`" stroke-linecap="round" stroke-linejoin="round" fill="none"/>`)
		drawn++
	}
	b.WriteString(`</svg>`)
	return b.String(), drawn
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeAttr(v string) string {
	return strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;").Replace(v)
}

func svgDataURL(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

// GenerateRoundImage renders the committed strokes of a round. It returns
// nil when nothing drawable exists.
func (s *Service) GenerateRoundImage(ctx context.Context, roomID string, round int) (*RoundImage, error) {
	strokes, err := s.GetStrokes(ctx, roomID, round)
	if err != nil {
		return nil, err
	}
	svg, count := RenderSVG(strokes)
	if count == 0 {
		return nil, nil
	}
	return &RoundImage{DataURL: svgDataURL(svg), SVG: svg, StrokeCount: count}, nil
}

// RequestCanvasUpload issues an upload target to the current artist of a
// playing room and returns nil for anyone else.
func (s *Service) RequestCanvasUpload(ctx context.Context, roomID, userID string) (*UploadTarget, error) {
	room, err := s.store.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != StatusPlaying || room.CurrentArtist != userID {
		return nil, nil
	}
	handle, url, err := s.blobs.UploadTarget(ctx)
	if err != nil {
		return nil, err
	}
	return &UploadTarget{Handle: handle, URL: url}, nil
}

type FinalizeInput struct {
	UserID     string
	ArtistName string
	ImageRef   string
	// Round defaults to the room's current round.
	Round int
}

// FinalizeCanvasImage saves the artist's uploaded image for a round,
// replacing any earlier upload for the same round and artist. Only the
// current artist may save the round in play; earlier rounds belong to
// whoever drew their strokes.
func (s *Service) FinalizeCanvasImage(ctx context.Context, roomID string, in FinalizeInput) (*Sketch, error) {
	if strings.TrimSpace(in.ImageRef) == "" {
		return nil, newError(KindInvalidInput, "image reference is required")
	}
	var sketch *Sketch
	err := s.update(ctx, roomID, func(tx Tx) error {
		sketch = nil
		room, err := tx.Room()
		if err != nil {
			return err
		}
		players, err := tx.Players()
		if err != nil {
			return err
		}
		artist := findPlayer(players, in.UserID)
		if artist == nil {
			return newError(KindNotAuthorized, "not a player in this room")
		}
		round := in.Round
		if round <= 0 {
			round = room.CurrentRound
		}
		if round <= 0 || round > room.CurrentRound {
			return newErrorf(KindInvalidInput, "round %d has not been played", round)
		}
		if round == room.CurrentRound {
			if in.UserID != room.CurrentArtist {
				return newError(KindNotAuthorized, "only the artist can save this round's sketch")
			}
		} else {
			drawn, err := tx.ArtistStrokes(round, in.UserID)
			if err != nil {
				return err
			}
			if len(drawn) == 0 {
				return newErrorf(KindNotAuthorized, "no strokes by this player in round %d", round)
			}
		}
		name := strings.TrimSpace(in.ArtistName)
		if name == "" {
			name = artist.Name
		}
		word, err := sketchWord(tx, room, round)
		if err != nil {
			return err
		}
		sketch = &Sketch{
			Round:      round,
			ArtistID:   in.UserID,
			ArtistName: name,
			Word:       word,
			ImageRef:   strings.TrimSpace(in.ImageRef),
			Timestamp:  s.now().UnixMilli(),
		}
		return tx.UpsertSketch(sketch)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"room_id": roomID,
		"round":   sketch.Round,
	}).Info("sketch saved")
	return sketch, nil
}

// sketchWord is the word of the round in play, or for earlier rounds the
// first correct guess.
func sketchWord(tx Tx, room *Room, round int) (string, error) {
	if round == room.CurrentRound && room.CurrentWord != "" {
		return room.CurrentWord, nil
	}
	guesses, err := tx.Guesses(round)
	if err != nil {
		return "", err
	}
	for _, guess := range guesses {
		if guess.IsCorrect {
			return guess.Text, nil
		}
	}
	return "unknown", nil
}

// RoomSketches lists a room's sketches by round with URLs resolved. Played
// rounds without an upload fall back to a rendered image.
func (s *Service) RoomSketches(ctx context.Context, roomID string) ([]SketchView, error) {
	room, err := s.store.Room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	sketches, err := s.store.Sketches(ctx, roomID)
	if err != nil {
		return nil, err
	}
	covered := make(map[int]bool, len(sketches))
	views := make([]SketchView, 0, len(sketches))
	for _, sketch := range sketches {
		covered[sketch.Round] = true
		url, err := s.blobs.ResolveURL(ctx, sketch.ImageRef)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"room_id": roomID,
				"round":   sketch.Round,
			}).WithError(err).Warn("resolve sketch url failed, rendering instead")
			url = s.renderedURL(ctx, roomID, sketch.Round)
		}
		views = append(views, SketchView{Sketch: sketch, URL: url})
	}
	if room.CurrentRound == 0 {
		return views, nil
	}
	strokes, err := s.store.AllStrokes(ctx, roomID)
	if err != nil {
		return nil, err
	}
	byRound := make(map[int][]Stroke)
	for _, stroke := range strokes {
		byRound[stroke.Round] = append(byRound[stroke.Round], stroke)
	}
	players, err := s.store.Players(ctx, roomID)
	if err != nil {
		return nil, err
	}
	guesses, err := s.store.AllGuesses(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for round := 1; round <= room.CurrentRound; round++ {
		if covered[round] || len(byRound[round]) == 0 {
			continue
		}
		svg, count := RenderSVG(byRound[round])
		if count == 0 {
			continue
		}
		artistID := byRound[round][0].ArtistID
		word := "unknown"
		if round == room.CurrentRound && room.CurrentWord != "" {
			word = room.CurrentWord
		} else {
			for _, guess := range guesses {
				if guess.Round == round && guess.IsCorrect {
					word = guess.Text
					break
				}
			}
		}
		views = append(views, SketchView{
			Sketch: Sketch{
				RoomID:     roomID,
				Round:      round,
				ArtistID:   artistID,
				ArtistName: playerName(players, artistID),
				Word:       word,
				Timestamp:  byRound[round][len(byRound[round])-1].Timestamp,
			},
			URL: svgDataURL(svg),
		})
	}
	sortSketchViews(views)
	return views, nil
}

func sortSketchViews(views []SketchView) {
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Round < views[j].Round
	})
}

func (s *Service) renderedURL(ctx context.Context, roomID string, round int) string {
	image, err := s.GenerateRoundImage(ctx, roomID, round)
	if err != nil || image == nil {
		return ""
	}
	return image.DataURL
}

// roundImageURL prefers the artist's uploaded sketch for a round and falls
// back to rendering the strokes. Failures yield "".
func (s *Service) roundImageURL(ctx context.Context, roomID string, round int, artistID string) string {
	sketches, err := s.store.Sketches(ctx, roomID)
	if err != nil {
		s.log.WithField("room_id", roomID).WithError(err).Warn("load sketches failed")
		return ""
	}
	for _, sketch := range sketches {
		if sketch.Round != round || sketch.ArtistID != artistID {
			continue
		}
		if url, err := s.blobs.ResolveURL(ctx, sketch.ImageRef); err == nil {
			return url
		}
	}
	return s.renderedURL(ctx, roomID, round)
}
