package game

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSVG(t *testing.T) {
	svg, count := RenderSVG([]Stroke{
		{ID: 1, Points: []Point{{X: 1, Y: 2}, {X: 3.5, Y: 4}}, Color: "#ff0000", Width: 4},
		{ID: 2, Points: []Point{{X: 9, Y: 9}}, Color: "#00ff00", Width: 2},
		{ID: 3, Points: []Point{{X: 0, Y: 0}, {X: 5, Y: 5}}, Color: "blue", Width: 1, IsLive: true},
		{ID: 4, Points: []Point{{X: 10, Y: 20}, {X: 30, Y: 40}, {X: 50, Y: 60}}, Color: `a"b`, Width: 2.5},
	})
	assert.Equal(t, 2, count)
	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" width="800" height="600"`))
	assert.Contains(t, svg, `<rect width="100%" height="100%" fill="white"/>`)
	assert.Contains(t, svg, `<path d="M 1 2 L 3.5 4" stroke="#ff0000" stroke-width="4" stroke-linecap="round" stroke-linejoin="round" fill="none"/>`)
	assert.Contains(t, svg, `<path d="M 10 20 L 30 40 L 50 60" stroke="a&quot;b" stroke-width="2.5"`)
	assert.NotContains(t, svg, "#00ff00")
	assert.NotContains(t, svg, "blue")
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Less(t, strings.Index(svg, "#ff0000"), strings.Index(svg, "a&quot;b"), "strokes render in order")
}

func TestGenerateRoundImage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	room := startRoom(t, svc, 3, "a", "b")

	image, err := svc.GenerateRoundImage(ctx, room.ID, 1)
	require.NoError(t, err)
	assert.Nil(t, image, "no strokes yields no image")

	_, err = svc.SubmitStroke(ctx, room.ID, StrokeInput{UserID: "a", Points: livePoints(3, 0), Color: "#123456", Width: 2})
	require.NoError(t, err)
	image, err = svc.GenerateRoundImage(ctx, room.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, image)
	assert.Equal(t, 1, image.StrokeCount)

	const prefix = "data:image/svg+xml;base64,"
	require.True(t, strings.HasPrefix(image.DataURL, prefix))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(image.DataURL, prefix))
	require.NoError(t, err)
	assert.Equal(t, image.SVG, string(decoded))
}

func TestCanvasUploadAndFinalize(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	room := startRoom(t, svc, 3, "a", "b")
	word := loadRoom(t, store, room.ID).CurrentWord

	target, err := svc.RequestCanvasUpload(ctx, room.ID, "b")
	require.NoError(t, err)
	assert.Nil(t, target, "only the artist gets an upload target")

	target, err = svc.RequestCanvasUpload(ctx, room.ID, "a")
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, "http://draw.test/blobs/"+target.Handle, target.URL)
	_, err = svc.SubmitStroke(ctx, room.ID, StrokeInput{UserID: "a", Points: livePoints(3, 0), Color: "#000", Width: 2})
	require.NoError(t, err)

	sketch, err := svc.FinalizeCanvasImage(ctx, room.ID, FinalizeInput{UserID: "a", ImageRef: target.Handle})
	require.NoError(t, err)
	assert.Equal(t, word, sketch.Word)
	assert.Equal(t, "name-a", sketch.ArtistName)

	_, err = svc.SubmitGuess(ctx, room.ID, GuessInput{UserID: "b", Text: word})
	require.NoError(t, err)

	// The artist's client saves again after the round moved on.
	again, err := svc.FinalizeCanvasImage(ctx, room.ID, FinalizeInput{UserID: "a", ArtistName: "Alice", ImageRef: target.Handle, Round: 1})
	require.NoError(t, err)
	assert.Equal(t, sketch.ID, again.ID)
	assert.Equal(t, word, again.Word, "past rounds take the word from the first correct guess")

	sketches, err := store.Sketches(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, sketches, 1)

	_, err = svc.FinalizeCanvasImage(ctx, room.ID, FinalizeInput{UserID: "stranger", ImageRef: target.Handle})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = svc.FinalizeCanvasImage(ctx, room.ID, FinalizeInput{UserID: "a", ImageRef: target.Handle, Round: 9})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFinalizeCanvasImageRequiresArtist(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	room := startRoom(t, svc, 3, "a", "b", "c")
	word := loadRoom(t, store, room.ID).CurrentWord

	_, err := svc.FinalizeCanvasImage(ctx, room.ID, FinalizeInput{UserID: "b", ImageRef: "guesser-upload"})
	assert.ErrorIs(t, err, ErrNotAuthorized, "a guesser cannot save the round in play")

	_, err = svc.SubmitStroke(ctx, room.ID, StrokeInput{UserID: "a", Points: livePoints(3, 0), Color: "#000", Width: 2})
	require.NoError(t, err)
	_, err = svc.SubmitGuess(ctx, room.ID, GuessInput{UserID: "b", Text: word})
	require.NoError(t, err)
	require.Equal(t, 2, loadRoom(t, store, room.ID).CurrentRound)

	_, err = svc.FinalizeCanvasImage(ctx, room.ID, FinalizeInput{UserID: "c", ImageRef: "late-upload", Round: 1})
	assert.ErrorIs(t, err, ErrNotAuthorized, "earlier rounds belong to whoever drew them")
	_, err = svc.FinalizeCanvasImage(ctx, room.ID, FinalizeInput{UserID: "b", ImageRef: "late-upload", Round: 1})
	assert.ErrorIs(t, err, ErrNotAuthorized, "a correct guesser cannot claim the round")

	sketches, err := store.Sketches(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, sketches)

	_, err = svc.FinalizeCanvasImage(ctx, room.ID, FinalizeInput{UserID: "a", ImageRef: "kept", Round: 1})
	require.NoError(t, err)
}

func TestRoomSketchesFallsBackToRenderedImage(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	room := startRoom(t, svc, 3, "a", "b")

	_, err := svc.SubmitStroke(ctx, room.ID, StrokeInput{UserID: "a", Points: livePoints(4, 0), Color: "#000", Width: 2, IsLive: true})
	require.NoError(t, err)
	_, err = svc.NextRound(ctx, room.ID, "a")
	require.NoError(t, err)

	target, err := svc.RequestCanvasUpload(ctx, room.ID, "b")
	require.NoError(t, err)
	require.NotNil(t, target)
	_, err = svc.FinalizeCanvasImage(ctx, room.ID, FinalizeInput{UserID: "b", ImageRef: target.Handle})
	require.NoError(t, err)
	word := loadRoom(t, store, room.ID).CurrentWord

	views, err := svc.RoomSketches(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, 1, views[0].Round)
	assert.Zero(t, views[0].ID)
	assert.Equal(t, "name-a", views[0].ArtistName)
	assert.Equal(t, "unknown", views[0].Word)
	assert.True(t, strings.HasPrefix(views[0].URL, "data:image/svg+xml;base64,"))

	assert.Equal(t, 2, views[1].Round)
	assert.Equal(t, word, views[1].Word)
	assert.Equal(t, "http://draw.test/blobs/"+target.Handle, views[1].URL)
}
