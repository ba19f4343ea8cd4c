package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"draw-royale/internal/game"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const testPNGData = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMBAp4pWZkAAAAASUVORK5CYII="

func TestHomePageAndHealth(t *testing.T) {
	ts, _ := startTestServer(t, testConfig())

	resp := doRequest(t, ts, http.MethodGet, "/", "", nil)
	expectStatus(t, resp, http.StatusOK)
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "Draw Royale") {
		t.Fatalf("expected landing page, got %q", string(data))
	}

	resp = doRequest(t, ts, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["status"] != "ok" {
		t.Fatalf("unexpected health body %#v", body)
	}
}

func TestAPIRequiresUser(t *testing.T) {
	ts, _ := startTestServer(t, testConfig())

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", "", map[string]any{
		"name":      "Friday Sketches",
		"host_name": "Ada",
	})
	expectKind(t, resp, http.StatusUnauthorized, "unauthenticated")
}

func TestCreateRoomValidation(t *testing.T) {
	ts, _ := startTestServer(t, testConfig())

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", "u1", map[string]any{
		"name": "Friday Sketches",
	})
	expectStatus(t, resp, http.StatusBadRequest)
	body := decodeBody(t, resp)
	if body["error"] != "host name is required" {
		t.Fatalf("unexpected error %#v", body["error"])
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms", "u1", map[string]any{
		"name":        "Friday Sketches",
		"host_name":   "Ada",
		"max_players": 40,
	})
	expectKind(t, resp, http.StatusBadRequest, "invalid_input")
}

func TestJoinByInviteCode(t *testing.T) {
	ts, _ := startTestServer(t, testConfig())
	roomID, code := createRoom(t, ts, "u1")

	resp := doRequest(t, ts, http.MethodGet, "/api/invite-codes/"+strings.ToLower(code), "u2", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["id"] != roomID {
		t.Fatalf("expected room %s, got %#v", roomID, body["id"])
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/invite-codes/"+code+"/join", "u2", map[string]any{"name": "Grace"})
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	player := body["player"].(map[string]any)
	if player["name"] != "Grace" || player["user_id"] != "u2" {
		t.Fatalf("unexpected player %#v", player)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/invite-codes/ZZZZZZ/join", "u3", map[string]any{"name": "Linus"})
	expectKind(t, resp, http.StatusNotFound, "room_not_found")
}

func TestStartGameErrors(t *testing.T) {
	ts, _ := startTestServer(t, testConfig())
	roomID, code := createRoom(t, ts, "u1")

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/start", "u1", nil)
	expectKind(t, resp, http.StatusConflict, "not_enough_players")

	joinRoom(t, ts, code, "u2", "Guest")
	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/start", "u2", nil)
	expectKind(t, resp, http.StatusForbidden, "not_authorized")

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/not-a-room/start", "u1", nil)
	expectKind(t, resp, http.StatusNotFound, "room_not_found")
}

func TestGetRoomShowsWordOnlyToArtist(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)
	room := loadRoom(t, svc, roomID)

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID, room.CurrentArtist, nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["word"] != room.CurrentWord {
		t.Fatalf("expected artist to see %q, got %#v", room.CurrentWord, body["word"])
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID, guesserFor(room), nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if _, ok := body["word"]; ok {
		t.Fatalf("expected guesser not to see the word")
	}
	if got := body["room"].(map[string]any)["status"]; got != "playing" {
		t.Fatalf("expected playing room, got %#v", got)
	}
}

func TestGuessFlowFinishesGame(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)

	for round := 1; round <= 2; round++ {
		room := loadRoom(t, svc, roomID)
		if room.CurrentRound != round {
			t.Fatalf("expected round %d, got %d", round, room.CurrentRound)
		}
		guesser := guesserFor(room)

		resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", guesser, map[string]any{
			"guess": "definitely not it",
		})
		expectStatus(t, resp, http.StatusOK)
		if body := decodeBody(t, resp); body["is_correct"] != false {
			t.Fatalf("expected wrong guess, got %#v", body)
		}

		resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", room.CurrentArtist, map[string]any{
			"guess": room.CurrentWord,
		})
		expectKind(t, resp, http.StatusConflict, "invalid_state")

		resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", guesser, map[string]any{
			"guess": "  " + strings.ToUpper(room.CurrentWord) + " ",
			"round": round,
		})
		expectStatus(t, resp, http.StatusOK)
		body := decodeBody(t, resp)
		if body["is_correct"] != true || body["round_advanced"] != true {
			t.Fatalf("expected correct guess to advance, got %#v", body)
		}
		if body["points"].(float64) <= 0 {
			t.Fatalf("expected points for a correct guess, got %#v", body["points"])
		}
		if round == 2 && body["game_finished"] != true {
			t.Fatalf("expected game to finish after the last round, got %#v", body)
		}
	}

	room := loadRoom(t, svc, roomID)
	if room.Status != "finished" {
		t.Fatalf("expected finished room, got %s", room.Status)
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", "u2", map[string]any{"guess": "late"})
	expectKind(t, resp, http.StatusConflict, "invalid_state")
}

func TestStaleRoundGuessIsRejected(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)
	room := loadRoom(t, svc, roomID)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", guesserFor(room), map[string]any{
		"guess": room.CurrentWord,
		"round": 2,
	})
	expectKind(t, resp, http.StatusGone, "round_expired")
}

func TestRestartAndFollow(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/restart", "u1", nil)
	expectKind(t, resp, http.StatusConflict, "invalid_state")
	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/end", "u1", nil)
	expectKind(t, resp, http.StatusConflict, "invalid_state")

	finishGame(t, ts, svc, roomID)

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/restart", "u2", nil)
	expectKind(t, resp, http.StatusForbidden, "not_authorized")

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/restart", "u1", nil)
	expectStatus(t, resp, http.StatusCreated)
	newRoomID := decodeBody(t, resp)["id"].(string)
	if room := loadRoom(t, svc, roomID); room.Status != "restarted" {
		t.Fatalf("expected restarted room, got %s", room.Status)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/users/me/next-room?host=u1", "u2", nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["id"] != newRoomID {
		t.Fatalf("expected to follow to %s, got %#v", newRoomID, body["id"])
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/users/me/next-room?host=u1", "stranger", nil)
	expectKind(t, resp, http.StatusNotFound, "room_not_found")
}

func TestEndGameArchivesFinishedRoom(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)
	finishGame(t, ts, svc, roomID)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/end", "u1", nil)
	expectStatus(t, resp, http.StatusOK)
	if room := loadRoom(t, svc, roomID); room.Status != "archived" {
		t.Fatalf("expected archived room, got %s", room.Status)
	}
}

// finishGame guesses every remaining round correctly.
func finishGame(t *testing.T, ts *httptest.Server, svc *game.Service, roomID string) {
	t.Helper()
	for {
		room := loadRoom(t, svc, roomID)
		if room.Status != game.StatusPlaying {
			return
		}
		resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", guesserFor(room), map[string]any{
			"guess": room.CurrentWord,
		})
		expectStatus(t, resp, http.StatusOK)
	}
}

func TestRemoveAndLeave(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID, code := createRoom(t, ts, "u1")
	joinRoom(t, ts, code, "u2", "Guest")
	joinRoom(t, ts, code, "u3", "Third")

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/remove", "u1", map[string]any{"user_id": "u1"})
	expectKind(t, resp, http.StatusConflict, "cannot_remove_self")

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/remove", "u1", map[string]any{"user_id": "u3"})
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/leave", "u1", nil)
	expectStatus(t, resp, http.StatusOK)
	if room := loadRoom(t, svc, roomID); room.HostID != "u2" {
		t.Fatalf("expected host to pass to u2, got %s", room.HostID)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/leave", "u2", nil)
	expectStatus(t, resp, http.StatusOK)
	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID, "u2", nil)
	expectKind(t, resp, http.StatusNotFound, "room_not_found")
}

func TestStrokesUndoAndRoundImage(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)
	room := loadRoom(t, svc, roomID)
	stroke := map[string]any{
		"points": []map[string]any{{"x": 10, "y": 10}, {"x": 40, "y": 60}},
		"color":  "#ff0000",
		"width":  4,
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/strokes", guesserFor(room), stroke)
	expectKind(t, resp, http.StatusForbidden, "not_authorized")

	for i := 0; i < 2; i++ {
		resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/strokes", room.CurrentArtist, stroke)
		expectStatus(t, resp, http.StatusOK)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/strokes", room.CurrentArtist, map[string]any{
		"points": []map[string]any{{"x": 900, "y": 10}},
		"color":  "#ff0000",
		"width":  4,
	})
	expectStatus(t, resp, http.StatusBadRequest)
	if body := decodeBody(t, resp); body["error"] != "point is outside the canvas" {
		t.Fatalf("unexpected error %#v", body["error"])
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/undo", room.CurrentArtist, nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["removed"] != true {
		t.Fatalf("expected undo to remove a stroke, got %#v", body)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/strokes?round=1", "u2", nil)
	expectStatus(t, resp, http.StatusOK)
	if strokes := decodeBody(t, resp)["strokes"].([]any); len(strokes) != 1 {
		t.Fatalf("expected 1 stroke after undo, got %d", len(strokes))
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/rounds/1/image", "u2", nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("X-Stroke-Count") != "1" {
		t.Fatalf("expected stroke count header 1, got %q", resp.Header.Get("X-Stroke-Count"))
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(data), "<svg") {
		t.Fatalf("expected svg document, got %q", string(data))
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/clear", room.CurrentArtist, map[string]any{"round": 1})
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["removed"].(float64) != 1 {
		t.Fatalf("expected clear to remove 1 stroke, got %#v", body)
	}
}

func TestUndoAcceptsEmptyChunkedBody(t *testing.T) {
	svc := newTestService()
	handler := New(svc, testConfig(), quietLogger()).Handler()
	ts := newTestServer(t, handler)
	roomID := startedRoom(t, ts)
	room := loadRoom(t, svc, roomID)

	for _, path := range []string{"/undo", "/clear"} {
		req := httptest.NewRequest(http.MethodPost, "/api/rooms/"+roomID+path, strings.NewReader(""))
		req.ContentLength = -1
		req.TransferEncoding = []string{"chunked"}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(userHeader, room.CurrentArtist)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 for an empty chunked body, got %d: %s", path, rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/rooms/"+roomID+"/undo", strings.NewReader(`{"round":`))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(userHeader, room.CurrentArtist)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a truncated body, got %d", rec.Code)
	}
}

func TestCanvasUploadAndReplayData(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)
	room := loadRoom(t, svc, roomID)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/canvas/upload", guesserFor(room), nil)
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["upload"] != nil {
		t.Fatalf("expected no upload target for a guesser, got %#v", body["upload"])
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/canvas", room.CurrentArtist, map[string]any{
		"image_data": testPNGData,
	})
	expectStatus(t, resp, http.StatusOK)
	sketch := decodeBody(t, resp)
	handle := sketch["image_ref"].(string)

	resp = doRequest(t, ts, http.MethodGet, "/blobs/"+handle, "", nil)
	expectStatus(t, resp, http.StatusOK)
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("expected png blob, got %q", resp.Header.Get("Content-Type"))
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/replay", guesserFor(room), nil)
	expectStatus(t, resp, http.StatusOK)
	if sketches := decodeBody(t, resp)["sketches"].([]any); len(sketches) != 0 {
		t.Fatalf("expected the round in play to stay hidden, got %d sketches", len(sketches))
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/replay", room.CurrentArtist, nil)
	expectStatus(t, resp, http.StatusOK)
	sketches := decodeBody(t, resp)["sketches"].([]any)
	if len(sketches) != 1 {
		t.Fatalf("expected the artist to see 1 sketch, got %d", len(sketches))
	}
	if url := sketches[0].(map[string]any)["url"].(string); !strings.HasSuffix(url, "/blobs/"+handle) {
		t.Fatalf("unexpected sketch url %q", url)
	}
}

func TestPutBlobRejectsUnknownHandle(t *testing.T) {
	ts, _ := startTestServer(t, testConfig())

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/blobs/not-a-handle", bytes.NewReader([]byte("\x89PNG\r\n\x1a\n")))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "image/png")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)
}

func putBlob(t *testing.T, ts *httptest.Server, handle string, data []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/blobs/"+handle, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "image/png")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func TestPutBlobIsWriteOnce(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)
	room := loadRoom(t, svc, roomID)
	png := []byte("\x89PNG\r\n\x1a\n")

	expectStatus(t, putBlob(t, ts, "0b9f4a52-3c1e-4f57-9d0a-6f2d1c7e8a11", png), http.StatusNotFound)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/canvas/upload", room.CurrentArtist, nil)
	expectStatus(t, resp, http.StatusOK)
	upload := decodeBody(t, resp)["upload"].(map[string]any)
	handle := upload["handle"].(string)

	expectStatus(t, putBlob(t, ts, handle, png), http.StatusNoContent)
	expectKind(t, putBlob(t, ts, handle, []byte("\x89PNG\r\n\x1a\nother")), http.StatusConflict, "blob_exists")

	resp = doRequest(t, ts, http.MethodGet, "/blobs/"+handle, "", nil)
	expectStatus(t, resp, http.StatusOK)
	data, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(data, png) {
		t.Fatalf("expected the first upload to be kept, got %q", data)
	}
}

func TestInlineCanvasFromGuesserIsDiscarded(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)
	room := loadRoom(t, svc, roomID)
	blobs := svc.Blobs().(*game.LocalBlobs)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/canvas", guesserFor(room), map[string]any{
		"image_data": testPNGData,
	})
	expectKind(t, resp, http.StatusForbidden, "not_authorized")
	if n := blobs.Len(); n != 0 {
		t.Fatalf("expected a rejected inline image to be dropped, %d blobs stored", n)
	}
}

func TestReplayPage(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID := startedRoom(t, ts)
	room := loadRoom(t, svc, roomID)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/strokes", room.CurrentArtist, map[string]any{
		"points": []map[string]any{{"x": 1, "y": 1}, {"x": 30, "y": 30}},
		"color":  "blue",
		"width":  3,
	})
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, ts, http.MethodGet, "/replay/"+roomID, "", nil)
	expectStatus(t, resp, http.StatusOK)
	data, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(data), `id="round-1"`) {
		t.Fatalf("expected the round in play to stay hidden")
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/guesses", guesserFor(room), map[string]any{
		"guess": room.CurrentWord,
	})
	expectStatus(t, resp, http.StatusOK)

	resp = doRequest(t, ts, http.MethodGet, "/replay/"+roomID, "", nil)
	expectStatus(t, resp, http.StatusOK)
	data, _ = io.ReadAll(resp.Body)
	page := string(data)
	if !strings.Contains(page, `id="round-1"`) || !strings.Contains(page, "Round 1: "+room.CurrentWord) {
		t.Fatalf("expected round 1 with its word, got %q", page)
	}
	if !strings.Contains(page, "data:image/svg+xml") {
		t.Fatalf("expected rendered round image")
	}

	resp = doRequest(t, ts, http.MethodGet, "/replay/missing", "", nil)
	expectStatus(t, resp, http.StatusFound)
}

func TestInvitesAndDeliveryWebhook(t *testing.T) {
	ts, _ := startTestServer(t, testConfig())
	roomID, _ := createRoom(t, ts, "u1")

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/invites", "u1", map[string]any{
		"emails": []string{"not-an-email"},
	})
	expectKind(t, resp, http.StatusBadRequest, "invalid_input")

	resp = doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/invites", "u1", map[string]any{
		"emails": []string{"ada@example.com", "Ada@Example.com"},
	})
	expectStatus(t, resp, http.StatusAccepted)
	invites := decodeBody(t, resp)["invites"].([]any)
	if len(invites) != 1 {
		t.Fatalf("expected duplicate addresses to collapse, got %d", len(invites))
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/invites", "u2", nil)
	expectKind(t, resp, http.StatusForbidden, "not_authorized")

	resp = doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID+"/invites", "u1", nil)
	expectStatus(t, resp, http.StatusOK)
	if list := decodeBody(t, resp)["invites"].([]any); len(list) != 1 {
		t.Fatalf("expected 1 listed invite, got %d", len(list))
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/webhooks/delivery", "", map[string]any{
		"type": "email.delivered",
		"data": map[string]any{"email_id": "unknown-message"},
	})
	expectStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["updated"] != false {
		t.Fatalf("expected unknown message to be ignored, got %#v", body)
	}
}

func TestJWTIdentity(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	ts, _ := startTestServer(t, cfg)

	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", "u1", map[string]any{
		"name":      "Friday Sketches",
		"host_name": "Ada",
	})
	expectKind(t, resp, http.StatusUnauthorized, "unauthenticated")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	payload, _ := json.Marshal(map[string]any{"name": "Friday Sketches", "host_name": "Ada"})
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/rooms", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)
	if body := decodeBody(t, resp); body["host_id"] != "user-42" {
		t.Fatalf("expected host from token subject, got %#v", body["host_id"])
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerSecond = 0.001
	cfg.RateLimitBurst = 1
	ts, _ := startTestServer(t, cfg)

	createRoom(t, ts, "u1")
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", "u1", map[string]any{
		"name":      "Second Room",
		"host_name": "Ada",
	})
	expectKind(t, resp, http.StatusTooManyRequests, "rate_limited")

	createRoom(t, ts, "u2")
}

func TestIdlePlayersPagination(t *testing.T) {
	ts, _ := startTestServer(t, testConfig())
	resp := doRequest(t, ts, http.MethodGet, "/api/idle-players?page=3&per_page=500", "u1", nil)
	expectStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["per_page"].(float64) != 200 || body["page"].(float64) != 3 {
		t.Fatalf("unexpected paging %#v", body)
	}
	if list := body["idle_players"].([]any); len(list) != 0 {
		t.Fatalf("expected no idle players, got %d", len(list))
	}
}

func TestWebsocketSnapshotAndBroadcast(t *testing.T) {
	ts, svc := startTestServer(t, testConfig())
	roomID, code := createRoom(t, ts, "u1")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	msg := readWSMessage(t, conn)
	if msg.Type != "snapshot" || len(msg.State.Players) != 1 {
		t.Fatalf("expected snapshot with 1 player, got %+v", msg)
	}

	joinRoom(t, ts, code, "u2", "Guest")
	msg = readWSMessage(t, conn)
	if msg.Type != "snapshot" || len(msg.State.Players) != 2 {
		t.Fatalf("expected broadcast with 2 players, got %+v", msg)
	}

	if err := svc.LeaveRoom(context.Background(), roomID, "u2"); err != nil {
		t.Fatalf("leave room: %v", err)
	}
	if err := svc.LeaveRoom(context.Background(), roomID, "u1"); err != nil {
		t.Fatalf("leave room: %v", err)
	}
	// Back-to-back changes may collapse into a single push.
	for {
		msg := readWSMessage(t, conn)
		if msg.Type == "deleted" {
			break
		}
		if msg.Type != "snapshot" {
			t.Fatalf("unexpected message %+v", msg)
		}
	}
}

func TestHubScheduleDoesNotWaitForPush(t *testing.T) {
	hub := newWSHub(quietLogger())
	hub.Add("r1", &wsClient{})

	release := make(chan struct{})
	var pushes atomic.Int32
	push := func(string) {
		pushes.Add(1)
		<-release
	}
	start := time.Now()
	for i := 0; i < 5; i++ {
		hub.Schedule("r1", push)
	}
	hub.Schedule("empty", push)
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("schedule waited %s on a slow push", elapsed)
	}
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		_, running := hub.pending["r1"]
		hub.mu.Unlock()
		if !running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("push loop did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := pushes.Load(); n < 1 || n > 2 {
		t.Fatalf("expected queued changes to collapse into at most 2 pushes, got %d", n)
	}
}

func TestWebsocketUnknownRoom(t *testing.T) {
	ts, _ := startTestServer(t, testConfig())
	resp := doRequest(t, ts, http.MethodGet, "/ws/rooms/missing", "", nil)
	expectKind(t, resp, http.StatusNotFound, "room_not_found")
}

func readWSMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read websocket: %v", err)
	}
	return msg
}
