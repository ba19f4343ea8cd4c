package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"draw-royale/internal/game"
)

func doRequest(t *testing.T, ts *httptest.Server, method, path, userID string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected status %d, got %d", status, resp.StatusCode)
	}
}

func expectKind(t *testing.T, resp *http.Response, status int, kind string) {
	t.Helper()
	expectStatus(t, resp, status)
	body := decodeBody(t, resp)
	if body["kind"] != kind {
		t.Fatalf("expected kind %q, got %#v", kind, body["kind"])
	}
}

// createRoom creates a room hosted by hostID and returns its id and invite code.
func createRoom(t *testing.T, ts *httptest.Server, hostID string) (string, string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms", hostID, map[string]any{
		"name":       "Friday Sketches",
		"host_name":  "Host " + hostID,
		"max_rounds": 2,
	})
	expectStatus(t, resp, http.StatusCreated)
	body := decodeBody(t, resp)
	return body["id"].(string), body["invite_code"].(string)
}

func joinRoom(t *testing.T, ts *httptest.Server, code, userID, name string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/invite-codes/"+code+"/join", userID, map[string]any{
		"name": name,
	})
	expectStatus(t, resp, http.StatusOK)
}

// startedRoom returns a playing room with host "u1" and guest "u2".
func startedRoom(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	roomID, code := createRoom(t, ts, "u1")
	joinRoom(t, ts, code, "u2", "Guest")
	resp := doRequest(t, ts, http.MethodPost, "/api/rooms/"+roomID+"/start", "u1", nil)
	expectStatus(t, resp, http.StatusOK)
	return roomID
}

func loadRoom(t *testing.T, svc *game.Service, roomID string) *game.Room {
	t.Helper()
	room, err := svc.Store().Room(context.Background(), roomID)
	if err != nil {
		t.Fatalf("load room: %v", err)
	}
	return room
}

func guesserFor(room *game.Room) string {
	if room.CurrentArtist == "u1" {
		return "u2"
	}
	return "u1"
}
