package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/dungeontower/pkg/observability"
	"github.com/matzehuels/dungeontower/pkg/pipeline"
	"github.com/matzehuels/dungeontower/pkg/store"
)

const testMap = `{
  "shapes": [{"name": "square", "rectangle": {"width": 5, "height": 5}, "doors": {"overlap": {"length": 1, "corner_distance": 1}}}],
  "rooms": [{"id": "gate"}, {"id": "hall"}, {"id": "crypt"}],
  "connections": [["gate", "hall"], ["hall", "crypt"]],
  "default_shapes": ["square"]
}`

const testRequest = `{"map": ` + testMap + `, "name": "crypt", "seed": 5}`

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	runner := pipeline.NewRunner(nil, nil, store.NewMemoryStore(), nil)
	srv := httptest.NewServer(New(runner, cfg, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, []byte(buf.String())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Config{})
	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}
}

func TestLayoutLifecycle(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/layouts", testRequest)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, body)
	}
	var created LayoutResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.Layout == nil || len(created.Layout.Rooms) != 3 || created.Layout.Seed != 5 {
		t.Fatalf("created = %+v", created)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/layouts/"+created.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get = %d %s", resp.StatusCode, body)
	}
	var rec store.Record
	if err := json.Unmarshal(body, &rec); err != nil || rec.Layout.Name != "crypt" {
		t.Errorf("get = %+v, %v", rec, err)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/layouts/"+created.ID+"/svg?labels=true&scale=8", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
		t.Errorf("svg = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), ">gate</text>") {
		t.Error("svg is missing room labels")
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/layouts", "")
	var list []store.Summary
	if err := json.Unmarshal(body, &list); err != nil || len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("list = %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodDelete, srv.URL+"/v1/layouts/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete = %d", resp.StatusCode)
	}
	resp, body = do(t, http.MethodGet, srv.URL+"/v1/layouts/"+created.ID, "")
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(string(body), `"code":"NOT_FOUND"`) {
		t.Errorf("get deleted = %d %s", resp.StatusCode, body)
	}
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t, Config{})
	disconnected := `{"map": {"shapes": [{"name": "s", "rectangle": {"width": 3, "height": 3}, "doors": {"overlap": {"length": 1}}}],
"rooms": [{"id": "a"}, {"id": "b"}], "connections": [], "default_shapes": ["s"]}}`

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed body", http.MethodPost, "/v1/layouts", "{", 400, "INVALID_INPUT"},
		{"unknown field", http.MethodPost, "/v1/layouts", `{"mapp": {}}`, 400, "INVALID_INPUT"},
		{"missing map", http.MethodPost, "/v1/layouts", `{}`, 400, "INVALID_INPUT"},
		{"bad format", http.MethodPost, "/v1/layouts", `{"map": ` + testMap + `, "formats": ["gif"]}`, 400, "INVALID_INPUT"},
		{"disconnected", http.MethodPost, "/v1/layouts", disconnected, 400, "DISCONNECTED_GRAPH"},
		{"bad id", http.MethodGet, "/v1/layouts/nope", "", 400, "INVALID_INPUT"},
		{"unknown id", http.MethodGet, "/v1/layouts/00000000-0000-4000-8000-000000000000", "", 404, "NOT_FOUND"},
		{"bad limit", http.MethodGet, "/v1/layouts?limit=x", "", 400, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			var e ErrorResponse
			if err := json.Unmarshal(body, &e); err != nil || string(e.Code) != tt.code {
				t.Errorf("body = %s, want code %s", body, tt.code)
			}
		})
	}
}

// recordingHooks counts server hook calls.
type recordingHooks struct {
	observability.NoopServerHooks
	mu       sync.Mutex
	routes   []string
	statuses []int
	streams  int
}

func (h *recordingHooks) OnResponse(_ context.Context, _, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, route)
	h.statuses = append(h.statuses, status)
}

func (h *recordingHooks) OnStream(context.Context, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.streams++
}

func TestServerHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetServerHooks(hooks)
	defer observability.Reset()

	srv := newTestServer(t, Config{})
	do(t, http.MethodGet, srv.URL+"/v1/layouts/nope", "")

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.routes) != 1 || hooks.routes[0] != "/v1/layouts/{id}" || hooks.statuses[0] != 400 {
		t.Errorf("routes = %v, statuses = %v", hooks.routes, hooks.statuses)
	}
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestStream(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/stream?every=1"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(testRequest)); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Minute))
	events := 0
	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch msg.Type {
		case MessageEvent:
			events++
			if msg.Event == nil {
				t.Fatal("event message without event")
			}
		case MessageResult:
			if msg.ID == "" || msg.Layout == nil {
				t.Fatalf("result = %+v", msg)
			}
			if msg.Layout.Iterations > len(msg.Layout.Rooms) && events == 0 {
				t.Error("no events before the result")
			}
			return
		case MessageError:
			t.Fatalf("stream error: %+v", msg.Error)
		}
	}
}

func TestStreamBadRequest(t *testing.T) {
	srv := newTestServer(t, Config{})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/stream"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	var msg StreamMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != MessageError || msg.Error == nil || msg.Error.Code != "INVALID_INPUT" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestStreamOrigin(t *testing.T) {
	srv := newTestServer(t, Config{AllowedOrigins: []string{"https://maps.example"}})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/stream"), header); err == nil {
		t.Error("foreign origin accepted")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("resp = %v", resp)
	}

	header = http.Header{"Origin": []string{"https://maps.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/v1/stream"), header)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()
}
