package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"paychat/pkg/events"
	"paychat/pkg/session"
)

func newTestClient(baseURL, socketURL string, queue *events.Queue) *Client {
	sess := session.New("test-token", "u1")
	return NewClient(baseURL, socketURL, time.Second, 5*time.Second, sess, queue)
}

func TestRequestSendsBearerJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type: %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"query":"hello"`) {
			t.Errorf("unexpected body: %s", body)
		}
		w.Write([]byte(`{"answer":"hi"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "", events.NewQueue())

	raw, err := client.Request(context.Background(), "/v1/u1/chat", map[string]string{"query": "hello"})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	var reply struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply.Answer != "hi" {
		t.Fatalf("expected answer hi, got %q", reply.Answer)
	}
}

func TestRequestNon2xxCarriesStatusAndBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("denied"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "", events.NewQueue())

	_, err := client.Request(context.Background(), "/v1/u1/chat", map[string]string{"query": "hello"})
	if err == nil {
		t.Fatalf("expected error")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusForbidden || httpErr.Body != "denied" {
		t.Fatalf("unexpected error payload: %#v", httpErr)
	}
}

func TestConnectWithoutEndpointStaysDisconnected(t *testing.T) {
	t.Parallel()

	client := newTestClient("http://localhost", "", events.NewQueue())

	if err := client.Connect(); err != nil {
		t.Fatalf("missing endpoint must not be an error: %v", err)
	}
	if client.Connected() {
		t.Fatalf("expected disconnected state")
	}
}

func TestConnectWithoutTokenStaysDisconnected(t *testing.T) {
	t.Parallel()

	queue := events.NewQueue()
	client := NewClient("http://localhost", "ws://localhost/events", time.Second, time.Second, session.New("", ""), queue)

	if err := client.Connect(); err != nil {
		t.Fatalf("missing token must not be an error: %v", err)
	}
	if client.Connected() {
		t.Fatalf("expected disconnected state")
	}
}

func newSocketServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "test-token" {
			t.Errorf("expected token query parameter, got %q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		handler(conn)
	}))
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func consumeOne(t *testing.T, queue *events.Queue) events.Event {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	evt, ok := queue.Consume(ctx)
	if !ok {
		t.Fatalf("no event arrived in time")
	}
	return evt
}

func TestConnectDeliversDecodedEvents(t *testing.T) {
	t.Parallel()

	frames := []string{
		`{"type":"RECIPIENT_CHOICES","session_id":"s1","amount":100,"list":[]}`,
		`{not json`,
		`{"type":"SOMETHING_ELSE"}`,
		`{"type":"CODE_REQUIRED","payment_id":"p1","expires_in":180}`,
	}

	done := make(chan struct{})
	server := newSocketServer(t, func(conn *websocket.Conn) {
		defer close(done)
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				t.Errorf("write frame: %v", err)
				return
			}
		}
	})
	defer server.Close()

	queue := events.NewQueue()
	client := newTestClient(server.URL, wsURL(server), queue)

	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect()

	if _, ok := consumeOne(t, queue).(events.Connected); !ok {
		t.Fatalf("expected Connected first")
	}
	if _, ok := consumeOne(t, queue).(events.RecipientChoices); !ok {
		t.Fatalf("expected RecipientChoices")
	}
	// The malformed and unknown frames are dropped; the next decoded event
	// is the OTP push.
	if _, ok := consumeOne(t, queue).(events.CodeRequired); !ok {
		t.Fatalf("expected CodeRequired")
	}

	<-done
}

func TestAbnormalClosurePublishesDisconnected(t *testing.T) {
	t.Parallel()

	server := newSocketServer(t, func(conn *websocket.Conn) {
		// Drop the TCP connection without a close frame.
		conn.UnderlyingConn().Close()
	})
	defer server.Close()

	queue := events.NewQueue()
	client := newTestClient(server.URL, wsURL(server), queue)

	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Disconnect()

	if _, ok := consumeOne(t, queue).(events.Connected); !ok {
		t.Fatalf("expected Connected first")
	}

	evt := consumeOne(t, queue)
	disc, ok := evt.(events.Disconnected)
	if !ok {
		t.Fatalf("expected Disconnected, got %T", evt)
	}
	if disc.Code != websocket.CloseAbnormalClosure {
		t.Fatalf("expected close code 1006, got %d", disc.Code)
	}
}

func TestDisconnectIsIdempotentAndSilent(t *testing.T) {
	t.Parallel()

	hold := make(chan struct{})
	server := newSocketServer(t, func(conn *websocket.Conn) {
		<-hold
		conn.Close()
	})
	defer server.Close()
	defer close(hold)

	queue := events.NewQueue()
	client := newTestClient(server.URL, wsURL(server), queue)

	if err := client.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, ok := consumeOne(t, queue).(events.Connected); !ok {
		t.Fatalf("expected Connected first")
	}

	client.Disconnect()
	client.Disconnect()

	if client.Connected() {
		t.Fatalf("expected disconnected state")
	}

	// A close the user asked for produces no connectivity-loss event.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if evt, ok := queue.Consume(ctx); ok {
		t.Fatalf("unexpected event after local disconnect: %#v", evt)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"ok":true,"service":"api"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "", events.NewQueue())
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}

	bad := newTestClient(server.URL+"/missing", "", events.NewQueue())
	if err := bad.Health(context.Background()); err == nil {
		t.Fatalf("expected health failure")
	}
}
