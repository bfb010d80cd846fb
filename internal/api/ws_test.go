package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/gridcity/internal/engine"
)

func dialWS(t *testing.T, httpURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

// readUntil skips messages until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) Envelope {
	t.Helper()
	for i := 0; i < 10; i++ {
		if env := readEnvelope(t, conn); env.Type == want {
			return env
		}
	}
	t.Fatalf("no %q message within 10 reads", want)
	return Envelope{}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	env := Envelope{Type: typ}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		env.Payload = b
	}
	if err := conn.WriteJSON(env); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWebsocketInitialState(t *testing.T) {
	_, ts := newTestServer(t, "")
	conn := dialWS(t, ts.URL)

	env := readEnvelope(t, conn)
	if env.Type != MsgState {
		t.Fatalf("first message type = %q, want state", env.Type)
	}
	var msg stateMessage
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Session == "" {
		t.Error("first state message should carry the session id")
	}
	if msg.State.Money != 100 || msg.State.GridSize != 8 {
		t.Errorf("state = %+v", msg.State)
	}
}

func TestWebsocketPlacement(t *testing.T) {
	_, ts := newTestServer(t, "")
	conn := dialWS(t, ts.URL)
	readUntil(t, conn, MsgState)

	send(t, conn, CmdSelect, map[string]string{"id": "apartment_block"})
	readUntil(t, conn, MsgAck)

	send(t, conn, CmdHover, map[string]int{"x": 7, "y": 7})
	var res CommandResult
	if err := json.Unmarshal(readUntil(t, conn, MsgAck).Payload, &res); err != nil {
		t.Fatal(err)
	}
	if c := res.Selection.Candidate; c == nil || c.X != 6 || c.Y != 6 {
		t.Fatalf("clamped candidate = %v, want (6,6)", c)
	}

	send(t, conn, CmdCommit, nil)
	if err := json.Unmarshal(readUntil(t, conn, MsgAck).Payload, &res); err != nil {
		t.Fatal(err)
	}
	if res.Money != 80 || res.Population != 10 {
		t.Errorf("money/pop = %d/%d, want 80/10", res.Money, res.Population)
	}
}

func TestWebsocketBroadcast(t *testing.T) {
	srv, ts := newTestServer(t, "")
	watcher := dialWS(t, ts.URL)
	readUntil(t, watcher, MsgState)

	// Wait for the hub to register the session before mutating.
	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.Sessions() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	srv.Eng.Do(func(sim *engine.Simulation) error {
		sim.GrantMoney(25)
		return nil
	})

	var msg stateMessage
	if err := json.Unmarshal(readUntil(t, watcher, MsgState).Payload, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.State.Money != 125 {
		t.Errorf("broadcast money = %d, want 125", msg.State.Money)
	}
	if len(msg.Events) != 1 || msg.Events[0].Kind != engine.EventGrant {
		t.Errorf("broadcast events = %+v, want one grant", msg.Events)
	}
}

func TestWebsocketErrors(t *testing.T) {
	_, ts := newTestServer(t, "")
	conn := dialWS(t, ts.URL)
	readUntil(t, conn, MsgState)

	cases := []struct {
		typ     string
		payload any
		kind    string
	}{
		{CmdSelect, map[string]string{"id": "castle"}, "not_found"},
		{CmdCommit, nil, "invalid_placement"},
		{CmdHover, nil, "bad_request"},
		{"demolish", nil, "bad_request"},
	}
	for _, tc := range cases {
		send(t, conn, tc.typ, tc.payload)
		var msg errorMessage
		if err := json.Unmarshal(readUntil(t, conn, MsgError).Payload, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Kind != tc.kind || msg.Command != tc.typ {
			t.Errorf("%s: error = %+v, want kind %s", tc.typ, msg, tc.kind)
		}
	}
}
