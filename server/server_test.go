package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const fakeREPL = `#!/bin/sh
while read line; do
	case "$line" in
	*'"init_search"'*'nope.thm'*)
		echo '{"error":"decl_not_found: unknown declaration nope.thm","search_id":null,"tactic_state":null,"tactic_state_id":null}'
		;;
	*'"init_search"'*)
		echo '{"error":null,"search_id":"0","tactic_state":"⊢ p → p","tactic_state_id":"0"}'
		;;
	*'"solve"'*)
		echo '{"error":null,"search_id":"0","tactic_state":"no goals","tactic_state_id":"1"}'
		;;
	*'"clear_search"'*)
		echo '{"error":null,"search_id":null,"tactic_state":null,"tactic_state_id":null}'
		;;
	*)
		echo '{"error":"run_tac_failed: no match","search_id":null,"tactic_state":null,"tactic_state_id":null}'
		;;
	esac
done
`

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "repl.sh"), []byte(fakeREPL), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, &Config{
		RootDir:    dir,
		BinaryPath: "/bin/sh",
		Args:       []string{"repl.sh"},
		Timeout:    5 * time.Second,
	})
	t.Cleanup(func() {
		cancel()
		s.closeAll()
	})
	return s
}

func post(t *testing.T, handler http.Handler, route string, body map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	bs, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, route, bytes.NewReader(bs))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := make(map[string]interface{})
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, out
}

func TestServerProofSession(t *testing.T) {
	s := testServer(t)
	h := s.Handler()

	code, resp := post(t, h, "/reset", map[string]interface{}{"decl": "demo.thm"})
	if code != http.StatusOK {
		t.Fatalf("reset failed with %d: %v", code, resp)
	}
	session := resp["session_id"].(string)
	if resp["goal"] != "⊢ p → p" || resp["state_id"] != "0" {
		t.Fatalf("unexpected reset response: %v", resp)
	}

	code, resp = post(t, h, "/step", map[string]interface{}{
		"session_id": session,
		"state_id":   "0",
		"tactic":     "solve",
	})
	if code != http.StatusOK {
		t.Fatalf("step failed with %d: %v", code, resp)
	}
	if resp["done"] != true || resp["reward"] != 1.0 || resp["goal"] != "no goals" {
		t.Fatalf("unexpected step response: %v", resp)
	}

	// the episode is over, further steps conflict
	code, resp = post(t, h, "/step", map[string]interface{}{
		"session_id": session,
		"state_id":   "1",
		"tactic":     "solve",
	})
	if code != http.StatusConflict {
		t.Fatalf("expected 409 after the proof closed, got %d: %v", code, resp)
	}

	// reset on the same session reuses the process
	code, resp = post(t, h, "/reset", map[string]interface{}{
		"session_id": session,
		"decl":       "demo.thm",
	})
	if code != http.StatusOK || resp["session_id"] != session {
		t.Fatalf("expected the session to survive the reset, got %d: %v", code, resp)
	}

	code, resp = post(t, h, "/close", map[string]interface{}{"session_id": session})
	if code != http.StatusOK {
		t.Fatalf("close failed with %d: %v", code, resp)
	}
	code, _ = post(t, h, "/step", map[string]interface{}{
		"session_id": session,
		"state_id":   "0",
		"tactic":     "solve",
	})
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for a closed session, got %d", code)
	}
}

func TestServerTacticError(t *testing.T) {
	s := testServer(t)
	h := s.Handler()

	_, resp := post(t, h, "/reset", map[string]interface{}{"decl": "demo.thm"})
	session := resp["session_id"].(string)

	code, resp := post(t, h, "/step", map[string]interface{}{
		"session_id": session,
		"state_id":   "0",
		"tactic":     "bogus",
	})
	if code != http.StatusOK {
		t.Fatalf("a failed tactic must be a 200, got %d: %v", code, resp)
	}
	if resp["done"] != false || resp["error"] == nil {
		t.Fatalf("expected the prover message, got %v", resp)
	}
}

func TestServerDeclarationNotFound(t *testing.T) {
	s := testServer(t)
	code, resp := post(t, s.Handler(), "/reset", map[string]interface{}{"decl": "nope.thm"})
	if code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown declaration, got %d: %v", code, resp)
	}
}

func TestServerBadRequests(t *testing.T) {
	s := testServer(t)
	h := s.Handler()

	// decl is required
	if code, _ := post(t, h, "/reset", map[string]interface{}{}); code != http.StatusBadRequest {
		t.Errorf("expected 400 for a reset without decl, got %d", code)
	}
	if code, _ := post(t, h, "/step", map[string]interface{}{"session_id": "1"}); code != http.StatusBadRequest {
		t.Errorf("expected 400 for a step without tactic, got %d", code)
	}
	if code, _ := post(t, h, "/step", map[string]interface{}{
		"session_id": "99",
		"tactic":     "solve",
	}); code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown session, got %d", code)
	}
}

func TestServerSessions(t *testing.T) {
	s := testServer(t)
	h := s.Handler()

	_, first := post(t, h, "/reset", map[string]interface{}{"decl": "demo.thm"})
	_, second := post(t, h, "/reset", map[string]interface{}{"decl": "demo.thm"})
	if first["session_id"] == second["session_id"] {
		t.Fatal("expected distinct sessions for distinct resets")
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("sessions failed with %d", rec.Code)
	}
	var out struct {
		Sessions []map[string]string `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal sessions: %v", err)
	}
	if len(out.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %v", out.Sessions)
	}
	for _, sess := range out.Sessions {
		if sess["decl"] != "demo.thm" {
			t.Errorf("unexpected session entry %v", sess)
		}
	}
}
