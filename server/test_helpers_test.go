package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chazu/kutes/manifest"
	"github.com/chazu/kutes/vm"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

const podList = `{
  "kind": "List",
  "items": [
    {"kind": "Pod", "metadata": {"name": "web-1", "creationTimestamp": "2024-03-01T10:00:00Z"},
     "spec": {"priority": 5}, "status": {"phase": "Running"}},
    {"kind": "Pod", "metadata": {"name": "db-0", "creationTimestamp": "2024-02-20T12:00:00Z"},
     "spec": {"priority": 0}, "status": {"phase": "Pending"}}
  ]
}`

// newTestServer creates a server over a fresh VM. It is stopped when the
// test ends.
func newTestServer(t *testing.T) *KutesServer {
	t.Helper()
	s := New(vm.NewVM(vm.Config{}), manifest.Default())
	t.Cleanup(s.Stop)
	return s
}

// do sends a request with an optional JSON body and decodes a JSON reply
// into out when out is non-nil.
func do(t *testing.T, s *KutesServer, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decoding %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

// newSession creates a session loaded with doc and returns its ID.
func newSession(t *testing.T, s *KutesServer, doc string) string {
	t.Helper()
	var sess sessionResponse
	rec := do(t, s, http.MethodPost, "/v1/sessions", map[string]string{"name": t.Name()}, &sess)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", rec.Code, rec.Body)
	}
	if doc != "" {
		rec = do(t, s, http.MethodPut, "/v1/sessions/"+sess.ID+"/document", doc, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("put document: status %d: %s", rec.Code, rec.Body)
		}
	}
	return sess.ID
}
