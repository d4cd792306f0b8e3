package tempmail

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// mockAPI is a scripted stand-in for the remote mail service.
type mockAPI struct {
	t      *testing.T
	server *httptest.Server

	mu            sync.Mutex
	domains       []Domain
	domainsStatus int
	createStatus  int
	created       []createCall
	inbox         [][]Message // one entry per messages call; the last repeats
	inboxStatus   int
	calls         map[string]int
	messagePaths  []string
}

type createCall struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

func newMockAPI(t *testing.T) *mockAPI {
	t.Helper()
	m := &mockAPI{
		t:       t,
		domains: []Domain{{Name: "example.com"}, {Name: "mail.test"}},
		calls:   make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockAPI) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/domains":
		m.calls["domains"]++
		if m.domainsStatus != 0 {
			http.Error(w, `{"error":"unavailable"}`, m.domainsStatus)
			return
		}
		writeJSON(w, map[string]any{"domains": m.domains})

	case r.Method == http.MethodPost && r.URL.Path == "/email/new":
		m.calls["create"]++
		var req createCall
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			m.t.Errorf("decode create body: %v", err)
		}
		m.created = append(m.created, req)
		if m.createStatus != 0 {
			http.Error(w, `{"error":"create failed"}`, m.createStatus)
			return
		}
		writeJSON(w, map[string]string{"email": req.Name + "@" + req.Domain})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/email/") && strings.HasSuffix(r.URL.Path, "/messages"):
		m.calls["messages"]++
		m.messagePaths = append(m.messagePaths, r.URL.EscapedPath())
		if m.inboxStatus != 0 {
			http.Error(w, "inbox failed", m.inboxStatus)
			return
		}
		var batch []Message
		if len(m.inbox) > 0 {
			batch = m.inbox[0]
			if len(m.inbox) > 1 {
				m.inbox = m.inbox[1:]
			}
		}
		if batch == nil {
			batch = []Message{}
		}
		writeJSON(w, batch)

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// script sets the responses of the following messages calls.
func (m *mockAPI) script(batches ...[]Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = batches
}

func (m *mockAPI) set(fn func(m *mockAPI)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

func (m *mockAPI) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockAPI) lastCreate() createCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.created) == 0 {
		m.t.Fatal("no create call recorded")
	}
	return m.created[len(m.created)-1]
}

func (m *mockAPI) client(opts ...Option) *Client {
	m.t.Helper()
	c, err := New(m.server.URL, opts...)
	if err != nil {
		m.t.Fatalf("New() error = %v", err)
	}
	return c
}

func empty() []Message { return []Message{} }

func mail(subject string) []Message {
	return []Message{{From: "Alice <alice@example.org>", Subject: subject, BodyText: "hello"}}
}
