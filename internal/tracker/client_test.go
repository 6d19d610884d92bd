package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"qalilab/pkg/config"
	"qalilab/pkg/tenants"
)

func basicClientFor(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	cfg := config.Config{
		JiraBaseURL:    srv.URL,
		JiraProjectKey: "ACD",
		JiraEmail:      "qa@example.com",
		JiraAPIToken:   "token-123",
	}
	return NewBasicClient(cfg, nil, zap.NewNop().Sugar())
}

func TestGetIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/ACD-42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("fields"); got != "summary,description,project,issuetype" {
			t.Errorf("fields = %q", got)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "qa@example.com" || pass != "token-123" {
			t.Error("missing or wrong basic auth")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"key": "ACD-42",
			"fields": map[string]any{
				"summary":     "Login works",
				"description": "As a user, I want to log in",
				"project":     map[string]string{"key": "ACD"},
				"issuetype":   map[string]string{"name": "Story"},
			},
		})
	}))
	defer srv.Close()

	issue, err := basicClientFor(t, srv).GetIssue(context.Background(), "ACD-42")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if issue.Key != "ACD-42" || issue.Summary != "Login works" || issue.ProjectKey != "ACD" || issue.Type != "Story" {
		t.Errorf("issue = %+v", issue)
	}
	if issue.Description != "As a user, I want to log in" {
		t.Errorf("description = %q", issue.Description)
	}
}

func TestGetIssueNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessages":["Issue does not exist"]}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := basicClientFor(t, srv).GetIssue(context.Background(), "ACD-999")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestMissingBasicCredentials(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	cfg := config.Config{JiraBaseURL: srv.URL, JiraProjectKey: "ACD"}
	c := NewBasicClient(cfg, nil, zap.NewNop().Sugar())
	_, err := c.GetIssue(context.Background(), "ACD-1")
	if err == nil {
		t.Fatal("expected explicit failure without credentials")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("request went out without credentials")
	}
}

func TestIssueTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/createmeta" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("projectKeys"); got != "ACD" {
			t.Errorf("projectKeys = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"projects": []map[string]any{{
				"issuetypes": []map[string]string{{"name": "Story"}, {"name": "Bug"}, {"name": "Test"}},
			}},
		})
	}))
	defer srv.Close()

	names := basicClientFor(t, srv).IssueTypes(context.Background())
	if len(names) != 3 || names[0] != "Story" || names[2] != "Test" {
		t.Errorf("names = %v", names)
	}
}

func TestIssueTypesFailureYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if names := basicClientFor(t, srv).IssueTypes(context.Background()); names != nil {
		t.Errorf("names = %v, want nil on upstream failure", names)
	}
}

func TestSearchIssues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("jql"); !strings.Contains(got, "project = ACD") {
			t.Errorf("jql = %q", got)
		}
		if got := r.URL.Query().Get("maxResults"); got != "100" {
			t.Errorf("maxResults = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issues": []map[string]any{
				{"key": "ACD-1", "fields": map[string]string{"summary": "First"}},
				{"key": "ACD-2", "fields": map[string]string{"summary": "Second"}},
			},
		})
	}))
	defer srv.Close()

	refs, err := basicClientFor(t, srv).SearchIssues(context.Background(), "project = ACD AND issuetype = 'Story'", 100)
	if err != nil {
		t.Fatalf("SearchIssues: %v", err)
	}
	if len(refs) != 2 || refs[0].Key != "ACD-1" || refs[1].Summary != "Second" {
		t.Errorf("refs = %+v", refs)
	}
}

func TestUpdateDescriptionAppendReadsCurrentFirst(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"key": "ACD-7",
				"fields": map[string]any{
					"summary":     "S",
					"description": "Old text",
					"project":     map[string]string{"key": "ACD"},
					"issuetype":   map[string]string{"name": "Story"},
				},
			})
		case http.MethodPut:
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	ok, msg := basicClientFor(t, srv).UpdateDescription(context.Background(), "ACD-7", "New text", PolicyAppend)
	if !ok {
		t.Fatalf("UpdateDescription failed: %s", msg)
	}
	fields := gotBody["fields"].(map[string]any)
	if got := fields["description"]; got != "Old text\n\n--------------------\n\nNew text" {
		t.Errorf("written description = %q", got)
	}
}

func TestUpdateDescriptionErrorIsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	ok, msg := basicClientFor(t, srv).UpdateDescription(context.Background(), "ACD-7", "New text", PolicyReplace)
	if ok {
		t.Fatal("expected failure")
	}
	if !strings.Contains(msg, "403") {
		t.Errorf("message should carry the status: %q", msg)
	}
}

func TestAddComment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issue/ACD-3/comment" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["body"] != "bonjour" {
			t.Errorf("body = %v", payload["body"])
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ok, msg := basicClientFor(t, srv).AddComment(context.Background(), "ACD-3", "bonjour")
	if !ok {
		t.Fatalf("AddComment failed: %s", msg)
	}
	if msg != "Commentaire ajouté avec succès" {
		t.Errorf("msg = %q", msg)
	}
}

func TestCreateIssueReturnsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		fields := payload["fields"].(map[string]any)
		if proj := fields["project"].(map[string]any); proj["key"] != "ACD" {
			t.Errorf("project = %v", proj)
		}
		if typ := fields["issuetype"].(map[string]any); typ["name"] != "Test" {
			t.Errorf("issuetype = %v", typ)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"key": "ACD-101"})
	}))
	defer srv.Close()

	ok, msg := basicClientFor(t, srv).CreateIssue(context.Background(), "Cas de test", "Given...", "Test")
	if !ok {
		t.Fatalf("CreateIssue failed: %s", msg)
	}
	if msg != "ACD-101" {
		t.Errorf("msg = %q, want the created key", msg)
	}
}

func TestLinkIssues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/issueLink" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if typ := payload["type"].(map[string]any); typ["name"] != "Relates" {
			t.Errorf("link type = %v", typ)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ok, msg := basicClientFor(t, srv).LinkIssues(context.Background(), "ACD-101", "ACD-42", "")
	if !ok {
		t.Fatalf("LinkIssues failed: %s", msg)
	}
	if !strings.Contains(msg, "ACD-101") || !strings.Contains(msg, "ACD-42") {
		t.Errorf("msg = %q", msg)
	}
}

func TestForTenantUnknownDoesNoHTTP(t *testing.T) {
	store := tenants.NewMemoryStore(zap.NewNop().Sugar())
	f := NewFactory(config.Config{AppKey: "qalilab-testgen", JiraProjectKey: "ACD"}, store, nil, zap.NewNop().Sugar())
	_, err := f.ForTenant(context.Background(), "tenant-missing")
	if !errors.Is(err, tenants.ErrNotInstalled) {
		t.Fatalf("err = %v, want ErrNotInstalled", err)
	}
}

func TestForTenantSignsOutbound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "JWT ") {
			t.Errorf("Authorization = %q, want a Connect token", authz)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"key": "ACD-1", "fields": map[string]any{}})
	}))
	defer srv.Close()

	store := tenants.NewMemoryStore(zap.NewNop().Sugar())
	_ = store.Put(context.Background(), tenants.Installation{
		ClientKey:    "tenant-a",
		BaseURL:      srv.URL,
		SharedSecret: "secret",
	})
	f := NewFactory(config.Config{AppKey: "qalilab-testgen", JiraProjectKey: "ACD"}, store, nil, zap.NewNop().Sugar())
	c, err := f.ForTenant(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("ForTenant: %v", err)
	}
	if _, err := c.GetIssue(context.Background(), "ACD-1"); err != nil {
		t.Fatalf("GetIssue via connect client: %v", err)
	}
}

func TestBrowseURL(t *testing.T) {
	cfg := config.Config{JiraBaseURL: "amaniconsulting.atlassian.net", JiraProjectKey: "ACD"}
	c := NewBasicClient(cfg, nil, zap.NewNop().Sugar())
	if got := c.BrowseURL("ACD-5"); got != "https://amaniconsulting.atlassian.net/browse/ACD-5" {
		t.Errorf("BrowseURL = %q", got)
	}
}
