package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-composer/internal/auth"
	"github.com/dpshade/prompt-composer/internal/gateway"
	"github.com/dpshade/prompt-composer/internal/seed"
	"github.com/dpshade/prompt-composer/internal/store"
)

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Context map[string]interface{} `json:"context"`
	} `json:"error"`
}

func newTestServer(t *testing.T, a auth.Authenticator) (*APIServer, *gateway.Memory) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	gw := gateway.NewMemory()
	registry := store.NewRegistry(gw, log, store.Options{
		Catalog:  &seed.Catalog{},
		Debounce: 5 * time.Millisecond,
	})
	s := NewAPIServer(registry, a, log, true)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s, gw
}

func doRequest(t *testing.T, s *APIServer, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer test-token")

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("Expected JSON body from %s %s, got %q", method, path, raw)
		}
	}
	return resp.StatusCode, env
}

func decode(t *testing.T, raw json.RawMessage, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("Failed to decode data %s: %v", raw, err)
	}
}

type idOnly struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestHealthIsPublic(t *testing.T) {
	s, _ := newTestServer(t, auth.NewSupabaseWithLookup(func(string) (string, error) { return "", nil }))

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Errorf("Expected a request id header")
	}
}

func TestUnauthorized(t *testing.T) {
	s, _ := newTestServer(t, auth.NewSupabaseWithLookup(func(string) (string, error) { return "", nil }))

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", resp.StatusCode)
	}
}

func TestTemplateRoutes(t *testing.T) {
	s, gw := newTestServer(t, auth.NewStatic("u1"))

	status, env := doRequest(t, s, http.MethodPost, "/api/v1/templates", map[string]string{"name": "Launch"})
	if status != http.StatusCreated || env.Status != "success" {
		t.Fatalf("Expected 201 success, got %d %+v", status, env)
	}
	var first idOnly
	decode(t, env.Data, &first)
	if first.Name != "Launch" {
		t.Errorf("Expected name Launch, got %q", first.Name)
	}

	_, env = doRequest(t, s, http.MethodPost, "/api/v1/templates", nil)
	var second idOnly
	decode(t, env.Data, &second)

	status, _ = doRequest(t, s, http.MethodPut, "/api/v1/templates/order", map[string][]string{"ids": {second.ID, first.ID}})
	if status != http.StatusOK {
		t.Errorf("Expected reorder to succeed, got %d", status)
	}

	status, _ = doRequest(t, s, http.MethodPatch, "/api/v1/templates/"+first.ID, map[string]string{"name": "Renamed"})
	if status != http.StatusOK {
		t.Errorf("Expected rename to succeed, got %d", status)
	}

	_, env = doRequest(t, s, http.MethodGet, "/api/v1/templates", nil)
	var list []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsActive bool   `json:"is_active"`
	}
	decode(t, env.Data, &list)
	if len(list) != 2 || list[0].ID != second.ID || list[1].Name != "Renamed" {
		t.Errorf("Unexpected list %+v", list)
	}

	status, env = doRequest(t, s, http.MethodPatch, "/api/v1/templates/"+first.ID, map[string]string{})
	if status != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected 400 VALIDATION_ERROR for missing name, got %d %+v", status, env.Error)
	}

	status, _ = doRequest(t, s, http.MethodGet, "/api/v1/templates/missing", nil)
	if status != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", status)
	}

	status, _ = doRequest(t, s, http.MethodDelete, "/api/v1/templates/"+second.ID, nil)
	if status != http.StatusOK {
		t.Errorf("Expected delete to succeed, got %d", status)
	}
	status, _ = doRequest(t, s, http.MethodDelete, "/api/v1/templates/"+first.ID, nil)
	if status != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 deleting the last template, got %d", status)
	}

	st, err := s.registry.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("registry.Get failed: %v", err)
	}
	st.Flush()
	if gw.Calls(gateway.OpDeleteTemplate) != 1 {
		t.Errorf("Expected 1 persisted delete, got %d", gw.Calls(gateway.OpDeleteTemplate))
	}
}

func TestMasterDeleteNeedsConfirm(t *testing.T) {
	s, _ := newTestServer(t, auth.NewStatic("u1"))

	_, env := doRequest(t, s, http.MethodPost, "/api/v1/templates", nil)
	var master idOnly
	decode(t, env.Data, &master)
	doRequest(t, s, http.MethodPost, "/api/v1/templates", nil)

	status, _ := doRequest(t, s, http.MethodPost, "/api/v1/types", map[string]string{"name": "Blog", "master_id": master.ID})
	if status != http.StatusCreated {
		t.Fatalf("Expected type creation, got %d", status)
	}

	status, env = doRequest(t, s, http.MethodDelete, "/api/v1/templates/"+master.ID, nil)
	if status != http.StatusConflict || env.Error.Code != "CONFIRMATION_REQUIRED" {
		t.Fatalf("Expected 409 CONFIRMATION_REQUIRED, got %d %+v", status, env.Error)
	}
	if _, ok := env.Error.Context["plan"]; !ok {
		t.Errorf("Expected the delete plan in the error context")
	}

	status, _ = doRequest(t, s, http.MethodDelete, "/api/v1/templates/"+master.ID+"?confirm=true", nil)
	if status != http.StatusOK {
		t.Errorf("Expected confirmed delete to succeed, got %d", status)
	}

	_, env = doRequest(t, s, http.MethodGet, "/api/v1/types", nil)
	var types []idOnly
	decode(t, env.Data, &types)
	if len(types) != 0 {
		t.Errorf("Expected no types left, got %+v", types)
	}
}

func TestSnippetAndRenderRoutes(t *testing.T) {
	s, _ := newTestServer(t, auth.NewStatic("u1"))

	_, env := doRequest(t, s, http.MethodPost, "/api/v1/templates", nil)
	var tmpl idOnly
	decode(t, env.Data, &tmpl)

	status, env := doRequest(t, s, http.MethodPost, "/api/v1/templates/"+tmpl.ID+"/snippets", map[string]string{
		"label":    "Intro",
		"text":     "Hi {who}",
		"category": "Theme",
	})
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %+v", status, env.Error)
	}
	var sn idOnly
	decode(t, env.Data, &sn)

	status, _ = doRequest(t, s, http.MethodPut, "/api/v1/templates/"+tmpl.ID+"/placeholders/who", map[string]string{"value": "team"})
	if status != http.StatusOK {
		t.Errorf("Expected placeholder update to succeed, got %d", status)
	}

	_, env = doRequest(t, s, http.MethodGet, "/api/v1/templates/"+tmpl.ID+"/render", nil)
	var out struct {
		Text string `json:"text"`
	}
	decode(t, env.Data, &out)
	if out.Text != "Hi team" {
		t.Errorf("Expected %q, got %q", "Hi team", out.Text)
	}

	status, _ = doRequest(t, s, http.MethodGet, "/api/v1/templates/"+tmpl.ID+"/render?format=pdf", nil)
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown format, got %d", status)
	}

	status, _ = doRequest(t, s, http.MethodPatch, "/api/v1/snippets/"+sn.ID, map[string]string{"text": "Bye {who}"})
	if status != http.StatusOK {
		t.Errorf("Expected edit to succeed, got %d", status)
	}
	status, _ = doRequest(t, s, http.MethodPost, "/api/v1/snippets/"+sn.ID+"/toggle", nil)
	if status != http.StatusOK {
		t.Errorf("Expected toggle to succeed, got %d", status)
	}

	_, env = doRequest(t, s, http.MethodGet, "/api/v1/templates/"+tmpl.ID+"/render", nil)
	var disabled struct {
		Text string `json:"text"`
	}
	decode(t, env.Data, &disabled)
	if disabled.Text != "" {
		t.Errorf("Expected empty render with the snippet disabled, got %q", disabled.Text)
	}

	status, _ = doRequest(t, s, http.MethodDelete, "/api/v1/snippets/"+sn.ID, nil)
	if status != http.StatusOK {
		t.Errorf("Expected delete to succeed, got %d", status)
	}
}

func TestOpenAPISpec(t *testing.T) {
	s, _ := newTestServer(t, auth.NewStatic("u1"))

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var spec map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&spec); err != nil {
		t.Fatalf("Failed to decode spec: %v", err)
	}
	paths, _ := spec["paths"].(map[string]interface{})
	if _, ok := paths["/templates/{id}/render"]; !ok {
		t.Errorf("Expected the render route to be documented")
	}
}
