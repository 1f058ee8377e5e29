package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"forumhub/internal/app"
	"forumhub/internal/ratelimit"
	"forumhub/pkg/domain"
	"forumhub/pkg/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	srv   *httptest.Server
	app   *app.App
	store *store.MemoryStore
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	memStore := store.NewMemoryStore()
	sessions, err := store.NewJWTSessionStore(testSecret, time.Hour, store.NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	a, err := app.New(app.Config{
		Store:      memStore,
		Sessions:   sessions,
		SessionTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	cfg.App = a
	srv := httptest.NewServer(New(cfg).Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, app: a, store: memStore}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func (e *testEnv) register(t *testing.T, name, email string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	body := decodeBody[map[string]json.RawMessage](t, resp)
	var token app.Token
	if err := json.Unmarshal(body["token"], &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return token.Token
}

func (e *testEnv) seedCourse(t *testing.T, id, name string) {
	t.Helper()
	if err := e.store.SaveCourse(domain.Course{
		ID: id, Name: name, Category: "Programación", Active: true, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed course: %v", err)
	}
}

func TestRegisterLoginValidateLogout(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.register(t, "Ana", "ana@example.com")

	resp := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	body := decodeBody[map[string]json.RawMessage](t, resp)
	var token app.Token
	if err := json.Unmarshal(body["token"], &token); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if token.Type != "Bearer" || token.Token == "" {
		t.Fatalf("unexpected token payload: %+v", token)
	}

	resp = env.do(t, http.MethodPost, "/auth/validate", token.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/auth/logout", token.Token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/auth/validate", token.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
	errBody := decodeBody[map[string]any](t, resp)
	if errBody["code"] != "AUTHENTICATION_ERROR" {
		t.Fatalf("expected AUTHENTICATION_ERROR, got %v", errBody["code"])
	}
}

func TestRegisterValidationErrorBody(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "", "email": "not-an-email", "password": "abc",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", body["code"])
	}
	details, ok := body["details"].(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %v", body["details"])
	}
	for _, field := range []string{"name", "email", "password"} {
		if _, present := details[field]; !present {
			t.Fatalf("expected %s detail, got %v", field, details)
		}
	}
	if _, present := body["timestamp"]; !present {
		t.Fatalf("expected timestamp in error body")
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.register(t, "Ana", "ana@example.com")
	resp := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Otra", "email": "ana@example.com", "password": "secret123",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["code"] != "DUPLICATE_ENTRY" {
		t.Fatalf("expected DUPLICATE_ENTRY, got %v", body["code"])
	}
}

func TestRegisterRateLimited(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(redis.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	env := newTestEnv(t, Config{RegisterLimiter: limiter})

	env.register(t, "Uno", "uno@example.com")
	env.register(t, "Dos", "dos@example.com")
	resp := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Tres", "email": "tres@example.com", "password": "secret123",
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	body := decodeBody[map[string]any](t, resp)
	if body["code"] != "RATE_LIMITED" {
		t.Fatalf("expected RATE_LIMITED, got %v", body["code"])
	}
}

func TestTopicLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t, Config{})
	authorToken := env.register(t, "Ana", "ana@example.com")
	replierToken := env.register(t, "Bob", "bob@example.com")
	env.seedCourse(t, "go-course", "Go")

	// create
	resp := env.do(t, http.MethodPost, "/topicos", authorToken, map[string]string{
		"title": "Dudas de canales", "message": "¿Cómo cierro un canal?", "courseId": "go-course",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create topic status %d", resp.StatusCode)
	}
	topic := decodeBody[app.TopicSummary](t, resp)
	if topic.Status != domain.TopicOpen {
		t.Fatalf("expected ABIERTO, got %q", topic.Status)
	}
	if topic.AuthorName != "Ana" || topic.CourseName != "Go" {
		t.Fatalf("expected projected create response, got %+v", topic)
	}

	// anonymous create rejected
	resp = env.do(t, http.MethodPost, "/topicos", "", map[string]string{
		"title": "x", "message": "y", "courseId": "go-course",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous create, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// reply
	resp = env.do(t, http.MethodPost, "/respuestas/topico/"+topic.ID, replierToken, map[string]string{
		"message": "Usa close(ch)",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create reply status %d", resp.StatusCode)
	}
	reply := decodeBody[app.ReplyView](t, resp)
	if reply.AuthorName != "Bob" {
		t.Fatalf("expected projected reply response, got %+v", reply)
	}

	// mark solution by non-author is forbidden
	resp = env.do(t, http.MethodPatch, "/respuestas/"+reply.ID+"/solucion", replierToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-author mark, got %d", resp.StatusCode)
	}
	errBody := decodeBody[map[string]any](t, resp)
	if errBody["code"] != "ACCESS_DENIED" {
		t.Fatalf("expected ACCESS_DENIED, got %v", errBody["code"])
	}

	// mark solution by topic author resolves the topic
	resp = env.do(t, http.MethodPatch, "/respuestas/"+reply.ID+"/solucion", authorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark solution status %d", resp.StatusCode)
	}
	marked := decodeBody[app.ReplyView](t, resp)
	if !marked.Solution || marked.AuthorName != "Bob" {
		t.Fatalf("expected projected solution reply, got %+v", marked)
	}
	resp = env.do(t, http.MethodGet, "/topicos/"+topic.ID, "", nil)
	detail := decodeBody[app.TopicDetail](t, resp)
	if detail.Status != domain.TopicResolved {
		t.Fatalf("expected RESUELTO, got %q", detail.Status)
	}
	if len(detail.Replies) != 1 || detail.Replies[0].AuthorName != "Bob" {
		t.Fatalf("expected expanded replies, got %+v", detail.Replies)
	}

	// unmark returns the topic to ABIERTO
	resp = env.do(t, http.MethodDelete, "/respuestas/"+reply.ID+"/solucion", authorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unmark status %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = env.do(t, http.MethodGet, "/topicos/"+topic.ID, "", nil)
	detail = decodeBody[app.TopicDetail](t, resp)
	if detail.Status != domain.TopicOpen {
		t.Fatalf("expected ABIERTO after unmark, got %q", detail.Status)
	}

	// close, then replying fails with INVALID_STATE
	resp = env.do(t, http.MethodPost, "/topicos/"+topic.ID+"/cerrar", authorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close status %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/respuestas/topico/"+topic.ID, replierToken, map[string]string{
		"message": "tarde",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 replying to closed topic, got %d", resp.StatusCode)
	}
	errBody = decodeBody[map[string]any](t, resp)
	if errBody["code"] != "INVALID_STATE" {
		t.Fatalf("expected INVALID_STATE, got %v", errBody["code"])
	}

	// reopen and delete
	resp = env.do(t, http.MethodPost, "/topicos/"+topic.ID+"/reabrir", authorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reopen status %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = env.do(t, http.MethodDelete, "/topicos/"+topic.ID, authorToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = env.do(t, http.MethodGet, "/topicos/"+topic.ID, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	errBody = decodeBody[map[string]any](t, resp)
	if errBody["code"] != "ENTITY_NOT_FOUND" {
		t.Fatalf("expected ENTITY_NOT_FOUND, got %v", errBody["code"])
	}
}

func TestTopicListPagination(t *testing.T) {
	env := newTestEnv(t, Config{})
	token := env.register(t, "Ana", "ana@example.com")
	env.seedCourse(t, "go-course", "Go")
	for i := 0; i < 3; i++ {
		resp := env.do(t, http.MethodPost, "/topicos", token, map[string]string{
			"title": fmt.Sprintf("Tema %d", i), "message": "m", "courseId": "go-course",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create topic %d: status %d", i, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := env.do(t, http.MethodGet, "/topicos?page=0&size=2", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
	page := decodeBody[map[string]any](t, resp)
	if page["count"].(float64) != 2 || page["totalItems"].(float64) != 3 || page["totalPages"].(float64) != 2 {
		t.Fatalf("unexpected pagination payload: %v", page)
	}
}

func TestSearchTopicsRequiresQuery(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp := env.do(t, http.MethodGet, "/topicos/buscar", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", body["code"])
	}
}

func TestTopicsByMissingCourse(t *testing.T) {
	env := newTestEnv(t, Config{})
	resp := env.do(t, http.MethodGet, "/topicos/curso/no-such-course", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCoursesEndpoints(t *testing.T) {
	env := newTestEnv(t, Config{})
	if err := store.Seed(env.store, "admin@forumhub.local", "admin123"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/cursos?size=100", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list courses status %d", resp.StatusCode)
	}
	page := decodeBody[map[string]any](t, resp)
	if page["totalItems"].(float64) != 10 {
		t.Fatalf("expected 10 seeded courses, got %v", page["totalItems"])
	}

	resp = env.do(t, http.MethodGet, "/cursos/categorias", "", nil)
	categories := decodeBody[[]string](t, resp)
	if len(categories) == 0 {
		t.Fatalf("expected seeded categories")
	}

	resp = env.do(t, http.MethodGet, "/cursos/buscar?nombre=docker", "", nil)
	courses := decodeBody[[]app.CourseView](t, resp)
	if len(courses) != 1 || courses[0].Name != "Docker: Creando containers" {
		t.Fatalf("expected case-insensitive course search, got %+v", courses)
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, Config{})
	token := env.register(t, "Ana", "ana@example.com")
	env.seedCourse(t, "go-course", "Go")
	resp := env.do(t, http.MethodPost, "/topicos", token, map[string]string{
		"title": "t", "message": "m", "courseId": "go-course",
	})
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/estadisticas", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d", resp.StatusCode)
	}
	stats := decodeBody[app.Stats](t, resp)
	if stats.TotalTopics != 1 || stats.OpenTopics != 1 || stats.TotalUsers != 1 || stats.TotalCourses != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
