package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	accounthttp "github.com/akentev/account-service/internal/account/http"
	"github.com/akentev/account-service/internal/account/repository"
	"github.com/akentev/account-service/internal/account/service"
	"github.com/akentev/account-service/internal/common/clock"
	commoncrypto "github.com/akentev/account-service/internal/common/crypto"
	"github.com/akentev/account-service/internal/common/logger"
	"github.com/akentev/account-service/internal/common/token"
)

const testSecret = "test-secret-key-at-least-32-bytes!!"

type testEnv struct {
	handler http.Handler
	store   *repository.MemoryStore
	clock   *clock.MockClock
	tokens  *token.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()
	hasher := &commoncrypto.BcryptHasher{}
	idGen := commoncrypto.NewUUIDGenerator()
	clk := clock.NewMockClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	tokens := token.NewService(testSecret, 24*time.Hour)
	log, _ := logger.New("", "test", "error")

	users := service.NewUserService(store, hasher, idGen, tokens, clk, log)
	sessions := service.NewSessionService(store, hasher, tokens, log)
	chain := accounthttp.NewAuthChain(tokens, store, log)
	handler := accounthttp.NewHandler(users, sessions, chain, 30*time.Second, log)

	return &testEnv{
		handler: handler,
		store:   store,
		clock:   clk,
		tokens:  tokens,
	}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createUser(t *testing.T, name, email, password string, isAdmin bool) map[string]any {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/users", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
		"isAdmin":  isAdmin,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %s: expected 201, got %d: %s", email, rec.Code, rec.Body.String())
	}

	var created map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created user: %v", err)
	}
	return created
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	return resp.Token
}

func TestCreateUser_NeverExposesHash(t *testing.T) {
	env := newTestEnv(t)

	created := env.createUser(t, "Alice", "a@x.com", "p1", false)

	for _, key := range []string{"password", "passwordHash", "password_hash"} {
		if _, ok := created[key]; ok {
			t.Errorf("response exposes %q", key)
		}
	}
	for _, key := range []string{"id", "name", "email", "isAdmin", "createdAt", "updatedAt"} {
		if _, ok := created[key]; !ok {
			t.Errorf("response missing %q", key)
		}
	}
	if created["email"] != "a@x.com" {
		t.Errorf("unexpected email %v", created["email"])
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	env.createUser(t, "Alice", "a@x.com", "p1", false)

	rec := env.do(t, http.MethodPost, "/users", "", map[string]any{
		"name":     "Imposter",
		"email":    "a@x.com",
		"password": "p2",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var env2 struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env2); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env2.Message != "E-mail already registered" {
		t.Errorf("unexpected message %q", env2.Message)
	}
}

func TestCreateUser_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/users", "", map[string]any{
		"name":     "Alice",
		"email":    "not-an-email",
		"password": "p1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Alice", "a@x.com", "p1", false)

	type envelope struct {
		Message string `json:"message"`
	}

	wrongPassword := env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "a@x.com", "password": "wrong",
	})
	unknownEmail := env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email": "nobody@x.com", "password": "p1",
	})

	if wrongPassword.Code != http.StatusUnauthorized || unknownEmail.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPassword.Code, unknownEmail.Code)
	}

	var a, b envelope
	if err := json.NewDecoder(wrongPassword.Body).Decode(&a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.NewDecoder(unknownEmail.Body).Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Message != b.Message {
		t.Errorf("login failures leak account existence: %q vs %q", a.Message, b.Message)
	}
	if a.Message != "Wrong email or password" {
		t.Errorf("unexpected message %q", a.Message)
	}
}

func TestListUsers_Gates(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Alice", "a@x.com", "p1", false)
	env.createUser(t, "Root", "root@x.com", "p2", true)

	if rec := env.do(t, http.MethodGet, "/users", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}

	userToken := env.login(t, "a@x.com", "p1")
	if rec := env.do(t, http.MethodGet, "/users", userToken, nil); rec.Code != http.StatusForbidden {
		t.Errorf("non-admin: expected 403, got %d", rec.Code)
	}

	adminToken := env.login(t, "root@x.com", "p2")
	rec := env.do(t, http.MethodGet, "/users", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var listed []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 users, got %d", len(listed))
	}
	for _, u := range listed {
		if _, ok := u["passwordHash"]; ok {
			t.Error("listing exposes password hash")
		}
	}
}

func TestGates_UnknownSubject(t *testing.T) {
	env := newTestEnv(t)

	raw, err := env.tokens.Issue("no-such-user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if rec := env.do(t, http.MethodGet, "/users/profile", raw, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGates_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Alice", "a@x.com", "p1", false)

	issuedAt := time.Now().Add(-48 * time.Hour)
	expiredIssuer := token.NewServiceWithClock(testSecret, 24*time.Hour, func() time.Time { return issuedAt })
	raw, err := expiredIssuer.Issue("whatever")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if rec := env.do(t, http.MethodGet, "/users/profile", raw, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for expired token, got %d", rec.Code)
	}
}

func TestProfileUpdateScenario(t *testing.T) {
	env := newTestEnv(t)

	created := env.createUser(t, "Alice", "a@x.com", "p1", false)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected a generated id")
	}

	tokenA := env.login(t, "a@x.com", "p1")

	rec := env.do(t, http.MethodGet, "/users/profile", tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", rec.Code)
	}
	var profile map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile["id"] != id || profile["email"] != "a@x.com" {
		t.Errorf("unexpected profile: %+v", profile)
	}

	env.clock.Advance(time.Hour)

	rec = env.do(t, http.MethodPatch, "/users/"+id, tokenA, map[string]any{"name": "new"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var patched map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&patched); err != nil {
		t.Fatalf("decode patched: %v", err)
	}
	if patched["name"] != "new" {
		t.Errorf("expected name new, got %v", patched["name"])
	}
	if patched["updatedAt"] == created["updatedAt"] {
		t.Error("expected updatedAt refreshed")
	}
	if patched["createdAt"] != created["createdAt"] {
		t.Error("createdAt must not change")
	}

	rec = env.do(t, http.MethodPatch, "/users/"+id, tokenA, map[string]any{"isAdmin": true})
	if rec.Code != http.StatusForbidden {
		t.Errorf("isAdmin grant by non-admin: expected 403, got %d", rec.Code)
	}
}

func TestPatch_OtherTarget(t *testing.T) {
	env := newTestEnv(t)

	env.createUser(t, "Alice", "a@x.com", "p1", false)
	other := env.createUser(t, "Bob", "b@x.com", "p2", false)
	otherID := fmt.Sprintf("%v", other["id"])

	tokenA := env.login(t, "a@x.com", "p1")

	rec := env.do(t, http.MethodPatch, "/users/"+otherID, tokenA, map[string]any{"name": "new"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for non-self target, got %d", rec.Code)
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)

	alice := env.createUser(t, "Alice", "a@x.com", "p1", false)
	bob := env.createUser(t, "Bob", "b@x.com", "p2", false)
	env.createUser(t, "Root", "root@x.com", "p3", true)

	aliceID := fmt.Sprintf("%v", alice["id"])
	bobID := fmt.Sprintf("%v", bob["id"])

	tokenA := env.login(t, "a@x.com", "p1")
	if rec := env.do(t, http.MethodDelete, "/users/"+bobID, tokenA, nil); rec.Code != http.StatusForbidden {
		t.Errorf("cross-user delete by non-admin: expected 403, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/users/"+aliceID, tokenA, nil); rec.Code != http.StatusNoContent {
		t.Errorf("self-delete: expected 204, got %d", rec.Code)
	}

	// The record is gone, so the same token no longer resolves.
	if rec := env.do(t, http.MethodGet, "/users/profile", tokenA, nil); rec.Code != http.StatusNotFound {
		t.Errorf("profile after self-delete: expected 404, got %d", rec.Code)
	}

	adminToken := env.login(t, "root@x.com", "p3")
	if rec := env.do(t, http.MethodDelete, "/users/"+bobID, adminToken, nil); rec.Code != http.StatusNoContent {
		t.Errorf("admin cross-user delete: expected 204, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/users/"+bobID, adminToken, nil); rec.Code != http.StatusNotFound {
		t.Errorf("deleting a missing user: expected 404, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPut, "/users", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /users: expected 405, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/login", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /login: expected 405, got %d", rec.Code)
	}
}
