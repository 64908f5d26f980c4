package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docbay/internal/config"
	"docbay/internal/constants"
	"docbay/internal/document"
	"docbay/internal/logger"
	"docbay/internal/store"
)

func testServer(t *testing.T, rawRules map[string]any) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()

	public := store.NewStore(map[string]map[string]document.Doc{
		"games": {
			"g1": {"title": "Chess", "_ownerId": "owner-1"},
			"g2": {"title": "Go"},
		},
	})
	protected := store.NewStore(nil)

	app := NewApp(cfg, logger.NewLogger("ERROR"), public, protected, rawRules)
	return NewServer(app, ":0")
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeDoc(t *testing.T, rec *httptest.ResponseRecorder) document.Doc {
	t.Helper()
	var doc document.Doc
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return doc
}

func registerUser(t *testing.T, srv *Server, email string) (token string, userID string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/users/register",
		document.Doc{"email": email, "password": "pw"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	user := decodeDoc(t, rec)
	return user["accessToken"].(string), user["_id"].(string)
}

// =============================================================================
// CRUD Round Trip
// =============================================================================

func TestData_CreateReadUpdateDeleteRoundTrip(t *testing.T) {
	srv := testServer(t, nil)
	token, userID := registerUser(t, srv, "owner@x.y")
	authed := map[string]string{constants.HeaderAuthorization: token}

	// Create
	rec := doJSON(t, srv, http.MethodPost, "/data/games",
		document.Doc{"title": "Checkers"}, authed)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decodeDoc(t, rec)
	id := created["_id"].(string)
	if created["_ownerId"] != userID {
		t.Errorf("_ownerId: got %v, want %v", created["_ownerId"], userID)
	}

	// Read back
	rec = doJSON(t, srv, http.MethodGet, "/data/games/"+id, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
	if decodeDoc(t, rec)["title"] != "Checkers" {
		t.Error("read back wrong record")
	}

	// Replace
	rec = doJSON(t, srv, http.MethodPut, "/data/games/"+id,
		document.Doc{"title": "Draughts"}, authed)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	updated := decodeDoc(t, rec)
	if updated["title"] != "Draughts" {
		t.Errorf("title after put: %v", updated["title"])
	}
	if updated["_ownerId"] != userID {
		t.Error("replace must preserve ownership")
	}
	if _, ok := updated["_updatedOn"]; !ok {
		t.Error("_updatedOn missing after put")
	}

	// Delete
	rec = doJSON(t, srv, http.MethodDelete, "/data/games/"+id, nil, authed)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	if _, ok := decodeDoc(t, rec)["_deletedOn"]; !ok {
		t.Error("delete marker missing _deletedOn")
	}

	// Gone
	rec = doJSON(t, srv, http.MethodGet, "/data/games/"+id, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: got %d, want 404", rec.Code)
	}
}

// =============================================================================
// Routing Edge Cases
// =============================================================================

func TestData_PostWithIDRejected(t *testing.T) {
	srv := testServer(t, nil)
	token, _ := registerUser(t, srv, "a@x.y")

	rec := doJSON(t, srv, http.MethodPost, "/data/games/g1",
		document.Doc{"title": "X"}, map[string]string{constants.HeaderAuthorization: token})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}
	if decodeDoc(t, rec)["message"] != "Use PUT to update records" {
		t.Errorf("message: %s", rec.Body.String())
	}
}

func TestData_UpdateWithoutIDRejected(t *testing.T) {
	srv := testServer(t, nil)

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rec := doJSON(t, srv, method, "/data/games", document.Doc{}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s without ID: got %d, want 400", method, rec.Code)
		}
	}
}

func TestData_ExtraPathTokensRejected(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/data/games/g1/extra", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}
}

func TestData_UnknownCollection404(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/data/missing", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rec.Code)
	}
}

func TestData_ListCollections(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/data", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	var names []string
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(names) != 1 || names[0] != "games" {
		t.Errorf("got %v, want [games]", names)
	}
}

// =============================================================================
// Query Directives Over HTTP
// =============================================================================

func TestData_WhereFilters(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, `/data/games?where=title%3D%22Chess%22`, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	var docs []document.Doc
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(docs) != 1 || docs[0]["_id"] != "g1" {
		t.Errorf("got %v, want only g1", docs)
	}
}

func TestData_WhereOverridesIDLookup(t *testing.T) {
	srv := testServer(t, nil)

	// A where directive filters the whole collection even when the path
	// carries a record ID; the ID is not consulted.
	rec := doJSON(t, srv, http.MethodGet, `/data/games/g1?where=title%3D%22Go%22`, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	var docs []document.Doc
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	if len(docs) != 1 || docs[0]["_id"] != "g2" {
		t.Errorf("got %v, want the where-filtered list [g2]", docs)
	}
}

func TestData_MalformedWhere400(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, `/data/games?where=broken`, nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}
}

func TestData_CountDirective(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, `/data/games?count`, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	var n int
	if err := json.Unmarshal(rec.Body.Bytes(), &n); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if n != 2 {
		t.Errorf("count: got %d, want 2", n)
	}
}

// =============================================================================
// Access Rules Over HTTP
// =============================================================================

func TestData_AnonymousCreate401(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/data/games", document.Doc{"title": "X"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rec.Code)
	}
}

func TestData_NonOwnerUpdate403(t *testing.T) {
	srv := testServer(t, nil)
	ownerToken, ownerID := registerUser(t, srv, "owner@x.y")
	intruderToken, _ := registerUser(t, srv, "intruder@x.y")

	rec := doJSON(t, srv, http.MethodPost, "/data/games",
		document.Doc{"title": "Mine"}, map[string]string{constants.HeaderAuthorization: ownerToken})
	created := decodeDoc(t, rec)
	id := created["_id"].(string)
	if created["_ownerId"] != ownerID {
		t.Fatalf("setup: wrong owner %v", created["_ownerId"])
	}

	rec = doJSON(t, srv, http.MethodPut, "/data/games/"+id,
		document.Doc{"title": "Stolen"}, map[string]string{constants.HeaderAuthorization: intruderToken})
	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want 403", rec.Code)
	}
}

func TestData_AdminHeaderBypassesOwnership(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodDelete, "/data/games/g1", nil,
		map[string]string{constants.HeaderAdmin: "true"})
	if rec.Code != http.StatusOK {
		t.Errorf("got %d, want 200 with admin override", rec.Code)
	}
}

func TestData_InvalidToken403(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/data/games", nil,
		map[string]string{constants.HeaderAuthorization: "bogus"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("got %d, want 403", rec.Code)
	}
	if decodeDoc(t, rec)["message"] != "Invalid access token" {
		t.Errorf("message: %s", rec.Body.String())
	}
}

// =============================================================================
// User Endpoints
// =============================================================================

func TestUsers_MeRequiresAuth(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/users/me", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rec.Code)
	}

	token, userID := registerUser(t, srv, "a@x.y")
	rec = doJSON(t, srv, http.MethodGet, "/users/me", nil,
		map[string]string{constants.HeaderAuthorization: token})
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	me := decodeDoc(t, rec)
	if me["_id"] != userID {
		t.Errorf("me: got %v, want %v", me["_id"], userID)
	}
	if _, ok := me["hashedPassword"]; ok {
		t.Error("hash leaked through /users/me")
	}
}

func TestUsers_LogoutIs204AndInvalidatesToken(t *testing.T) {
	srv := testServer(t, nil)
	token, _ := registerUser(t, srv, "a@x.y")
	authed := map[string]string{constants.HeaderAuthorization: token}

	rec := doJSON(t, srv, http.MethodGet, "/users/logout", nil, authed)
	if rec.Code != http.StatusNoContent {
		t.Errorf("got %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("logout body should be empty, got %q", rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/users/me", nil, authed)
	if rec.Code != http.StatusForbidden {
		t.Errorf("token should be dead after logout, got %d", rec.Code)
	}
}

func TestUsers_RegisterConflict409(t *testing.T) {
	srv := testServer(t, nil)
	registerUser(t, srv, "a@x.y")

	rec := doJSON(t, srv, http.MethodPost, "/users/register",
		document.Doc{"email": "a@x.y", "password": "pw"}, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("got %d, want 409", rec.Code)
	}
}

// =============================================================================
// CORS and Util
// =============================================================================

func TestCORS_PreflightAndHeaders(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodOptions, "/data/games", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("preflight: got %d, want 200", rec.Code)
	}
	if rec.Header().Get(constants.HeaderCORSOrigin) != "*" {
		t.Error("missing wildcard CORS origin on preflight")
	}

	rec = doJSON(t, srv, http.MethodGet, "/data/games", nil, nil)
	if rec.Header().Get(constants.HeaderCORSOrigin) != "*" {
		t.Error("missing wildcard CORS origin on normal response")
	}
}

func TestUtil_ThrottleFlagRoundTrip(t *testing.T) {
	srv := testServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/util/throttle", nil, nil)
	if rec.Body.String() != "false\n" {
		t.Errorf("initial throttle: got %q, want false", rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/util", document.Doc{"throttle": true}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/util/throttle", nil, nil)
	if rec.Body.String() != "true\n" {
		t.Errorf("throttle after set: got %q, want true", rec.Body.String())
	}

	// Switch back off so the suite is not slowed by the delay middleware.
	doJSON(t, srv, http.MethodPost, "/util", document.Doc{"throttle": false}, nil)
}

// =============================================================================
// Field Rules Over HTTP
// =============================================================================

func TestData_FieldRuleRedactsListRead(t *testing.T) {
	srv := testServer(t, map[string]any{
		"games": map[string]any{
			"*": map[string]any{
				"title": map[string]any{".read": "isOwner(user, data)"},
			},
		},
	})

	rec := doJSON(t, srv, http.MethodGet, "/data/games", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	var docs []document.Doc
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	for _, doc := range docs {
		if _, ok := doc["title"]; ok {
			t.Errorf("title should be redacted for anonymous list reads: %v", doc)
		}
	}
}
