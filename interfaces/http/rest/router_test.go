package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tablegrid/domain/core/entities"
	domain "tablegrid/domain/services"
	"tablegrid/infrastructure/config"
	"tablegrid/infrastructure/di"
	"tablegrid/pkg/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t         *testing.T
	container *di.Container
	handler   http.Handler
	cookie    *http.Cookie
}

func newTestServer(t *testing.T, rows ...entities.Row) *testServer {
	t.Helper()
	cfg := &config.Config{
		Environment:        "test",
		ServiceName:        "tablegrid",
		AWSRegion:          "us-east-1",
		TableName:          "items",
		StoreDriver:        config.DriverLocal,
		ScanPageSize:       10,
		CacheTTL:           time.Minute,
		GatePassword:       "letmein",
		SessionSecret:      "test-secret",
		SessionTTL:         time.Hour,
		LoginRatePerMinute: 3,
		BlankRowPolicy:     domain.BlankRowsModify,
		LogLevel:           "error",
	}
	c, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	for _, row := range rows {
		require.NoError(t, c.Store.Put(context.Background(), row))
	}
	return &testServer{t: t, container: c, handler: NewRouter(c).Setup()}
}

func (s *testServer) do(method, target string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		req = httptest.NewRequest(method, target, strings.NewReader(string(data)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(password string) *httptest.ResponseRecorder {
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			s.cookie = c
		}
	}
	return rec
}

func (s *testServer) loginJSON(password string) *httptest.ResponseRecorder {
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPasswordGate(t *testing.T) {
	s := newTestServer(t)

	t.Run("API requires a session", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/rows", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["type"])
	})

	t.Run("Grid page redirects to login", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("Login page renders", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/login", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `name="password"`)
	})

	t.Run("Wrong password re-renders the gate", func(t *testing.T) {
		rec := s.login("nope")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Incorrect password")
		assert.Nil(t, s.cookie)
	})

	t.Run("Right password sets the session cookie", func(t *testing.T) {
		rec := s.login("letmein")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		require.NotNil(t, s.cookie)
		assert.True(t, s.cookie.HttpOnly)

		page := s.do(http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusOK, page.Code)
		assert.Contains(t, page.Body.String(), "items")
	})

	t.Run("Logout clears the cookie", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/logout", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestLoginRateLimit(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, s.login("wrong").Code)
	}
	rec := s.login("letmein")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Nil(t, s.cookie)
}

func TestLoginJSON(t *testing.T) {
	s := newTestServer(t)

	rec := s.loginJSON("wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["type"])

	rec = s.loginJSON("letmein")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Result().Cookies())

	for i := 0; i < 3; i++ {
		s.loginJSON("wrong")
	}
	rec = s.loginJSON("letmein")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "RATE_LIMIT", body["type"])
	assert.Contains(t, body["message"], "3 requests per minute")
}

func TestGridAPI(t *testing.T) {
	s := newTestServer(t, entities.Row{"id": "1", "name": "A", "value": json.Number("1")})
	s.login("letmein")
	require.NotNil(t, s.cookie)

	t.Run("Submit before loading is a conflict", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/submit", map[string]interface{}{"rows": []interface{}{}})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Load rows", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/api/rows", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Len(t, body["rows"], 1)
		assert.Equal(t, []interface{}{"id", "name", "value"}, body["columns"])
	})

	working := []map[string]interface{}{
		{"id": "1", "name": "A", "value": 2},
		{"name": "B", "value": 3},
	}

	t.Run("Diff previews without writing", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/diff", map[string]interface{}{"rows": working})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		summary := decode(t, rec)["summary"].(map[string]interface{})
		assert.Equal(t, 1.0, summary["modified"])

		rows, err := s.container.Store.Scan(context.Background())
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("Submit applies and re-reads", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/submit", map[string]interface{}{"rows": working})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, []interface{}{"1"}, body["modified"])
		assert.Len(t, body["added"], 1)
		assert.Empty(t, body["deleted"])
		assert.Empty(t, body["failures"])
		assert.Len(t, body["rows"], 2)
	})

	t.Run("Duplicate ids are rejected", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/submit", map[string]interface{}{"rows": []map[string]interface{}{
			{"id": "1", "name": "A"},
			{"id": "1", "name": "B"},
		}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION", decode(t, rec)["type"])
	})

	t.Run("Unknown body fields are rejected", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/diff", map[string]interface{}{"rows": []interface{}{}, "extra": true})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestNumberPrecision(t *testing.T) {
	s := newTestServer(t, entities.Row{"id": "1", "qty": json.Number("9007199254740992")})
	s.login("letmein")
	require.NotNil(t, s.cookie)

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/rows", nil).Code)

	rec := s.do(http.MethodPost, "/api/submit", map[string]interface{}{"rows": []map[string]interface{}{
		{"id": "1", "qty": json.Number("9007199254740993")},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"modified":["1"]`)
	assert.Contains(t, rec.Body.String(), `"qty":9007199254740993`)

	t.Run("Grid page keeps numeric cells numeric", func(t *testing.T) {
		page := s.do(http.MethodGet, "/", nil).Body.String()
		assert.Contains(t, page, "JSON.rawJSON")
		assert.Contains(t, page, "cellValue(row[c], input.value)")
	})
}

func TestSingleRowAPI(t *testing.T) {
	s := newTestServer(t)
	s.login("letmein")

	rec := s.do(http.MethodPost, "/api/rows", map[string]interface{}{"values": map[string]interface{}{"name": "C"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	row := decode(t, rec)["row"].(map[string]interface{})
	id := row["id"].(string)
	assert.NotEmpty(t, id)

	rec = s.do(http.MethodPost, "/api/rows", map[string]interface{}{"values": map[string]interface{}{"name": ""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/api/rows/"+id, map[string]interface{}{"values": map[string]interface{}{"name": "D"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows := decode(t, s.do(http.MethodGet, "/api/rows", nil))["rows"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, "D", rows[0].(map[string]interface{})["name"])

	rec = s.do(http.MethodDelete, "/api/rows/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode(t, rec)["deleted"])

	rows = decode(t, s.do(http.MethodGet, "/api/rows", nil))["rows"].([]interface{})
	assert.Empty(t, rows)
}

func TestUnknownAPIRoute(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/nope", nil).Code)

	s.login("letmein")
	require.NotNil(t, s.cookie)
	rec := s.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec)["type"])
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", nil).Code)

	rec := s.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])

	rec = s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tablegrid_http_requests_total")
}
