package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freelance-tracker/internal/blob"
	"freelance-tracker/internal/config"
	"freelance-tracker/internal/handlers"
	"freelance-tracker/internal/models"
	"freelance-tracker/internal/realtime"
	"freelance-tracker/internal/services"
	"freelance-tracker/internal/store"
)

const testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

type env struct {
	t       *testing.T
	router  *gin.Engine
	store   *store.Memory
	tracker *services.Tracker
	hub     *realtime.Hub
	owner   uuid.UUID
	bearer  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvOver(t, nil)
}

// newEnvOver lets a test put a wrapper between the tracker and the memory
// store.
func newEnvOver(t *testing.T, wrap func(*store.Memory) store.Store) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemory()
	owner, err := st.CreateUser(context.Background(), "fran@example.com", "Fran", models.RoleFreelancer)
	require.NoError(t, err)

	var backing store.Store = st
	if wrap != nil {
		backing = wrap(st)
	}
	hub := realtime.NewHub(nil)
	tracker := services.NewTracker(backing, blob.NewMemory(), hub, nil, services.WithMaxUploadBytes(64))
	cfg := &config.Config{JWTSecret: testSecret, CORSOrigins: []string{"*"}, MaxUploadBytes: 64}

	return &env{
		t:       t,
		router:  handlers.NewRouter(handlers.RouterOptions{Config: cfg, Tracker: tracker, Hub: hub, Heartbeat: 50 * time.Millisecond}),
		store:   st,
		tracker: tracker,
		hub:     hub,
		owner:   owner.ID,
		bearer:  bearerFor(t, owner.ID),
	}
}

func bearerFor(t *testing.T, owner uuid.UUID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": owner.String()}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (e *env) do(method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *env) createProject(title string) models.ProjectResponse {
	e.t.Helper()
	w := e.do("POST", "/api/v1/projects", e.bearer, models.CreateProjectRequest{Title: title, ClientName: "Ada"})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.ProjectResponse](e.t, w)
}

func (e *env) createOrder(projectID string) models.OrderResponse {
	e.t.Helper()
	w := e.do("POST", "/api/v1/projects/"+projectID+"/orders", e.bearer, models.CreateOrderRequest{Title: "Logo"})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.OrderResponse](e.t, w)
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	body := decode[models.ErrorResponse](t, w)
	assert.Equal(t, code, body.Error)
}

func TestHealthHandler(t *testing.T) {
	e := newEnv(t)
	w := e.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	e.do("GET", "/health", "", nil)
	w := e.do("GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "order_tracker_http_requests_total")
}

func TestFreelancerAPI_RequiresAuth(t *testing.T) {
	e := newEnv(t)
	assertError(t, e.do("GET", "/api/v1/projects", "", nil), http.StatusUnauthorized, "unauthorized")
}

func TestProjectLifecycle(t *testing.T) {
	e := newEnv(t)
	p := e.createProject("Brand refresh")
	assert.Len(t, p.AccessToken, 32)
	assert.Equal(t, e.owner.String(), p.OwnerID)

	w := e.do("GET", "/api/v1/projects", e.bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.ProjectListResponse](t, w).Projects, 1)

	w = e.do("PATCH", "/api/v1/projects/"+p.ID, e.bearer, gin.H{"title": "Renamed", "deadline": "2026-12-01"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.ProjectResponse](t, w)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "2026-12-01", updated.Deadline)

	assertError(t, e.do("PATCH", "/api/v1/projects/"+p.ID, e.bearer, gin.H{"title": " "}),
		http.StatusBadRequest, "validation_error")

	e.createOrder(p.ID)
	w = e.do("GET", "/api/v1/projects/"+p.ID, e.bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.ProjectDetailResponse](t, w).Orders, 1)

	w = e.do("DELETE", "/api/v1/projects/"+p.ID, e.bearer, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assertError(t, e.do("GET", "/api/v1/projects/"+p.ID, e.bearer, nil), http.StatusNotFound, "not_found")
	assertError(t, e.do("GET", "/client/"+p.AccessToken, "", nil), http.StatusNotFound, "not_found")
}

func TestUpdateProject_OnlyChangesPresentFields(t *testing.T) {
	e := newEnv(t)
	w := e.do("POST", "/api/v1/projects", e.bearer, models.CreateProjectRequest{
		Title:       "Brand refresh",
		Description: "Logo and palette",
		ClientName:  "Ada",
		ClientEmail: "ada@example.com",
		Deadline:    "2026-12-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[models.ProjectResponse](t, w)

	w = e.do("PATCH", "/api/v1/projects/"+p.ID, e.bearer, gin.H{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.ProjectResponse](t, w)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "Logo and palette", got.Description)
	assert.Equal(t, "Ada", got.ClientName)
	assert.Equal(t, "ada@example.com", got.ClientEmail)
	assert.Equal(t, "2026-12-01", got.Deadline)

	w = e.do("PATCH", "/api/v1/projects/"+p.ID, e.bearer, gin.H{"description": "", "deadline": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[models.ProjectResponse](t, w)
	assert.Equal(t, "Renamed", got.Title)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.Deadline)
	assert.Equal(t, "ada@example.com", got.ClientEmail)
}

func TestForeignOwnerSeesNotFound(t *testing.T) {
	e := newEnv(t)
	p := e.createProject("Mine")
	o := e.createOrder(p.ID)

	stranger, err := e.store.CreateUser(context.Background(), "sam@example.com", "Sam", models.RoleFreelancer)
	require.NoError(t, err)
	other := bearerFor(t, stranger.ID)

	assertError(t, e.do("GET", "/api/v1/projects/"+p.ID, other, nil), http.StatusNotFound, "not_found")
	assertError(t, e.do("DELETE", "/api/v1/projects/"+p.ID, other, nil), http.StatusNotFound, "not_found")
	assertError(t, e.do("POST", "/api/v1/projects/"+p.ID+"/token/regenerate", other, nil), http.StatusNotFound, "not_found")
	assertError(t, e.do("PUT", "/api/v1/orders/"+o.ID+"/status", other, models.SetStatusRequest{Status: "COMPLETED"}),
		http.StatusNotFound, "not_found")
	assertError(t, e.do("GET", "/api/v1/projects/not-a-uuid", e.bearer, nil), http.StatusNotFound, "not_found")

	w := e.do("GET", "/api/v1/projects", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.ProjectListResponse](t, w).Projects)
}

func TestCreateProject_UnknownOwner(t *testing.T) {
	e := newEnv(t)
	w := e.do("POST", "/api/v1/projects", bearerFor(t, uuid.New()), models.CreateProjectRequest{Title: "x"})
	assertError(t, w, http.StatusNotFound, "not_found")
}

func TestSetStatus(t *testing.T) {
	e := newEnv(t)
	o := e.createOrder(e.createProject("p").ID)

	w := e.do("PUT", "/api/v1/orders/"+o.ID+"/status", e.bearer, models.SetStatusRequest{Status: "in-progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "IN_PROGRESS", decode[models.OrderResponse](t, w).Status)

	assertError(t, e.do("PUT", "/api/v1/orders/"+o.ID+"/status", e.bearer, models.SetStatusRequest{Status: "SHIPPED"}),
		http.StatusBadRequest, "invalid_status")
}

func TestUpdateAndDeleteOrder(t *testing.T) {
	e := newEnv(t)
	p := e.createProject("p")
	o := e.createOrder(p.ID)

	w := e.do("PATCH", "/api/v1/orders/"+o.ID, e.bearer, gin.H{"title": "Logo v2", "notes": "bold"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bold", decode[models.OrderResponse](t, w).Notes)

	w = e.do("PATCH", "/api/v1/orders/"+o.ID, e.bearer, gin.H{"notes": "bolder"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.OrderResponse](t, w)
	assert.Equal(t, "Logo v2", got.Title)
	assert.Equal(t, "bolder", got.Notes)

	assert.Equal(t, http.StatusNoContent, e.do("DELETE", "/api/v1/orders/"+o.ID, e.bearer, nil).Code)

	w = e.do("GET", "/api/v1/projects/"+p.ID+"/orders", e.bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[models.OrderListResponse](t, w).Orders)
}

func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (e *env) upload(orderID, field, filename, content string) *httptest.ResponseRecorder {
	e.t.Helper()
	body, contentType := multipartUpload(e.t, field, filename, content)
	req := httptest.NewRequest("POST", "/api/v1/orders/"+orderID+"/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", e.bearer)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	e := newEnv(t)
	o := e.createOrder(e.createProject("p").ID)

	w := e.upload(o.ID, "file", "final logo.png", "png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.OrderResponse](t, w)
	assert.True(t, strings.HasPrefix(got.FilePath, "/uploads/"))
	assert.True(t, strings.HasSuffix(got.FilePath, "-final-logo.png"))
	assert.Equal(t, got.FilePath, got.FileURL)

	assertError(t, e.upload(o.ID, "attachment", "x.png", "png"), http.StatusBadRequest, "validation_error")
	assertError(t, e.upload(o.ID, "file", "big.bin", strings.Repeat("x", 65)), http.StatusBadRequest, "validation_error")
}

func TestClientPortal(t *testing.T) {
	e := newEnv(t)
	p := e.createProject("p")
	o := e.createOrder(p.ID)
	base := "/client/" + p.AccessToken

	w := e.do("GET", base, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[models.ProjectDetailResponse](t, w)
	assert.Empty(t, view.AccessToken)
	assert.Empty(t, view.OwnerID)
	require.Len(t, view.Orders, 1)
	assert.True(t, view.Orders[0].CanComment)

	w = e.do("POST", base+"/orders/"+o.ID+"/comment", "", models.CommentRequest{Comment: "darker blue"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "darker blue", decode[models.OrderResponse](t, w).ClientComment)

	w = e.do("POST", base+"/orders/"+o.ID+"/approve", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	approved := decode[models.OrderResponse](t, w)
	assert.Equal(t, "APPROVED", approved.Status)
	assert.False(t, approved.CanComment)

	assertError(t, e.do("POST", base+"/orders/"+o.ID+"/comment", "", models.CommentRequest{Comment: "late"}),
		http.StatusConflict, "comment_not_allowed")
	assert.Equal(t, http.StatusOK, e.do("POST", base+"/orders/"+o.ID+"/approve", "", nil).Code)
}

func TestProjectViews_EmptyProjectListsNoOrders(t *testing.T) {
	e := newEnv(t)
	p := e.createProject("p")

	for _, req := range []struct{ path, bearer string }{
		{"/api/v1/projects/" + p.ID, e.bearer},
		{"/client/" + p.AccessToken, ""},
	} {
		w := e.do("GET", req.path, req.bearer, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		assert.JSONEq(t, `[]`, string(raw["orders"]), req.path)
	}
}

func TestClientPortal_TokenFailuresLookAlike(t *testing.T) {
	e := newEnv(t)
	p := e.createProject("p")
	o := e.createOrder(p.ID)
	other := e.createProject("other")

	w := e.do("POST", "/api/v1/projects/"+p.ID+"/token/regenerate", e.bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := decode[models.TokenResponse](t, w).AccessToken
	assert.Len(t, fresh, 48)

	for _, token := range []string{p.AccessToken, "unknown-token"} {
		w := e.do("GET", "/client/"+token, "", nil)
		assertError(t, w, http.StatusNotFound, "not_found")
		assert.Equal(t, "project not found", decode[models.ErrorResponse](t, w).Message)
	}

	// an order of another project is hidden
	assertError(t, e.do("POST", "/client/"+other.AccessToken+"/orders/"+o.ID+"/approve", "", nil),
		http.StatusNotFound, "not_found")

	w = e.do("POST", "/api/v1/projects/"+p.ID+"/token/revoke", e.bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assertError(t, e.do("GET", "/client/"+fresh, "", nil), http.StatusNotFound, "not_found")
}
