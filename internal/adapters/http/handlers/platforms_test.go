package handlers

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/platform-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/platform-service/internal/adapters/storage/memory"
	"github.com/jsamuelsen/platform-service/internal/app"
	"github.com/jsamuelsen/platform-service/internal/domain"
	"github.com/jsamuelsen/platform-service/internal/mocks"
	"github.com/jsamuelsen/platform-service/internal/ports"
)

func newPlatformRouter(t *testing.T, cfg app.PlatformServiceConfig) *gin.Engine {
	t.Helper()

	if cfg.Store == nil {
		cfg.Store = memory.NewStore()
	}

	router := gin.New()
	NewPlatformHandler(app.NewPlatformService(cfg)).RegisterPlatformRoutes(router)

	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func TestNewPlatformHandler_PanicsWithoutService(t *testing.T) {
	assert.Panics(t, func() { NewPlatformHandler(nil) })
}

func TestPlatformHandler_GetPlatforms_Empty(t *testing.T) {
	router := newPlatformRouter(t, app.PlatformServiceConfig{})

	w := serve(router, http.MethodGet, "/api/platforms", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestPlatformHandler_CreatePlatform(t *testing.T) {
	notifier := mocks.NewMockCommandNotifier(t)
	publisher := mocks.NewMockEventPublisher(t)

	notifier.On("Send", mock.Anything, domain.PlatformView{ID: 1, Name: "PS5", Publisher: "Sony", Cost: 499.99}).
		Return(nil).Once()
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.PlatformEvent) bool {
		return e.ID == 1 && e.Event == domain.EventPlatformPublished
	})).Return(nil).Once()

	router := newPlatformRouter(t, app.PlatformServiceConfig{Notifier: notifier, Publisher: publisher})

	w := serve(router, http.MethodPost, "/api/platforms", `{"name":"PS5","publisher":"Sony","cost":499.99}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "http://example.com/api/platforms/1", w.Header().Get("Location"))
	assert.JSONEq(t, `{"id":1,"name":"PS5","publisher":"Sony","cost":499.99}`, w.Body.String())

	w = serve(router, http.MethodGet, "/api/platforms/1", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"name":"PS5","publisher":"Sony","cost":499.99}`, w.Body.String())
}

func TestPlatformHandler_CreatePlatform_DownstreamFailuresStillCreated(t *testing.T) {
	notifier := mocks.NewMockCommandNotifier(t)
	publisher := mocks.NewMockEventPublisher(t)

	notifier.On("Send", mock.Anything, mock.Anything).
		Return(domain.NewUnavailableError("command-service", "connection refused"))
	publisher.On("Publish", mock.Anything, mock.Anything).
		Return(domain.NewUnavailableError("redis", "connection refused"))

	router := newPlatformRouter(t, app.PlatformServiceConfig{Notifier: notifier, Publisher: publisher})

	w := serve(router, http.MethodPost, "/api/platforms", `{"name":"Switch","publisher":"Nintendo","cost":299}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "http://example.com/api/platforms/1", w.Header().Get("Location"))

	w = serve(router, http.MethodGet, "/api/platforms", "")
	assert.JSONEq(t, `[{"id":1,"name":"Switch","publisher":"Nintendo","cost":299}]`, w.Body.String())
}

func TestPlatformHandler_CreatePlatform_ForwardedScheme(t *testing.T) {
	router := newPlatformRouter(t, app.PlatformServiceConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/platforms", strings.NewReader(`{"name":"Xbox","publisher":"Microsoft","cost":0}`))
	req.Host = "platforms.example.org"
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-Proto", "https")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "https://platforms.example.org/api/platforms/1", w.Header().Get("Location"))
}

func TestPlatformHandler_CreatePlatform_BadRequests(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantDetails []string
	}{
		{
			name:     "malformed JSON",
			body:     `{"name":`,
			wantCode: dto.ErrorCodeBadRequest,
		},
		{
			name:     "wrong field type",
			body:     `{"name":5,"publisher":"Sony","cost":1}`,
			wantCode: dto.ErrorCodeBadRequest,
		},
		{
			name:        "missing fields",
			body:        `{"name":"PS5"}`,
			wantCode:    dto.ErrorCodeValidation,
			wantDetails: []string{"publisher", "cost"},
		},
		{
			name:        "negative cost",
			body:        `{"name":"PS5","publisher":"Sony","cost":-1}`,
			wantCode:    dto.ErrorCodeValidation,
			wantDetails: []string{"cost"},
		},
		{
			name:        "whitespace name",
			body:        `{"name":"  ","publisher":"Sony","cost":1}`,
			wantCode:    dto.ErrorCodeValidation,
			wantDetails: []string{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := mocks.NewMockCommandNotifier(t)
			store := memory.NewStore()
			router := newPlatformRouter(t, app.PlatformServiceConfig{Store: store, Notifier: notifier})

			w := serve(router, http.MethodPost, "/api/platforms", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Error.Code)

			for _, field := range tt.wantDetails {
				assert.Contains(t, resp.Error.Details, field)
			}

			all, err := store.GetAll(t.Context())
			require.NoError(t, err)
			assert.Empty(t, all)
			notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		})
	}
}

func TestPlatformHandler_CreatePlatform_PersistenceFailure(t *testing.T) {
	store := mocks.NewMockPlatformStore(t)
	uow := mocks.NewMockPlatformUnitOfWork(t)
	notifier := mocks.NewMockCommandNotifier(t)

	store.On("Begin", mock.Anything).Return(ports.PlatformUnitOfWork(uow), nil)
	uow.On("Create", mock.Anything, mock.Anything).Return(nil)
	uow.On("Commit", mock.Anything).Return(0, errors.New("disk I/O error"))

	router := newPlatformRouter(t, app.PlatformServiceConfig{Store: store, Notifier: notifier})

	w := serve(router, http.MethodPost, "/api/platforms", `{"name":"PS5","publisher":"Sony","cost":499.99}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Location"))

	resp := decodeError(t, w)
	assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "disk")
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestPlatformHandler_GetPlatformByID(t *testing.T) {
	router := newPlatformRouter(t, app.PlatformServiceConfig{})
	require.Equal(t, http.StatusCreated,
		serve(router, http.MethodPost, "/api/platforms", `{"name":"Dot Net","publisher":"Microsoft","cost":0}`).Code)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   string
	}{
		{name: "found", target: "/api/platforms/1", wantStatus: http.StatusOK},
		{name: "not found", target: "/api/platforms/42", wantStatus: http.StatusNotFound, wantCode: dto.ErrorCodeNotFound},
		{name: "non-integer id", target: "/api/platforms/abc", wantStatus: http.StatusBadRequest, wantCode: dto.ErrorCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodGet, tt.target, "")

			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Error.Code)
			}
		})
	}
}

func TestPlatformHandler_GetPlatforms_StoreFailure(t *testing.T) {
	store := mocks.NewMockPlatformStore(t)
	store.On("GetAll", mock.Anything).Return(nil, errors.New("connection reset"))

	router := newPlatformRouter(t, app.PlatformServiceConfig{Store: store})

	w := serve(router, http.MethodGet, "/api/platforms", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrorCodeInternal, decodeError(t, w).Error.Code)
}

func TestPlatformURL(t *testing.T) {
	tests := []struct {
		name  string
		proto string
		tls   bool
		want  string
	}{
		{name: "plain", want: "http://localhost:8080/api/platforms/7"},
		{name: "tls", tls: true, want: "https://localhost:8080/api/platforms/7"},
		{name: "forwarded https", proto: "https", want: "https://localhost:8080/api/platforms/7"},
		{name: "forwarded upper case", proto: " HTTPS ", want: "https://localhost:8080/api/platforms/7"},
		{name: "forwarded http over tls", proto: "http", tls: true, want: "http://localhost:8080/api/platforms/7"},
		{name: "unknown scheme ignored", proto: "javascript", want: "http://localhost:8080/api/platforms/7"},
		{name: "unknown scheme keeps tls", proto: "ftp", tls: true, want: "https://localhost:8080/api/platforms/7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "http://localhost:8080/api/platforms", nil)
			req.TLS = nil
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}

			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}

			assert.Equal(t, tt.want, platformURL(req, 7))
		})
	}
}
