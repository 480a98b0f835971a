package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/api/middleware"
	"github.com/farmlink/farmlink-backend/internal/auth"
	"github.com/farmlink/farmlink-backend/internal/catalog"
	"github.com/farmlink/farmlink-backend/internal/deliveries"
	"github.com/farmlink/farmlink-backend/internal/users"
	"github.com/farmlink/farmlink-backend/pkg/config"
	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
)

var jwtCfg = config.JWTConfig{CookieName: "farmlink_session", CookieSecure: true}

type stubAuthService struct {
	login        *auth.LoginResponse
	err          error
	loggedOutJTI string
}

func (s *stubAuthService) Register(_ context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: uuid.New(), Email: req.Email, Name: req.Name, Role: enums.UserRole(req.Role)}, nil
}

func (s *stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) Logout(_ context.Context, accessID string) error {
	s.loggedOutJTI = accessID
	return s.err
}

func withParam(req *http.Request, name, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestAuthRegisterCreatesUser(t *testing.T) {
	body := `{"email":"ada@example.com","password":"longenough","name":"  Ada  ","role":"buyer"}`
	resp := httptest.NewRecorder()
	AuthRegister(&stubAuthService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Contains(t, resp.Body.String(), `"name":"Ada"`)
}

func TestAuthRegisterRejectsDriverRole(t *testing.T) {
	body := `{"email":"ada@example.com","password":"longenough","name":"Ada","role":"driver"}`
	resp := httptest.NewRecorder()
	AuthRegister(&stubAuthService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAuthLoginSetsSessionCookie(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC()
	svc := &stubAuthService{login: &auth.LoginResponse{AccessToken: "token-1", ExpiresAt: expires, AccessID: "jti-1"}}
	body := `{"email":"ada@example.com","password":"longenough"}`
	resp := httptest.NewRecorder()
	AuthLogin(svc, jwtCfg, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, resp.Code)
	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "farmlink_session", cookies[0].Name)
	require.Equal(t, "token-1", cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)
	require.NotContains(t, resp.Body.String(), "jti-1")
}

func TestAuthLogoutRevokesAndClearsCookie(t *testing.T) {
	svc := &stubAuthService{}
	resp := httptest.NewRecorder()
	AuthLogout(svc, jwtCfg, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)
	require.Less(t, cookies[0].MaxAge, 0)
}

type stubCatalogService struct {
	catalog.Service
	stock catalog.SetStockInput
	err   error
}

func (s *stubCatalogService) SetInventoryStock(_ context.Context, input catalog.SetStockInput) (*catalog.InventoryItemDTO, error) {
	s.stock = input
	if s.err != nil {
		return nil, s.err
	}
	return &catalog.InventoryItemDTO{ID: input.ItemID, StockQuantity: input.StockQuantity, Status: enums.InventoryStatusLowStock}, nil
}

func TestSetInventoryStockRequiresQuantity(t *testing.T) {
	itemID := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`)), "itemId", itemID.String())
	req = req.WithContext(middleware.WithActor(req.Context(), uuid.New(), enums.RoleAdmin))
	resp := httptest.NewRecorder()
	SetInventoryStock(&stubCatalogService{}, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "stockQuantity")
}

func TestSetInventoryStockForwardsZero(t *testing.T) {
	itemID := uuid.New()
	svc := &stubCatalogService{}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"stockQuantity":0}`)), "itemId", itemID.String())
	req = req.WithContext(middleware.WithActor(req.Context(), uuid.New(), enums.RoleAdmin))
	resp := httptest.NewRecorder()
	SetInventoryStock(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, itemID, svc.stock.ItemID)
	require.Zero(t, svc.stock.StockQuantity)
}

type stubDeliveryService struct {
	assigned deliveries.AssignInput
	updated  deliveries.UpdateStatusInput
	err      error
}

func (s *stubDeliveryService) CreateForOrder(context.Context, *gorm.DB, *models.Order) (*models.Delivery, error) {
	return nil, s.err
}

func (s *stubDeliveryService) Assign(_ context.Context, input deliveries.AssignInput) (*deliveries.DeliveryDTO, error) {
	s.assigned = input
	return &deliveries.DeliveryDTO{ID: input.DeliveryID, Status: enums.DeliveryStatusAssigned, DriverID: &input.DriverID}, s.err
}

func (s *stubDeliveryService) UpdateStatus(_ context.Context, input deliveries.UpdateStatusInput) (*deliveries.DeliveryDTO, error) {
	s.updated = input
	if s.err != nil {
		return nil, s.err
	}
	return &deliveries.DeliveryDTO{ID: input.DeliveryID, Status: enums.DeliveryStatus(input.Status)}, nil
}

func (s *stubDeliveryService) Cancel(context.Context, *gorm.DB, uuid.UUID, uuid.UUID, string) error {
	return s.err
}

func (s *stubDeliveryService) Get(_ context.Context, id, _ uuid.UUID, _ enums.UserRole) (*deliveries.DeliveryDTO, error) {
	return &deliveries.DeliveryDTO{ID: id}, s.err
}

func (s *stubDeliveryService) ListForDriver(context.Context, uuid.UUID) ([]deliveries.DeliveryDTO, error) {
	return []deliveries.DeliveryDTO{}, s.err
}

func TestAssignDeliveryForwardsDriver(t *testing.T) {
	deliveryID, driverID := uuid.New(), uuid.New()
	svc := &stubDeliveryService{}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"driverId":"`+driverID.String()+`"}`)), "deliveryId", deliveryID.String())
	req = req.WithContext(middleware.WithActor(req.Context(), uuid.New(), enums.RoleAdmin))
	resp := httptest.NewRecorder()
	AssignDelivery(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, driverID, svc.assigned.DriverID)
	require.Equal(t, deliveryID, svc.assigned.DeliveryID)
}

func TestUpdateDeliveryStatusMapsIllegalTransition(t *testing.T) {
	svc := &stubDeliveryService{err: pkgerrors.New(pkgerrors.CodeBadRequest, "illegal delivery status transition").
		WithDetails(map[string]string{"from": "PENDING", "to": "DELIVERED"})}
	req := withParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"DELIVERED","note":" left at gate "}`)), "deliveryId", uuid.NewString())
	req = req.WithContext(middleware.WithActor(req.Context(), uuid.New(), enums.RoleDriver))
	resp := httptest.NewRecorder()
	UpdateDeliveryStatus(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), `"from":"PENDING"`)
	require.Equal(t, "left at gate", *svc.updated.Note)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}, nil).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"redis": stubPinger{err: errors.New("refused")}}, nil).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
