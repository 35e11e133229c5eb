package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"huntbooking/internal/domain"
	"huntbooking/internal/middleware"
	"huntbooking/internal/modules/fulfillment"
	"huntbooking/internal/pkg/jwt"
	"huntbooking/internal/repository"
	"huntbooking/internal/testutil"
)

/* ==================== MOCKS ==================== */

type MockBookingOperations struct {
	mock.Mock
}

func (m *MockBookingOperations) ProcessRefund(ctx context.Context, bookingID int64, actor string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingOperations) BulkDeleteBookings(ctx context.Context, ids []int64, actor string) (*fulfillment.BulkDeleteResult, error) {
	args := m.Called(ctx, ids, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fulfillment.BulkDeleteResult), args.Error(1)
}

func (m *MockBookingOperations) EditCustomer(ctx context.Context, bookingID int64, req fulfillment.EditCustomerRequest, actor string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

/* ==================== SETUP ==================== */

type fixture struct {
	router   *gin.Engine
	service  *Service
	admins   *repository.AdminRepository
	bookings *MockBookingOperations
	jwt      *jwt.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	admins := repository.NewAdminRepository(db)
	jwtService := jwt.New("test-secret", time.Hour)
	svc := NewService(admins, jwtService)
	svc.cost = bcrypt.MinCost
	bookings := &MockBookingOperations{}

	router := gin.New()
	h := NewHandler(svc, bookings)
	api := router.Group("/admin")
	h.RegisterPublicRoutes(api)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(jwtService), middleware.AdminOnly())
	h.RegisterRoutes(protected)

	return &fixture{router: router, service: svc, admins: admins, bookings: bookings, jwt: jwtService}
}

func (f *fixture) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	_, err := f.service.CreateAdmin(context.Background(), "Ops@Example.com", "Ops", "s3cret")
	require.NoError(t, err)

	w := f.do(http.MethodPost, "/admin/auth/login", LoginRequest{Email: "ops@example.com", Password: "s3cret"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Data LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Data.AccessToken
}

/* ==================== TESTS ==================== */

func TestLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.service.CreateAdmin(ctx, "ops@example.com", "Ops", "s3cret")
	require.NoError(t, err)

	res, err := f.service.Login(ctx, LoginRequest{Email: " OPS@example.com ", Password: "s3cret"})
	require.NoError(t, err)

	claims, err := f.jwt.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "ops@example.com", claims.Email)

	stored, err := f.admins.GetByEmail(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = f.service.Login(ctx, LoginRequest{Email: "ops@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.service.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "s3cret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_Disabled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.admins.Create(ctx, &domain.AdminUser{Email: "off@example.com", Name: "Off", PasswordHash: string(hash), Role: domain.RoleAdmin, IsActive: true}))
	require.NoError(t, disableAdmin(f, "off@example.com"))

	w := f.do(http.MethodPost, "/admin/auth/login", LoginRequest{Email: "off@example.com", Password: "pw"}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func disableAdmin(f *fixture, email string) error {
	a, err := f.admins.GetByEmail(context.Background(), email)
	if err != nil {
		return err
	}
	return f.admins.SetActive(context.Background(), a.ID, false)
}

func TestProtectedRoutesRequireAdmin(t *testing.T) {
	f := setup(t)

	w := f.do(http.MethodPost, "/admin/bookings/1/refund", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	guide, err := f.jwt.GenerateToken(9, "guide@example.com", "guide")
	require.NoError(t, err)
	w = f.do(http.MethodPost, "/admin/bookings/1/refund", nil, guide)
	assert.Equal(t, http.StatusForbidden, w.Code)
	f.bookings.AssertNotCalled(t, "ProcessRefund", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefundBooking(t *testing.T) {
	f := setup(t)
	token := f.login(t)

	f.bookings.On("ProcessRefund", mock.Anything, int64(7), "ops@example.com").
		Return(&domain.Booking{ID: 7, Status: domain.BookingRefunded}, nil).Once()
	f.bookings.On("ProcessRefund", mock.Anything, int64(8), "ops@example.com").
		Return(nil, fulfillment.ErrInvalidState).Once()

	w := f.do(http.MethodPost, "/admin/bookings/7/refund", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"refunded"`)

	w = f.do(http.MethodPost, "/admin/bookings/8/refund", nil, token)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_STATE")

	w = f.do(http.MethodPost, "/admin/bookings/abc/refund", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.bookings.AssertExpectations(t)
}

func TestBulkDelete(t *testing.T) {
	f := setup(t)
	token := f.login(t)

	f.bookings.On("BulkDeleteBookings", mock.Anything, []int64{1, 2}, "ops@example.com").
		Return(&fulfillment.BulkDeleteResult{
			Deleted: []int64{1},
			Skipped: []fulfillment.SkippedBooking{{ID: 2, Reason: "paid bookings must be refunded before deletion"}},
		}, nil).Once()

	w := f.do(http.MethodPost, "/admin/bookings/bulk-delete", BulkDeleteRequest{IDs: []int64{1, 2}}, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":[1]`)

	w = f.do(http.MethodPost, "/admin/bookings/bulk-delete", BulkDeleteRequest{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.bookings.AssertExpectations(t)
}

func TestEditBooking(t *testing.T) {
	f := setup(t)
	token := f.login(t)
	req := fulfillment.EditCustomerRequest{CustomerName: "Bob", CustomerEmail: "bob@example.com", Note: "phone call"}

	f.bookings.On("EditCustomer", mock.Anything, int64(3), req, "ops@example.com").
		Return(&domain.Booking{ID: 3, CustomerName: "Bob"}, nil).Once()
	f.bookings.On("EditCustomer", mock.Anything, int64(4), req, "ops@example.com").
		Return(nil, fulfillment.ErrNotFound).Once()

	w := f.do(http.MethodPatch, "/admin/bookings/3", req, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPatch, "/admin/bookings/4", req, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.bookings.AssertExpectations(t)
}
