package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savannahealth/mamatoto/config"
	"github.com/savannahealth/mamatoto/internal/application"
	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/internal/domain/repository"
	"github.com/savannahealth/mamatoto/internal/interface/middleware"
	"github.com/savannahealth/mamatoto/pkg/helpers"
	"github.com/savannahealth/mamatoto/pkg/session"
	"github.com/savannahealth/mamatoto/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*entity.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.users {
		if e.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) Find(ctx context.Context, email, id string) (*entity.User, error) {
	if id != "" {
		return r.GetByID(ctx, id)
	}
	return r.GetByEmail(ctx, email)
}

func (r *stubUserRepo) SetResetToken(_ context.Context, id, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (r *stubUserRepo) SetPassword(_ context.Context, id, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = digest
	u.ResetToken = ""
	u.ResetTokenExpiresAt = nil
	u.Verified = true
	return nil
}

func (r *stubUserRepo) SetPractitionerID(_ context.Context, id, practitionerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PractitionerID = practitionerID
	return nil
}

func (r *stubUserRepo) UpdateData(_ context.Context, id string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Data = data
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.users, id)
	return u, nil
}

type stubFacilityRepo struct{}

func (stubFacilityRepo) GetByCode(_ context.Context, code string) (*entity.Facility, error) {
	if code == "13023" {
		return &entity.Facility{KMHFLCode: "13023", Name: "Mama Lucy Kibaki Hospital"}, nil
	}
	return nil, repository.ErrNotFound
}

func (stubFacilityRepo) Upsert(context.Context, *entity.Facility) error { return nil }

type authTestEnv struct {
	engine *gin.Engine
	users  *stubUserRepo
	codec  *session.Codec
	svc    *application.AuthService
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	users := newStubUserRepo()
	codec := session.NewCodec("handler-test-secret", time.Hour, 30*time.Minute)
	cfg := &config.Config{AppName: "mamatoto", WebBaseURL: "http://localhost:3000"}
	svc := application.NewAuthService(users, stubFacilityRepo{}, nil, codec, nil, nil, logger, cfg)
	h := NewAuthHandler(svc, logger)

	r := gin.New()
	auth := r.Group("/api/auth")
	auth.POST("/login", h.Login)
	auth.POST("/register", h.Register)
	auth.POST("/reset-password", h.ResetPassword)
	auth.POST("/new-password", middleware.RequireSession(codec), h.NewPassword)
	auth.GET("/me", middleware.RequireAccess(codec), h.Me)
	auth.DELETE("/users/:id", h.DeleteUser)

	return &authTestEnv{engine: r, users: users, codec: codec, svc: svc}
}

func (e *authTestEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// seedVerifiedUser puts a loginable account in the store.
func (e *authTestEnv) seedVerifiedUser(t *testing.T, email, password string, role entity.Role) *entity.User {
	t.Helper()
	digest, err := helpers.HashPassword(password)
	require.NoError(t, err)
	u := &entity.User{
		Email:        email,
		Names:        "Seeded User",
		Role:         role,
		Password:     digest,
		Verified:     true,
		FacilityCode: "13023",
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func TestLoginEndpoint(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedVerifiedUser(t, "nurse@clinic.example", "safepassword", entity.RoleNurse)

	t.Run("success", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
			"email": "nurse@clinic.example", "password": "safepassword",
		})
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "success", body["status"])
		token, _ := body["token"].(string)
		require.NotEmpty(t, token)
		res := env.codec.Decode(token)
		assert.Equal(t, session.Valid, res.Status)
		assert.Equal(t, session.PurposeAccess, res.Claims.Purpose)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
			"email": "nurse@clinic.example", "password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Incorrect email or password provided.", body["message"])
	})

	t.Run("missing fields", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "nurse@clinic.example"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLoginUnverifiedAccount(t *testing.T) {
	env := newAuthTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "new@clinic.example", "names": "New Nurse", "role": "CHW",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "new@clinic.example", "password": "whatever",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["message"], "complete password reset")
}

func TestRegisterEndpoint(t *testing.T) {
	env := newAuthTestEnv(t)

	t.Run("created", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"email": "jane@clinic.example", "names": "Jane Wanjiku", "role": "NURSE", "kmhflCode": "13023",
		})
		require.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.Contains(t, body["message"], "jane@clinic.example")
		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		assert.NotEmpty(t, user["id"])
		assert.Equal(t, "NURSE", user["role"])
		_, leaked := user["password"]
		assert.False(t, leaked, "password must never appear in responses")
	})

	t.Run("duplicate email", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"email": "jane@clinic.example", "names": "Jane Again", "role": "NURSE",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "User with the email provided already exists", body["message"])
	})

	t.Run("phone must be E.164", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"email": "ph@clinic.example", "names": "Ph", "role": "CHW", "phone": "0700 000 003",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"email": "ph@clinic.example", "names": "Ph", "role": "CHW", "phone": "+254700000003",
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"email": "doc@clinic.example", "names": "Doc", "role": "DOCTOR",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Invalid role name *DOCTOR* provided", body["message"])
	})
}

func TestResetPasswordEndpointNeverLeaksAccounts(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedVerifiedUser(t, "known@clinic.example", "safepassword", entity.RoleCHW)

	for _, email := range []string{"known@clinic.example", "ghost@clinic.example"} {
		w := env.do(t, http.MethodPost, "/api/auth/reset-password", "", gin.H{"email": email})
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "success", body["status"])
	}

	w := env.do(t, http.MethodPost, "/api/auth/reset-password", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewPasswordFlow(t *testing.T) {
	env := newAuthTestEnv(t)
	ctx := context.Background()

	u, err := env.svc.Register(ctx, application.RegisterInput{
		Email: "flow@clinic.example", Names: "Flow", Role: "CHW",
	})
	require.NoError(t, err)

	t.Run("no bearer token", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/new-password", "", gin.H{
			"id": u.ID, "password": "brandnewpass",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("short password", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/new-password", u.ResetToken, gin.H{
			"id": u.ID, "password": "short",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("success then login", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/new-password", u.ResetToken, gin.H{
			"id": u.ID, "password": "brandnewpass",
		})
		require.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
			"email": "flow@clinic.example", "password": "brandnewpass",
		})
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("token cannot be replayed", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/new-password", u.ResetToken, gin.H{
			"id": u.ID, "password": "anothernewpass",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestMeEndpoint(t *testing.T) {
	env := newAuthTestEnv(t)
	u := env.seedVerifiedUser(t, "me@clinic.example", "safepassword", entity.RoleNurse)

	access, err := env.codec.EncodeAccess(u.ID, u.Role)
	require.NoError(t, err)

	t.Run("success resolves facility name", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/auth/me", access.Value, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, u.ID, data["id"])
		assert.Equal(t, "Mama Lucy Kibaki Hospital", data["facilityName"])
	})

	t.Run("reset token is rejected", func(t *testing.T) {
		reset, err := env.codec.EncodeReset(u.ID)
		require.NoError(t, err)
		w := env.do(t, http.MethodGet, "/api/auth/me", reset.Value, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("no token", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestDeleteUserEndpoint(t *testing.T) {
	env := newAuthTestEnv(t)
	u := env.seedVerifiedUser(t, "gone@clinic.example", "safepassword", entity.RoleCHW)

	w := env.do(t, http.MethodDelete, "/api/auth/users/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/auth/users/"+u.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gone@clinic.example", user["email"])

	w = env.do(t, http.MethodDelete, "/api/auth/users/"+u.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
