package api_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/limbo/habitadventure/internal/api"
	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/internal/repository"
	"github.com/limbo/habitadventure/internal/service"
	"github.com/limbo/habitadventure/pkg/entity"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	service.InitValidator()
	m.Run()
}

var (
	username        = "test_name"
	password        = "test_password"
	passwordHash, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	uid             = uuid.New()
)

type accountMockState int

const (
	accountsSuccess accountMockState = iota
	accountsExists
	accountsNotFound
	accountsWrongPassword
	accountsDBError
)

type AccountServiceMock struct {
	state accountMockState
}

func (asmock *AccountServiceMock) ChangeState(state accountMockState) {
	asmock.state = state
}

func (asmock *AccountServiceMock) account() *entity.Account {
	return &entity.Account{
		ID:           uid,
		Name:         username,
		PasswordHash: string(passwordHash),
	}
}

func (asmock *AccountServiceMock) Register(ctx context.Context, req *service.RegisterRequest) (*entity.Account, error) {
	switch asmock.state {
	case accountsExists:
		return nil, errorvalues.ErrUserExists
	case accountsDBError:
		return nil, errors.New("mocked error")
	default:
		return asmock.account(), nil
	}
}

func (asmock *AccountServiceMock) Login(ctx context.Context, name, pass string) (*entity.Account, error) {
	switch asmock.state {
	case accountsNotFound:
		return nil, errorvalues.ErrUserNotFound
	case accountsWrongPassword:
		return nil, errorvalues.ErrWrongCredentials
	case accountsDBError:
		return nil, errors.New("mocked error")
	default:
		return asmock.account(), nil
	}
}

func (asmock *AccountServiceMock) GetByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	switch asmock.state {
	case accountsNotFound:
		return nil, errorvalues.ErrUserNotFound
	case accountsDBError:
		return nil, errors.New("mocked error")
	default:
		return asmock.account(), nil
	}
}

func (asmock *AccountServiceMock) DeleteAccount(ctx context.Context, id uuid.UUID, pass string) error {
	switch asmock.state {
	case accountsNotFound:
		return errorvalues.ErrUserNotFound
	case accountsWrongPassword:
		return errorvalues.ErrWrongCredentials
	case accountsDBError:
		return errors.New("mocked error")
	default:
		return nil
	}
}

type JWTServiceMock struct {
	valid bool
}

func (jsmock *JWTServiceMock) GenerateToken(acc *entity.Account) (string, error) {
	return "test_token", nil
}

func (jsmock *JWTServiceMock) ParseToken(tokenString string) (*api.JWTClaims, error) {
	if !jsmock.valid {
		return nil, errorvalues.ErrInvalidToken
	}
	return &api.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			NotBefore: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		UserID:   uid.String(),
		Username: username,
	}, nil
}

// newTestServer backs the anonymous progression path with a real service over
// a throwaway directory, so handler tests exercise the full mutation path.
func newTestServer(t *testing.T) (*api.Server, *AccountServiceMock, *JWTServiceMock) {
	t.Helper()
	accounts := &AccountServiceMock{}
	jwtMock := &JWTServiceMock{valid: true}
	progression := service.NewProgressionService(repository.NewLocalRepo(t.TempDir()))
	serv := api.New(&api.ServicesList{
		AccountService:   accounts,
		CloudProgression: progression,
		LocalProgression: progression,
		JwtService:       jwtMock,
	})
	return serv, accounts, jwtMock
}

func TestRegister(t *testing.T) {
	body, err := sonic.ConfigDefault.Marshal(api.RegisterRequest{
		Name:     username,
		Password: password,
	})
	if err != nil {
		t.Fatal(err)
	}
	serv, accounts, _ := newTestServer(t)
	t.Run("registered", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/register", bytes.NewReader(body))
		serv.Register(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Result().StatusCode)
	})
	t.Run("existing name conflict", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/register", bytes.NewReader(body))
		accounts.ChangeState(accountsExists)
		serv.Register(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Result().StatusCode)
	})
	t.Run("service error", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/register", bytes.NewReader(body))
		accounts.ChangeState(accountsDBError)
		serv.Register(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Result().StatusCode)
	})
	t.Run("invalid body", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/register", bytes.NewReader([]byte("{")))
		accounts.ChangeState(accountsSuccess)
		serv.Register(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
}

func TestLogin(t *testing.T) {
	body, err := sonic.ConfigDefault.Marshal(api.LoginRequest{
		Name:     username,
		Password: password,
	})
	if err != nil {
		t.Fatal(err)
	}
	serv, accounts, _ := newTestServer(t)
	t.Run("logged in", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body))
		serv.Login(rr, req)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
		var resp map[string]any
		assert.NoError(t, sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&resp))
		assert.Equal(t, "test_token", resp["token"])
	})
	t.Run("unknown account", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body))
		accounts.ChangeState(accountsNotFound)
		serv.Login(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Result().StatusCode)
	})
	t.Run("wrong password", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(body))
		accounts.ChangeState(accountsWrongPassword)
		serv.Login(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Result().StatusCode)
	})
}

func TestSkillHandlers(t *testing.T) {
	serv, _, _ := newTestServer(t)
	body, _ := sonic.ConfigDefault.Marshal(api.SkillRequest{Name: "Guitar"})

	t.Run("created", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/skills", bytes.NewReader(body))
		serv.CreateSkill(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Result().StatusCode)
		var sk entity.Skill
		assert.NoError(t, sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&sk))
		assert.Equal(t, "Guitar", sk.Name)
		assert.Equal(t, 1, sk.Level)
	})
	t.Run("duplicate conflict", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/skills", bytes.NewReader(body))
		serv.CreateSkill(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Result().StatusCode)
	})
	t.Run("invalid body", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/skills", bytes.NewReader([]byte("{")))
		serv.CreateSkill(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Result().StatusCode)
	})
	t.Run("update unknown skill", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/v1/skills/id_missing", bytes.NewReader(body))
		req.SetPathValue("id", "id_missing")
		serv.UpdateSkill(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Result().StatusCode)
	})
}

func TestActivityHandlers(t *testing.T) {
	serv, _, _ := newTestServer(t)

	var skill entity.Skill
	rr := httptest.NewRecorder()
	body, _ := sonic.ConfigDefault.Marshal(api.SkillRequest{Name: "Guitar"})
	serv.CreateSkill(rr, httptest.NewRequest(http.MethodPost, "/api/v1/skills", bytes.NewReader(body)))
	assert.NoError(t, sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&skill))

	var activity entity.Activity
	t.Run("created", func(t *testing.T) {
		body, _ := sonic.ConfigDefault.Marshal(api.CreateActivityRequest{
			Name:    "Practice",
			XP:      25,
			SkillID: skill.ID,
		})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", bytes.NewReader(body))
		serv.CreateActivity(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Result().StatusCode)
		assert.NoError(t, sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&activity))
	})
	t.Run("completed", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/activities/"+activity.ID+"/complete", nil)
		req.SetPathValue("id", activity.ID)
		serv.CompleteActivity(rr, req)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
	})
	t.Run("double completion conflict", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/activities/"+activity.ID+"/complete", nil)
		req.SetPathValue("id", activity.ID)
		serv.CompleteActivity(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Result().StatusCode)
	})
	t.Run("uncompleted", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/activities/"+activity.ID+"/uncomplete", nil)
		req.SetPathValue("id", activity.ID)
		serv.UncompleteActivity(rr, req)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
	})
	t.Run("unknown activity", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/activities/id_missing/complete", nil)
		req.SetPathValue("id", "id_missing")
		serv.CompleteActivity(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Result().StatusCode)
	})
}

func TestMilestoneHandlers(t *testing.T) {
	serv, _, _ := newTestServer(t)

	var skill entity.Skill
	rr := httptest.NewRecorder()
	body, _ := sonic.ConfigDefault.Marshal(api.SkillRequest{Name: "Guitar"})
	serv.CreateSkill(rr, httptest.NewRequest(http.MethodPost, "/api/v1/skills", bytes.NewReader(body)))
	assert.NoError(t, sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&skill))

	var milestone entity.Reward
	t.Run("created", func(t *testing.T) {
		body, _ := sonic.ConfigDefault.Marshal(api.MilestoneRequest{
			Name:    "Buy amp",
			SkillID: skill.ID,
			Level:   3,
		})
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/milestones", bytes.NewReader(body))
		serv.CreateMilestone(rr, req)
		assert.Equal(t, http.StatusCreated, rr.Result().StatusCode)
		assert.NoError(t, sonic.ConfigDefault.NewDecoder(rr.Result().Body).Decode(&milestone))
	})
	t.Run("claim locked", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/rewards/"+milestone.ID+"/claim", nil)
		req.SetPathValue("id", milestone.ID)
		serv.ClaimReward(rr, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Result().StatusCode)
	})
	t.Run("deleted", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/milestones/"+milestone.ID, nil)
		req.SetPathValue("id", milestone.ID)
		serv.DeleteMilestone(rr, req)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
	})
	t.Run("delete unknown milestone", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/milestones/"+milestone.ID, nil)
		req.SetPathValue("id", milestone.ID)
		serv.DeleteMilestone(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Result().StatusCode)
	})
}

func TestStateAndImport(t *testing.T) {
	serv, _, _ := newTestServer(t)
	body, _ := sonic.ConfigDefault.Marshal(api.SkillRequest{Name: "Guitar"})
	serv.CreateSkill(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/skills", bytes.NewReader(body)))

	var export []byte
	t.Run("state returned", func(t *testing.T) {
		rr := httptest.NewRecorder()
		serv.GetState(rr, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
		var st entity.State
		export = rr.Body.Bytes()
		assert.NoError(t, sonic.Unmarshal(export, &st))
		assert.Len(t, st.Skills, 1)
	})
	t.Run("export carries attachment header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		serv.Export(rr, httptest.NewRequest(http.MethodGet, "/api/v1/export", nil))
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
		assert.Contains(t, rr.Result().Header.Get("Content-Disposition"), "attachment")
	})
	t.Run("import round trip", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/import", bytes.NewReader(export))
		serv.Import(rr, req)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
	})
	t.Run("import rejects foreign schema", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/import", bytes.NewReader([]byte(`{"unexpected":true}`)))
		serv.Import(rr, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Result().StatusCode)
	})
	t.Run("reset", func(t *testing.T) {
		rr := httptest.NewRecorder()
		serv.Reset(rr, httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil))
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)

		rr = httptest.NewRecorder()
		serv.GetState(rr, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
		var st entity.State
		assert.NoError(t, sonic.Unmarshal(rr.Body.Bytes(), &st))
		assert.Empty(t, st.Skills)
	})
}

func TestOwnerMiddleware(t *testing.T) {
	serv, accounts, jwtMock := newTestServer(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := api.GetUIDFromContext(r); err == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	handler := serv.OwnerMiddleware(next)

	t.Run("no header stays anonymous", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
		assert.Equal(t, http.StatusNoContent, rr.Result().StatusCode)
	})
	t.Run("valid token resolves uid", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		req.Header.Set("Authorization", "Bearer test_token")
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Result().StatusCode)
	})
	t.Run("malformed header rejected", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		req.Header.Set("Authorization", "garbage")
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Result().StatusCode)
	})
	t.Run("invalid token never downgraded", func(t *testing.T) {
		jwtMock.valid = false
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		req.Header.Set("Authorization", "Bearer bad_token")
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Result().StatusCode)
		jwtMock.valid = true
	})
	t.Run("deleted account rejected", func(t *testing.T) {
		accounts.ChangeState(accountsNotFound)
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
		req.Header.Set("Authorization", "Bearer test_token")
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNotFound, rr.Result().StatusCode)
	})
}
