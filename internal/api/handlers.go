package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	errorvalues "github.com/limbo/habitadventure/internal/error_values"
	"github.com/limbo/habitadventure/internal/service"
	"github.com/limbo/habitadventure/pkg/httputil"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type SkillRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type CreateActivityRequest struct {
	Name       string `json:"name"`
	XP         int    `json:"xp"`
	SkillID    string `json:"skill_id"`
	Repeatable bool   `json:"repeatable"`
}

type UpdateActivityRequest struct {
	Name       string `json:"name"`
	XP         int    `json:"xp"`
	SkillID    string `json:"skill_id"`
	Repeatable bool   `json:"repeatable"`
}

type QuestRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ActivityIDs []string `json:"activity_ids"`
	Reward      string   `json:"reward"`
}

type MilestoneRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SkillID     string `json:"skill_id"`
	Level       int    `json:"level"`
}

type DarkModeRequest struct {
	Enabled bool `json:"enabled"`
}

// writeDomainError maps progression sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, errorvalues.ErrSkillNotFound),
		errors.Is(err, errorvalues.ErrActivityNotFound),
		errors.Is(err, errorvalues.ErrQuestNotFound),
		errors.Is(err, errorvalues.ErrRewardNotFound):
		logger.Error(op + " error: target doesn't exist")
		httputil.WriteErrorResponse(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, errorvalues.ErrDuplicateSkillName),
		errors.Is(err, errorvalues.ErrActivityCompleted),
		errors.Is(err, errorvalues.ErrQuestAlreadyClaimed),
		errors.Is(err, errorvalues.ErrRewardAlreadyClaimed):
		logger.Error(op + " error: conflicting state")
		httputil.WriteErrorResponse(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, errorvalues.ErrQuestNotReady),
		errors.Is(err, errorvalues.ErrRewardLocked),
		errors.Is(err, errorvalues.ErrActivityNotCompleted),
		errors.Is(err, errorvalues.ErrEmptyQuest),
		errors.Is(err, errorvalues.ErrEmptyName),
		errors.Is(err, errorvalues.ErrInvalidXPAmount),
		errors.Is(err, errorvalues.ErrInvalidLevel),
		errors.Is(err, errorvalues.ErrSchemaMismatch):
		logger.Error(op + " error: rejected input")
		httputil.WriteErrorResponse(w, http.StatusUnprocessableEntity, err.Error(), nil)
	default:
		logger.Error(op+" error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error", nil)
	}
}

// respondMutation writes a mutation outcome. A persistence failure still
// carries the applied in-memory result, flagged as not durably saved.
func respondMutation(w http.ResponseWriter, r *http.Request, statusCode int, body any, err error, op string) {
	logger := GetLoggerFromCtx(r.Context())
	if err == nil {
		httputil.WriteJSONResponse(w, statusCode, body)
		logger.Info(op + " done")
		return
	}
	if errors.Is(err, errorvalues.ErrPersistence) {
		logger.Error(op + ": applied in memory, saving failed")
		httputil.WriteJSONResponse(w, http.StatusAccepted, map[string]any{
			"result":  body,
			"warning": "changes applied but not saved durably",
		})
		return
	}
	writeDomainError(w, logger, op, err)
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req RegisterRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("registering error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	acc, err := s.accountService.Register(ctx, &service.RegisterRequest{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrUserExists) {
			logger.Error("registering error: existed account")
			httputil.WriteErrorResponse(w, http.StatusConflict, "account with such name already exists", nil)
			return
		}
		logger.Error("registering error: service error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error during registration", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusCreated, map[string]any{
		"uid": acc.ID.String(),
	})
	logger.Info("successful registration")
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	var req LoginRequest
	defer r.Body.Close()
	err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		logger.Error("login error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	acc, err := s.accountService.Login(ctx, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrUserNotFound):
			logger.Error("login error: unexist account")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "account with such name doesn't exist", nil)
			return
		case errors.Is(err, errorvalues.ErrWrongCredentials):
			logger.Error("login error: wrong password")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "invalid username or password", nil)
			return
		default:
			logger.Error("login error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error during login", nil)
			return
		}
	}
	token, err := s.jwtService.GenerateToken(acc)
	if err != nil {
		logger.Error("login error: generating token error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error creating token", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{
		"uid":   acc.ID.String(),
		"token": token,
	})
	logger.Info("successful login")
}

func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	uid, err := GetUIDFromContext(r)
	if err != nil {
		logger.Error("account deletion error: unauthorized")
		httputil.WriteErrorResponse(w, http.StatusUnauthorized, "no authorization", nil)
		return
	}
	var req DeleteAccountRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("account deletion error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = s.accountService.DeleteAccount(ctx, uid, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrUserNotFound):
			logger.Error("account deletion error: unexist account")
			httputil.WriteErrorResponse(w, http.StatusNotFound, "account doesn't exist", nil)
		case errors.Is(err, errorvalues.ErrWrongCredentials):
			logger.Error("account deletion error: wrong password")
			httputil.WriteErrorResponse(w, http.StatusForbidden, "invalid password", nil)
		default:
			logger.Error("account deletion error: service error", slog.String("error", err.Error()))
			httputil.WriteErrorResponse(w, http.StatusInternalServerError, "internal error while deleting account", nil)
		}
		return
	}
	logger.Info("account deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	raw, err := svc.Snapshot(ctx, owner)
	if err != nil {
		logger.Error("getting state error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while getting state", nil)
		return
	}
	httputil.WriteRawJSONResponse(w, http.StatusOK, raw)
	logger.Info("state provided")
}

func (s *Server) GetAchievements(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	statuses, err := svc.Achievements(ctx, owner)
	if err != nil {
		logger.Error("getting achievements error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while getting achievements", nil)
		return
	}
	httputil.WriteJSONResponse(w, http.StatusOK, map[string]any{"achievements": statuses})
	logger.Info("achievements provided")
}

func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	raw, err := svc.Snapshot(ctx, owner)
	if err != nil {
		logger.Error("export error", slog.String("error", err.Error()))
		httputil.WriteErrorResponse(w, http.StatusInternalServerError, "error while exporting state", nil)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="habit-adventure-data.json"`)
	httputil.WriteRawJSONResponse(w, http.StatusOK, raw)
	logger.Info("state exported")
}

func (s *Server) Import(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	defer r.Body.Close()
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		logger.Error("import error: reading body failed")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err = svc.Import(ctx, owner, raw)
	respondMutation(w, r, http.StatusOK, map[string]any{"imported": err == nil}, err, "import")
}

func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := svc.Reset(ctx, owner)
	respondMutation(w, r, http.StatusOK, map[string]any{"reset": err == nil}, err, "reset")
}

func (s *Server) SetDarkMode(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	var req DarkModeRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("dark mode error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := svc.SetDarkMode(ctx, owner, req.Enabled)
	respondMutation(w, r, http.StatusOK, map[string]any{"dark_mode": req.Enabled}, err, "dark mode")
}

func (s *Server) CreateSkill(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	var req SkillRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("create skill error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	sk, err := svc.CreateSkill(ctx, owner, &service.CreateSkillRequest{Name: req.Name, Icon: req.Icon})
	respondMutation(w, r, http.StatusCreated, sk, err, "create skill")
}

func (s *Server) UpdateSkill(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	var req SkillRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("update skill error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	sk, err := svc.UpdateSkill(ctx, owner, r.PathValue("id"), &service.CreateSkillRequest{Name: req.Name, Icon: req.Icon})
	respondMutation(w, r, http.StatusOK, sk, err, "update skill")
}

func (s *Server) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := svc.DeleteSkill(ctx, owner, r.PathValue("id"))
	respondMutation(w, r, http.StatusOK, map[string]any{"deleted": err == nil}, err, "delete skill")
}

func (s *Server) CreateActivity(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	var req CreateActivityRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("create activity error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	a, err := svc.CreateActivity(ctx, owner, &service.CreateActivityRequest{
		Name:       req.Name,
		XP:         req.XP,
		SkillID:    req.SkillID,
		Repeatable: req.Repeatable,
	})
	respondMutation(w, r, http.StatusCreated, a, err, "create activity")
}

func (s *Server) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	var req UpdateActivityRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("update activity error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	a, err := svc.UpdateActivity(ctx, owner, r.PathValue("id"), &service.UpdateActivityRequest{
		Name:       req.Name,
		XP:         req.XP,
		SkillID:    req.SkillID,
		Repeatable: req.Repeatable,
	})
	respondMutation(w, r, http.StatusOK, a, err, "update activity")
}

func (s *Server) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := svc.DeleteActivity(ctx, owner, r.PathValue("id"))
	respondMutation(w, r, http.StatusOK, map[string]any{"deleted": err == nil}, err, "delete activity")
}

func (s *Server) CompleteActivity(w http.ResponseWriter, r *http.Request) {
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	res, err := svc.CompleteActivity(ctx, owner, r.PathValue("id"))
	respondMutation(w, r, http.StatusOK, res, err, "complete activity")
}

func (s *Server) UncompleteActivity(w http.ResponseWriter, r *http.Request) {
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	a, err := svc.UncompleteActivity(ctx, owner, r.PathValue("id"))
	respondMutation(w, r, http.StatusOK, a, err, "uncomplete activity")
}

func (s *Server) CreateQuest(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	var req QuestRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("create quest error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	q, err := svc.CreateQuest(ctx, owner, &service.QuestRequest{
		Name:        req.Name,
		Description: req.Description,
		ActivityIDs: req.ActivityIDs,
		Reward:      req.Reward,
	})
	respondMutation(w, r, http.StatusCreated, q, err, "create quest")
}

func (s *Server) UpdateQuest(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	var req QuestRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("update quest error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	q, err := svc.UpdateQuest(ctx, owner, r.PathValue("id"), &service.QuestRequest{
		Name:        req.Name,
		Description: req.Description,
		ActivityIDs: req.ActivityIDs,
		Reward:      req.Reward,
	})
	respondMutation(w, r, http.StatusOK, q, err, "update quest")
}

func (s *Server) DeleteQuest(w http.ResponseWriter, r *http.Request) {
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := svc.DeleteQuest(ctx, owner, r.PathValue("id"))
	respondMutation(w, r, http.StatusOK, map[string]any{"deleted": err == nil}, err, "delete quest")
}

func (s *Server) ClaimQuestReward(w http.ResponseWriter, r *http.Request) {
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	res, err := svc.ClaimQuestReward(ctx, owner, r.PathValue("id"))
	respondMutation(w, r, http.StatusOK, res, err, "claim quest reward")
}

func (s *Server) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	logger := GetLoggerFromCtx(r.Context())
	svc, owner := s.progression(r)
	var req MilestoneRequest
	defer r.Body.Close()
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("create milestone error: invalid body")
		httputil.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	m, err := svc.CreateMilestone(ctx, owner, &service.CreateMilestoneRequest{
		Name:        req.Name,
		Description: req.Description,
		SkillID:     req.SkillID,
		Level:       req.Level,
	})
	respondMutation(w, r, http.StatusCreated, m, err, "create milestone")
}

func (s *Server) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := svc.DeleteReward(ctx, owner, r.PathValue("id"))
	respondMutation(w, r, http.StatusOK, map[string]any{"deleted": err == nil}, err, "delete milestone")
}

func (s *Server) ClaimReward(w http.ResponseWriter, r *http.Request) {
	svc, owner := s.progression(r)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	rw, err := svc.ClaimReward(ctx, owner, r.PathValue("id"))
	respondMutation(w, r, http.StatusOK, rw, err, "claim reward")
}
