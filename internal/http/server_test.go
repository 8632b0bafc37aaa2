package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sparkd/internal/errs"
	"github.com/fyrsmithlabs/sparkd/internal/ledger"
	"github.com/fyrsmithlabs/sparkd/internal/profile"
	"github.com/fyrsmithlabs/sparkd/internal/quest"
	"github.com/fyrsmithlabs/sparkd/internal/redemption"
	"github.com/fyrsmithlabs/sparkd/internal/reflection"
	"github.com/fyrsmithlabs/sparkd/internal/rewards"
)

var testNow = time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC)

type harness struct {
	srv      *Server
	ledger   *ledger.MemoryLedger
	services Services
}

func newServices(t *testing.T) (Services, *ledger.MemoryLedger) {
	t.Helper()
	rc, err := rewards.Default()
	require.NoError(t, err)
	qc, err := quest.DefaultCatalog()
	require.NoError(t, err)

	l := ledger.NewMemoryLedger()
	profiles, err := profile.NewService(profile.NewMemoryStore(), nil)
	require.NoError(t, err)
	refl, err := reflection.NewService(reflection.NewMemoryStore(), l, nil, reflection.WithMoodRecorder(profiles))
	require.NoError(t, err)
	quests, err := quest.NewService(quest.NewSelector(qc), profiles, quest.NewMemoryAssignmentStore(), l, refl, nil)
	require.NoError(t, err)
	mgr, err := redemption.NewManager(rc, l, redemption.NewMemoryStore(), nil)
	require.NoError(t, err)

	return Services{
		Rewards:     rc,
		Quests:      qc,
		Today:       quests,
		Reflections: refl,
		Profiles:    profiles,
		Redemptions: mgr,
	}, l
}

func newHarness(t *testing.T, cfg *Config) *harness {
	t.Helper()
	services, l := newServices(t)
	return newHarnessWith(t, services, l, cfg)
}

func newHarnessWith(t *testing.T, services Services, l *ledger.MemoryLedger, cfg *Config) *harness {
	t.Helper()
	srv, err := NewServer(services, zap.NewNop(), cfg)
	require.NoError(t, err)
	srv.now = func() time.Time { return testNow }
	return &harness{srv: srv, ledger: l, services: services}
}

func (h *harness) do(t *testing.T, method, target, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer(t *testing.T) {
	t.Run("uses defaults when config is nil", func(t *testing.T) {
		services, _ := newServices(t)
		server, err := NewServer(services, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 8080, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		services, _ := newServices(t)
		_, err := NewServer(services, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when a service is missing", func(t *testing.T) {
		services, _ := newServices(t)
		services.Redemptions = nil
		_, err := NewServer(services, zap.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redemption manager is required")
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		h := newHarness(t, nil)
		rec := h.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
	})

	t.Run("failing dependency", func(t *testing.T) {
		services, l := newServices(t)
		services.Checks = map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		}
		h := newHarnessWith(t, services, l, nil)

		rec := h.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decode[HealthResponse](t, rec)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, map[string]string{"postgres": "ok", "redis": "unavailable"}, resp.Checks)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRequireUser(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/v1/rewards/points", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "unauthorized", resp.Code)
	assert.NotEmpty(t, resp.RequestID)

	rec = h.do(t, http.MethodGet, "/api/v1/rewards/points", strings.Repeat("u", maxUserIDLength+1), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRedeemFlow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	_, err := h.ledger.Credit(ctx, "u1", 100)
	require.NoError(t, err)

	rec := h.do(t, http.MethodPost, "/api/v1/rewards/redeem", "u1", RedeemRequest{RewardID: "mood_boost"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	receipt := decode[redemption.Receipt](t, rec)
	assert.Equal(t, int64(25), receipt.RemainingBalance)
	assert.Equal(t, "mood_boost", receipt.Redemption.RewardID)
	assert.NotNil(t, receipt.Redemption.ExpiresAt)

	t.Run("insufficient balance is 409 and keeps the balance", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/rewards/redeem", "u1", RedeemRequest{RewardID: "productivity_boost"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "insufficient_balance", decode[ErrorResponse](t, rec).Code)

		points := decode[redemption.Points](t, h.do(t, http.MethodGet, "/api/v1/rewards/points", "u1", nil))
		assert.Equal(t, int64(25), points.SparkPoints)
	})

	t.Run("unknown reward is 404", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/rewards/redeem", "u1", RedeemRequest{RewardID: "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing reward id is 400", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/rewards/redeem", "u1", RedeemRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("history and active", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/v1/rewards/history?status=active&limit=5", "u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]redemption.Redemption](t, rec), 1)

		rec = h.do(t, http.MethodGet, "/api/v1/rewards/active", "u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		active := decode[[]redemption.Redemption](t, rec)
		require.Len(t, active, 1)
		assert.False(t, active[0].IsExpired)
	})

	t.Run("bad history filters are 400", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/v1/rewards/history?status=lost", "u1", nil).Code)
		assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/v1/rewards/history?limit=-1", "u1", nil).Code)
	})
}

func TestRedeemRateLimit(t *testing.T) {
	h := newHarness(t, &Config{Host: "localhost", Port: 8080, RedeemPerMinute: 1, RedeemBurst: 1})
	_, err := h.ledger.Credit(context.Background(), "u1", 1000)
	require.NoError(t, err)

	first := h.do(t, http.MethodPost, "/api/v1/rewards/redeem", "u1", RedeemRequest{RewardID: "mood_boost"})
	assert.Equal(t, http.StatusCreated, first.Code)

	second := h.do(t, http.MethodPost, "/api/v1/rewards/redeem", "u1", RedeemRequest{RewardID: "mood_boost"})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Limits are per user.
	_, err = h.ledger.Credit(context.Background(), "u2", 1000)
	require.NoError(t, err)
	other := h.do(t, http.MethodPost, "/api/v1/rewards/redeem", "u2", RedeemRequest{RewardID: "mood_boost"})
	assert.Equal(t, http.StatusCreated, other.Code)
}

func TestListRewards(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/v1/rewards", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[RewardsResponse](t, rec)
	assert.Equal(t, "2024.1", all.Version)
	assert.Len(t, all.Rewards, 13)

	rec = h.do(t, http.MethodGet, "/api/v1/rewards?category=boost", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	boosts := decode[RewardsResponse](t, rec)
	require.Len(t, boosts.Rewards, 3)
	for _, r := range boosts.Rewards {
		assert.Equal(t, rewards.CategoryBoost, r.Category)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/rewards?category=snacks", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReflections(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/reflections", "u1", map[string]interface{}{
		"questTitle": "Reflect on a Challenge",
		"questType":  "weekly",
		"text":       strings.Repeat("a", 150),
		"imageUrl":   "https://cdn.example.com/a.jpg",
		"mood":       map[string]string{"general": "Hopeful"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[reflection.SubmitResult](t, rec)
	assert.Equal(t, 35, res.PointsAwarded)
	assert.Equal(t, 7.0, res.QualityScore)
	assert.Equal(t, int64(35), res.Balance)

	t.Run("user id in body is ignored", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/reflections", "u2", `{"userId":"u1","questTitle":"Reach Out","questType":"daily"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "u2", decode[reflection.SubmitResult](t, rec).Reflection.UserID)
	})

	t.Run("invalid type is 400", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/reflections", "u1", map[string]string{"questTitle": "X", "questType": "monthly"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_failed", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("list and owner-only delete", func(t *testing.T) {
		list := decode[[]reflection.Reflection](t, h.do(t, http.MethodGet, "/api/v1/reflections", "u1", nil))
		require.Len(t, list, 1)

		rec := h.do(t, http.MethodDelete, "/api/v1/reflections/"+list[0].ID, "u2", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = h.do(t, http.MethodDelete, "/api/v1/reflections/"+list[0].ID, "u1", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		points := decode[redemption.Points](t, h.do(t, http.MethodGet, "/api/v1/rewards/points", "u1", nil))
		assert.Equal(t, int64(35), points.SparkPoints)
		assert.Equal(t, int64(1), points.QuestsCompleted)
	})

	t.Run("mood was logged", func(t *testing.T) {
		snap := decode[profile.Snapshot](t, h.do(t, http.MethodGet, "/api/v1/profile", "u1", nil))
		require.Len(t, snap.MoodLog, 1)
		assert.Equal(t, "Hopeful", snap.MoodLog[0].General)
	})
}

func TestQuests(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/v1/quests/today", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	today := decode[quest.Assignment](t, rec)
	assert.Equal(t, "Gratitude Journal", today.Quest.Title)
	assert.Equal(t, "no_profile", today.Rule)
	assert.Equal(t, "2025-02-03", today.Day)

	// Repeated reads never inflate the counter.
	h.do(t, http.MethodGet, "/api/v1/quests/today", "u1", nil)
	points := decode[redemption.Points](t, h.do(t, http.MethodGet, "/api/v1/rewards/points", "u1", nil))
	assert.Equal(t, int64(1), points.QuestsAssigned)

	active := decode[[]quest.Assignment](t, h.do(t, http.MethodGet, "/api/v1/quests/active", "u1", nil))
	require.Len(t, active, 1)

	rec = h.do(t, http.MethodPost, "/api/v1/quests/start", "u1", StartQuestRequest{QuestTitle: "Gratitude Journal"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode[reflection.Reflection](t, rec)
	assert.Equal(t, reflection.KindStart, started.Kind)

	t.Run("second start is rejected", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/quests/start", "u1", StartQuestRequest{QuestTitle: "Gratitude Journal"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown quest is 404", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/v1/quests/start", "u1", StartQuestRequest{QuestTitle: "Juggle"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("started quest is no longer active", func(t *testing.T) {
		active := decode[[]quest.Assignment](t, h.do(t, http.MethodGet, "/api/v1/quests/active", "u1", nil))
		assert.Empty(t, active)
	})

	t.Run("history", func(t *testing.T) {
		history := decode[[]quest.HistoryEntry](t, h.do(t, http.MethodGet, "/api/v1/quests/history?limit=10", "u1", nil))
		require.Len(t, history, 1)
		assert.Equal(t, "Gratitude Journal", history[0].Title)

		assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/v1/quests/history?limit=ten", "u1", nil).Code)
	})
}

func TestProfileSteps(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPut, "/api/v1/profile/steps/mood", "u1", map[string]interface{}{
		"general":          "Stressed",
		"frequency":        "often",
		"copingMechanisms": []string{"music", "running"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[profile.Snapshot](t, rec)
	assert.Equal(t, []string{"mood"}, snap.CompletedSteps)
	assert.Equal(t, "Stressed", snap.Mood.General)
	assert.False(t, snap.IsOnboardingComplete)

	rec = h.do(t, http.MethodPost, "/api/v1/profile/steps/personalityTraits/skip", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"mood", "personalityTraits"}, decode[profile.Snapshot](t, rec).CompletedSteps)

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPut, "/api/v1/profile/steps/hobbies", "u1", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPut, "/api/v1/profile/steps/mood", "u1", `{"general":`).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPut, "/api/v1/profile/steps/mood", "u1", `{"colour":"blue"}`).Code)

	rec = h.do(t, http.MethodPost, "/api/v1/profile/mood", "u1", map[string]string{"general": "calm"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// A stressed profile now drives today's quest.
	today := decode[quest.Assignment](t, h.do(t, http.MethodGet, "/api/v1/quests/today", "u1", nil))
	assert.Equal(t, "Mindful Walk", today.Quest.Title)
}

type failingManager struct{ redemption.Manager }

func (failingManager) Points(context.Context, string) (*redemption.Points, error) {
	return nil, errs.Upstream("ledger.account", errors.New("connection refused to 10.0.0.5"))
}

func TestUpstreamErrorsAreOpaque(t *testing.T) {
	services, l := newServices(t)
	services.Redemptions = failingManager{services.Redemptions}
	h := newHarnessWith(t, services, l, nil)

	rec := h.do(t, http.MethodGet, "/api/v1/rewards/points", "u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "upstream_unavailable", resp.Code)
	assert.NotContains(t, resp.Error, "10.0.0.5")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{errs.Invalid("bad"), http.StatusBadRequest},
		{errs.NotFound("reward", "x"), http.StatusNotFound},
		{errs.ErrInsufficientBalance, http.StatusConflict},
		{errs.Upstream("op", errors.New("down")), http.StatusServiceUnavailable},
		{errors.New("surprise"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, _ := statusFor(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}
