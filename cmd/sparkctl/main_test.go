package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sparkd/internal/redemption"
)

// fakeServer records the last request and answers with a canned response.
type fakeServer struct {
	*httptest.Server
	lastPath    string
	lastQuery   string
	lastUser    string
	lastBody    map[string]interface{}
	status      int
	respondWith interface{}
}

func newFakeServer(t *testing.T, status int, body interface{}) *fakeServer {
	t.Helper()
	fs := &fakeServer{status: status, respondWith: body}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.lastPath = r.Method + " " + r.URL.Path
		fs.lastQuery = r.URL.RawQuery
		fs.lastUser = r.Header.Get("X-User-ID")
		fs.lastBody = nil
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&fs.lastBody)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fs.status)
		_ = json.NewEncoder(w).Encode(fs.respondWith)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPoints(t *testing.T) {
	fs := newFakeServer(t, http.StatusOK, redemption.Points{SparkPoints: 120, QuestsAssigned: 4, QuestsCompleted: 2})

	out, err := run(t, "--server", fs.URL, "--user", "alice", "points")
	require.NoError(t, err)

	assert.Equal(t, "GET /api/v1/rewards/points", fs.lastPath)
	assert.Equal(t, "alice", fs.lastUser)
	assert.Contains(t, out, "120")
	assert.Contains(t, out, "Quests completed")
}

func TestRequiresUser(t *testing.T) {
	t.Setenv("SPARKCTL_USER", "")
	fs := newFakeServer(t, http.StatusOK, redemption.Points{})

	_, err := run(t, "--server", fs.URL, "points")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user is required")
	assert.Empty(t, fs.lastPath)
}

func TestRedeem(t *testing.T) {
	expires := time.Date(2025, 2, 4, 12, 0, 0, 0, time.UTC)
	fs := newFakeServer(t, http.StatusCreated, redemption.Receipt{
		Redemption: &redemption.Redemption{
			ID:         "r-1",
			RewardID:   "mood_boost",
			RewardName: "Mood Boost",
			Cost:       75,
			Status:     redemption.StatusActive,
			ExpiresAt:  &expires,
		},
		RemainingBalance: 25,
	})

	out, err := run(t, "--server", fs.URL, "-u", "alice", "redeem", "mood_boost")
	require.NoError(t, err)

	assert.Equal(t, "POST /api/v1/rewards/redeem", fs.lastPath)
	assert.Equal(t, "mood_boost", fs.lastBody["rewardId"])
	assert.Contains(t, out, "Mood Boost")
	assert.Contains(t, out, "r-1")
	assert.Contains(t, out, "25")
}

func TestRedeem_ServerError(t *testing.T) {
	fs := newFakeServer(t, http.StatusConflict, map[string]string{
		"error": "insufficient spark points: have 10, need 75",
		"code":  "insufficient_balance",
	})

	_, err := run(t, "--server", fs.URL, "-u", "alice", "redeem", "mood_boost")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "insufficient_balance", apiErr.Code)
	assert.Contains(t, err.Error(), "need 75")
}

func TestHistory_Query(t *testing.T) {
	fs := newFakeServer(t, http.StatusOK, []redemption.Redemption{
		{RewardName: "Zen Theme", Cost: 200, Status: redemption.StatusActive, RedeemedAt: time.Now()},
		{RewardName: "Mood Boost", Cost: 75, Status: redemption.StatusActive, IsExpired: true, RedeemedAt: time.Now()},
	})

	out, err := run(t, "--server", fs.URL, "-u", "alice", "history", "--status", "active", "--limit", "5")
	require.NoError(t, err)

	assert.Equal(t, "GET /api/v1/rewards/history", fs.lastPath)
	assert.Equal(t, "limit=5&status=active", fs.lastQuery)
	assert.Contains(t, out, "Zen Theme")
	assert.Contains(t, out, "expired")
}

func TestActive_Empty(t *testing.T) {
	fs := newFakeServer(t, http.StatusOK, []redemption.Redemption{})

	out, err := run(t, "--server", fs.URL, "-u", "alice", "active")
	require.NoError(t, err)
	assert.Contains(t, out, "No redemptions.")
}

func TestQuestToday(t *testing.T) {
	fs := newFakeServer(t, http.StatusOK, map[string]interface{}{
		"quest": map[string]string{
			"title":       "Gratitude Journal",
			"description": "Write down three things you are grateful for.",
			"type":        "daily",
		},
		"day":  "2025-02-03",
		"rule": "no_profile",
	})

	out, err := run(t, "--server", fs.URL, "-u", "alice", "quest", "today")
	require.NoError(t, err)

	assert.Equal(t, "GET /api/v1/quests/today", fs.lastPath)
	assert.Contains(t, out, "Gratitude Journal")
	assert.Contains(t, out, "no_profile")
}

func TestReflect(t *testing.T) {
	fs := newFakeServer(t, http.StatusCreated, map[string]interface{}{
		"pointsAwarded": 35,
		"qualityScore":  7.0,
		"sparkPoints":   135,
	})

	out, err := run(t, "--server", fs.URL, "-u", "alice", "reflect", "Gratitude Journal", "--text", "felt good", "--type", "weekly")
	require.NoError(t, err)

	assert.Equal(t, "POST /api/v1/reflections", fs.lastPath)
	assert.Equal(t, "Gratitude Journal", fs.lastBody["questTitle"])
	assert.Equal(t, "weekly", fs.lastBody["questType"])
	assert.Contains(t, out, "35")
	assert.Contains(t, out, "7.0")
}

func TestCatalog_CategoryFilter(t *testing.T) {
	fs := newFakeServer(t, http.StatusOK, map[string]interface{}{
		"version": "2025.1",
		"rewards": []map[string]interface{}{
			{"id": "mood_boost", "name": "Mood Boost", "cost": 75, "category": "boost", "rarity": "common"},
		},
	})

	out, err := run(t, "--server", fs.URL, "-u", "alice", "catalog", "--category", "boost")
	require.NoError(t, err)

	assert.Equal(t, "category=boost", fs.lastQuery)
	assert.Contains(t, out, "mood_boost")
	assert.Contains(t, out, "2025.1")
}

func TestHealth_NoUserNeeded(t *testing.T) {
	fs := newFakeServer(t, http.StatusOK, map[string]interface{}{"status": "ok"})

	out, err := run(t, "--server", fs.URL+"/", "health")
	require.NoError(t, err)
	assert.Equal(t, "GET /health", fs.lastPath)
	assert.Contains(t, out, "ok")
}
