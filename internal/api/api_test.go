package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"alcyxob/trainer-core/internal/domain"
	"alcyxob/trainer-core/internal/logger"
	"alcyxob/trainer-core/internal/metrics"
	"alcyxob/trainer-core/internal/repository"
	"alcyxob/trainer-core/internal/service"
	"alcyxob/trainer-core/internal/testutil"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func signToken(t *testing.T, secret, uid string, role domain.Role, expires time.Time) string {
	t.Helper()
	claims := jwtClaims{
		UserID:           uid,
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(expires)},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func token(t *testing.T, uid string, role domain.Role) string {
	return signToken(t, testSecret, uid, role, time.Now().Add(time.Hour))
}

type testServer struct {
	router  *gin.Engine
	repos   *repository.Repositories
	metrics *metrics.Manager
	trainer string
	client  string
}

// newTestServer wires the real services over an in-memory store with one
// trainer managing one client.
func newTestServer(t *testing.T, configure ...func(*RouterConfig)) *testServer {
	t.Helper()
	repos := testutil.Repos(t)
	m := metrics.NewTestManager()
	log := logger.NewNop()

	cfg := RouterConfig{JWTSecret: testSecret, Metrics: m, Log: log}
	for _, fn := range configure {
		fn(&cfg)
	}

	router := gin.New()
	SetupRoutes(router, cfg, Services{
		Trainer:  service.NewTrainerService(repos.Clients, log),
		Exercise: service.NewExerciseService(repos.Exercises),
		Scheduling: service.NewSchedulingService(repos, m, service.SchedulingOptions{
			Location:         time.UTC,
			LateCancelWindow: 24 * time.Hour,
		}, log),
		Program:   service.NewProgramService(repos, log),
		Workout:   service.NewWorkoutService(repos, m, nil, log),
		Analytics: service.NewAnalyticsService(repos, nil, m, nil, log),
	})

	s := &testServer{
		router:  router,
		repos:   repos,
		metrics: m,
		trainer: uuid.NewString(),
		client:  uuid.NewString(),
	}
	testutil.SeedRelation(t, context.Background(), repos, s.trainer, s.client)
	return s
}

func (s *testServer) trainerToken(t *testing.T) string { return token(t, s.trainer, domain.RoleTrainer) }

func (s *testServer) clientToken(t *testing.T) string { return token(t, s.client, domain.RoleClient) }

// apiResponse mirrors envelope with the payload left raw.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Meta    *listMeta       `json:"meta"`
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	var resp apiResponse
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	}
	return rr, resp
}

func decodeData(t *testing.T, resp apiResponse, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, v), string(resp.Data))
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}
