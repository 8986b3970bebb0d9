package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/rivalscope/pkg/account"
	"github.com/jordanlanch/rivalscope/pkg/api/middleware"
	"github.com/jordanlanch/rivalscope/pkg/auth"
	"github.com/jordanlanch/rivalscope/pkg/jobs"
	"github.com/jordanlanch/rivalscope/pkg/models"
	"github.com/jordanlanch/rivalscope/pkg/quota"
	"github.com/jordanlanch/rivalscope/pkg/report"
	"github.com/jordanlanch/rivalscope/pkg/research"
	"github.com/jordanlanch/rivalscope/pkg/storage"
)

const testSecret = "test-secret"

// testEnv wires real services over the in-memory store
type testEnv struct {
	store    *storage.Memory
	queue    *jobs.MemoryQueue
	accounts *account.Service

	auth     *AuthHandler
	users    *UserHandler
	research *ResearchHandler
	reports  *ReportHandler
}

func newTestEnv(t *testing.T, enforceQuota bool) *testEnv {
	t.Helper()

	store := storage.NewMemory()
	queue := jobs.NewMemoryQueue(16)
	t.Cleanup(func() { _ = queue.Close() })

	policy := quota.NewTierPolicy(store, enforceQuota)
	accounts := account.NewService(store, nil, nil)

	return &testEnv{
		store:    store,
		queue:    queue,
		accounts: accounts,
		auth:     NewAuthHandler(accounts, nil, testSecret, 1, nil),
		users:    NewUserHandler(accounts, policy),
		research: NewResearchHandler(research.NewService(store, policy, queue, nil, nil)),
		reports:  NewReportHandler(report.NewService(store, nil, nil)),
	}
}

// createUser registers a user through the account service
func (env *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := env.accounts.Register(context.Background(), models.RegisterRequest{
		Username:  username,
		Password:  "password123",
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		Email:     username + "@example.com",
	})
	require.NoError(t, err)
	return u
}

func (env *testEnv) createResearch(t *testing.T, owner *models.User, autoFind bool) *models.Research {
	t.Helper()
	competitors := "Acme, Globex"
	r, err := env.store.CreateResearch(context.Background(), &models.Research{
		UserID:              owner.ID,
		Title:               "CRM landscape",
		Product:             "CRM",
		ProductCategory:     "tech",
		SalesChannels:       []string{"online"},
		Country:             "Brazil",
		State:               "SP",
		City:                "Sao Paulo",
		Competitors:         &competitors,
		AutoFindCompetitors: autoFind,
		AspectsToAnalyze:    []string{"pricing"},
		Status:              models.ResearchPending,
	})
	require.NoError(t, err)
	return r
}

func (env *testEnv) createReport(t *testing.T, r *models.Research) *models.Report {
	t.Helper()
	rep, err := env.store.CreateReport(context.Background(), &models.Report{
		UserID:     r.UserID,
		ResearchID: r.ID,
		Content:    sampleContent(),
	})
	require.NoError(t, err)
	return rep
}

func sampleContent() models.ReportContent {
	return models.ReportContent{
		Competitors: []models.CompetitorProfile{{Name: "Acme"}, {Name: "Globex"}},
		PriceComparison: &models.PriceComparison{
			Data:     []models.PricePoint{{Competitor: "Acme", Price: 49}},
			Analysis: "Acme is cheaper",
		},
		Conclusions: models.Conclusions{
			Findings:        []string{"crowded market"},
			Opportunities:   []string{"SMB segment"},
			Recommendations: []string{"lower entry price"},
		},
	}
}

// request describes one handler invocation
type request struct {
	method string
	path   string
	body   any
	user   *models.User
	params map[string]string
}

func serve(t *testing.T, h echo.HandlerFunc, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	switch b := r.body.(type) {
	case nil:
	case string:
		body.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&body).Encode(b))
	}

	e := echo.New()
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if len(r.params) > 0 {
		names := make([]string, 0, len(r.params))
		values := make([]string, 0, len(r.params))
		for name, value := range r.params {
			names = append(names, name)
			values = append(values, value)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if r.user != nil {
		c.Set(middleware.ContextUser, r.user)
		c.Set(middleware.ContextUserID, r.user.ID)
	}

	require.NoError(t, h(c))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func tokenFor(t *testing.T, u *models.User) (string, *auth.Claims) {
	t.Helper()
	token, err := auth.GenerateJWT(u.ID, u.Username, string(u.SubscriptionTier), testSecret, 1)
	require.NoError(t, err)
	claims, err := auth.ValidateJWT(token, testSecret)
	require.NoError(t, err)
	return token, claims
}
