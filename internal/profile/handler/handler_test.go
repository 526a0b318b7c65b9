package handler_test

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communitylink/internal/profile/handler"
	"communitylink/internal/profile/models"
	"communitylink/internal/profile/service"
	"communitylink/internal/profile/store"
	"communitylink/internal/token"
	usermodels "communitylink/internal/user/models"
	id "communitylink/pkg/domain"
	"communitylink/pkg/testutil"
)

type fixture struct {
	router *chi.Mux
	jwt    *token.JWTService
	ngoID  id.UserID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	svc := service.New(store.NewInMemory(), service.WithLogger(logger))
	jwt := token.NewJWTService("profile-test-key", "communitylink", "communitylink-api")

	h := handler.New(svc, logger, nil, token.NewJWTServiceAdapter(jwt))
	router := chi.NewRouter()
	h.Register(router)

	return &fixture{router: router, jwt: jwt, ngoID: id.UserID(uuid.New())}
}

func (f *fixture) authed(t *testing.T, req *http.Request, userID id.UserID, role usermodels.Role) *http.Request {
	t.Helper()
	tok, err := f.jwt.GenerateAccessToken(userID, string(role), time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func saveBody(name string) map[string]any {
	return map[string]any{
		"ngo_name":  name,
		"contact":   "hello@" + name + ".org",
		"services":  []string{"food", "shelter"},
		"languages": []string{"en"},
	}
}

func TestProfileRoutesRequireAuth(t *testing.T) {
	f := newFixture(t)
	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/profile"))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestSaveAndGetProfile(t *testing.T) {
	f := newFixture(t)

	t.Run("regular users have no profile surface", func(t *testing.T) {
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPut, "/profile", saveBody("helpers")),
			id.UserID(uuid.New()), usermodels.RoleUser)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")
	})

	t.Run("NGO saves and reads back", func(t *testing.T) {
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPut, "/profile", saveBody("helpers")),
			f.ngoID, usermodels.RoleNGO)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		rr = testutil.DoRequest(f.router, f.authed(t,
			testutil.NewRequest(t, http.MethodGet, "/profile"), f.ngoID, usermodels.RoleNGO))
		testutil.AssertStatus(t, rr, http.StatusOK)
		got := testutil.UnmarshalResponse[models.Profile](t, rr)
		assert.Equal(t, "helpers", got.NGOName)
		assert.Equal(t, f.ngoID, got.OwnerID)
	})

	t.Run("validation errors surface as 400", func(t *testing.T) {
		body := saveBody("helpers")
		body["contact"] = ""
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPut, "/profile", body),
			f.ngoID, usermodels.RoleNGO)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_failed")
	})

	t.Run("missing profile is 404", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, f.authed(t,
			testutil.NewRequest(t, http.MethodGet, "/profile"), id.UserID(uuid.New()), usermodels.RoleNGO))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})
}

func TestDirectory(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"zebra-aid", "ark-foundation"} {
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPut, "/profile", saveBody(name)),
			id.UserID(uuid.New()), usermodels.RoleNGO)
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	}

	rr := testutil.DoRequest(f.router, f.authed(t,
		testutil.NewRequest(t, http.MethodGet, "/ngos"), id.UserID(uuid.New()), usermodels.RoleUser))
	testutil.AssertStatus(t, rr, http.StatusOK)

	body := testutil.UnmarshalResponse[struct {
		NGOs []models.DirectoryEntry `json:"ngos"`
	}](t, rr)
	require.Len(t, body.NGOs, 2)
	assert.Equal(t, "ark-foundation", body.NGOs[0].NGOName)

	// Directory entries omit contact details.
	for _, entry := range body.NGOs {
		assert.NotEmpty(t, entry.Services)
	}
}
