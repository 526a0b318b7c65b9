package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"communitylink/internal/profile/store"
	usermodels "communitylink/internal/user/models"
	id "communitylink/pkg/domain"
	dErrors "communitylink/pkg/domain-errors"
	"communitylink/pkg/requestcontext"
)

func ngoCtx() context.Context {
	return requestcontext.WithUserRole(context.Background(), string(usermodels.RoleNGO))
}

func validRequest() *SaveProfileRequest {
	return &SaveProfileRequest{
		NGOName:   "Open Shelter",
		Contact:   "contact@openshelter.org",
		Services:  []string{"housing", " housing", "food"},
		Languages: []string{"en", "uk"},
	}
}

func TestSaveProfile(t *testing.T) {
	svc := New(store.NewInMemory())
	ownerID := id.UserID(uuid.New())

	t.Run("non-NGO role is forbidden", func(t *testing.T) {
		ctx := requestcontext.WithUserRole(context.Background(), string(usermodels.RoleUser))
		_, err := svc.Save(ctx, ownerID, validRequest())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("services are trimmed and deduplicated", func(t *testing.T) {
		profile, err := svc.Save(ngoCtx(), ownerID, validRequest())
		require.NoError(t, err)
		assert.Equal(t, []string{"housing", "food"}, profile.Services)
	})

	t.Run("languages fold case", func(t *testing.T) {
		req := validRequest()
		req.Languages = []string{"English", "english", "Urdu"}
		profile, err := svc.Save(ngoCtx(), ownerID, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"english", "urdu"}, profile.Languages)
	})

	t.Run("missing contact fails validation", func(t *testing.T) {
		req := validRequest()
		req.Contact = ""
		_, err := svc.Save(ngoCtx(), ownerID, req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("empty services fail validation", func(t *testing.T) {
		req := validRequest()
		req.Services = []string{"  ", ""}
		_, err := svc.Save(ngoCtx(), ownerID, req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("resave preserves creation time", func(t *testing.T) {
		created := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(ngoCtx(), created)
		_, err := svc.Save(ctx, ownerID, validRequest())
		require.NoError(t, err)

		later := requestcontext.WithTime(ngoCtx(), created.Add(48*time.Hour))
		req := validRequest()
		req.NGOName = "Open Shelter e.V."
		_, err = svc.Save(later, ownerID, req)
		require.NoError(t, err)

		got, err := svc.Get(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Equal(t, "Open Shelter e.V.", got.NGOName)
		assert.True(t, got.CreatedAt.Equal(created))
		assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	})
}

func TestGetProfile(t *testing.T) {
	svc := New(store.NewInMemory())

	_, err := svc.Get(context.Background(), id.UserID(uuid.New()))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestListDirectory(t *testing.T) {
	svc := New(store.NewInMemory())

	for _, name := range []string{"Zebra Aid", "Ark Foundation"} {
		req := validRequest()
		req.NGOName = name
		_, err := svc.Save(ngoCtx(), id.UserID(uuid.New()), req)
		require.NoError(t, err)
	}

	entries, err := svc.ListDirectory(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Ark Foundation", entries[0].NGOName)
	assert.Equal(t, "Zebra Aid", entries[1].NGOName)

	// The directory never exposes contact details.
	profile, err := svc.Get(context.Background(), entries[0].OwnerID)
	require.NoError(t, err)
	assert.NotEmpty(t, profile.Contact)
}
