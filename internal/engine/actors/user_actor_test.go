package actors

import (
	"context"
	"testing"
	"time"

	"sierra/internal/api"
	"sierra/internal/database"
	"sierra/internal/models"
	"sierra/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnUserActor(t *testing.T) (*actor.ActorSystem, *database.MemoryStore, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	store := database.NewMemoryStore()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewUserActor(store, zap.NewNop().Sugar(), time.Second)
	}))
	return system, store, pid
}

func TestUserRegistrationAndLogin(t *testing.T) {
	system, _, pid := spawnUserActor(t)

	// Step 1: register a new user
	regFuture := system.Root.RequestFuture(pid, &RegisterUserMsg{
		Username: "testuser",
		Phone:    "+15550123456",
		Password: "password123",
	}, 5*time.Second)

	regResult, err := regFuture.Result()
	require.NoError(t, err)

	user, ok := regResult.(*models.User)
	require.True(t, ok, "expected a user, got %T", regResult)
	assert.Equal(t, "testuser", user.Username)
	assert.Equal(t, models.DefaultBio, user.Bio)
	assert.NotEqual(t, "password123", user.HashedPassword)

	// Step 2: log in with the right password
	loginFuture := system.Root.RequestFuture(pid, &LoginMsg{
		Username: "testuser",
		Password: "password123",
	}, 5*time.Second)

	loginResult, err := loginFuture.Result()
	require.NoError(t, err)

	loginResp, ok := loginResult.(*api.AuthResponse)
	require.True(t, ok)
	assert.True(t, loginResp.Success)
	assert.Equal(t, user.ID.String(), loginResp.UserID)

	// Step 3: wrong password is rejected with the same opaque message as an
	// unknown username
	badFuture := system.Root.RequestFuture(pid, &LoginMsg{
		Username: "testuser",
		Password: "wrongpassword",
	}, 5*time.Second)

	badResult, err := badFuture.Result()
	require.NoError(t, err)

	badResp, ok := badResult.(*api.AuthResponse)
	require.True(t, ok)
	assert.False(t, badResp.Success)
	assert.Equal(t, "Invalid username or password.", badResp.Error)

	unknownFuture := system.Root.RequestFuture(pid, &LoginMsg{
		Username: "nosuchuser",
		Password: "password123",
	}, 5*time.Second)

	unknownResult, err := unknownFuture.Result()
	require.NoError(t, err)
	unknownResp, ok := unknownResult.(*api.AuthResponse)
	require.True(t, ok)
	assert.Equal(t, badResp.Error, unknownResp.Error)
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	system, _, pid := spawnUserActor(t)

	first, err := system.Root.RequestFuture(pid, &RegisterUserMsg{
		Username: "testuser",
		Phone:    "+15550123456",
		Password: "password123",
	}, 5*time.Second).Result()
	require.NoError(t, err)
	require.IsType(t, &models.User{}, first)

	// Same username, different phone
	dupName, err := system.Root.RequestFuture(pid, &RegisterUserMsg{
		Username: "testuser",
		Phone:    "+15550999999",
		Password: "otherpass",
	}, 5*time.Second).Result()
	require.NoError(t, err)
	appErr, ok := dupName.(*utils.AppError)
	require.True(t, ok, "expected an AppError, got %T", dupName)
	assert.Equal(t, utils.ErrDuplicate, appErr.Code)

	// Same phone, different username
	dupPhone, err := system.Root.RequestFuture(pid, &RegisterUserMsg{
		Username: "otheruser",
		Phone:    "+15550123456",
		Password: "otherpass",
	}, 5*time.Second).Result()
	require.NoError(t, err)
	appErr, ok = dupPhone.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrDuplicate, appErr.Code)
}

func TestPushTokenLifecycle(t *testing.T) {
	system, store, pid := spawnUserActor(t)

	reg, err := system.Root.RequestFuture(pid, &RegisterUserMsg{
		Username: "testuser",
		Phone:    "+15550123456",
		Password: "password123",
	}, 5*time.Second).Result()
	require.NoError(t, err)
	user := reg.(*models.User)

	for _, token := range []string{"device-a", "device-b", "device-a"} {
		result, err := system.Root.RequestFuture(pid, &AddPushTokenMsg{
			UserID: user.ID,
			Token:  token,
		}, 5*time.Second).Result()
		require.NoError(t, err)
		require.IsType(t, &OperationDone{}, result)
	}

	stored, err := store.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"device-a", "device-b"}, stored.PushTokens)

	result, err := system.Root.RequestFuture(pid, &RemovePushTokenMsg{
		UserID: user.ID,
		Token:  "device-a",
	}, 5*time.Second).Result()
	require.NoError(t, err)
	require.IsType(t, &OperationDone{}, result)

	stored, err = store.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"device-b"}, stored.PushTokens)
}

func TestMatchContacts(t *testing.T) {
	system, store, pid := spawnUserActor(t)

	for i, username := range []string{"alice", "bob"} {
		require.NoError(t, store.SaveUser(context.Background(), &models.User{
			ID:       uuid.New(),
			Username: username,
			Phone:    []string{"+15550000001", "+15550000002"}[i],
		}))
	}

	result, err := system.Root.RequestFuture(pid, &MatchContactsMsg{
		Phones: []string{"+15550000002", "+15559999999"},
	}, 5*time.Second).Result()
	require.NoError(t, err)

	matched, ok := result.([]*models.User)
	require.True(t, ok, "expected users, got %T", result)
	require.Len(t, matched, 1)
	assert.Equal(t, "bob", matched[0].Username)
}
