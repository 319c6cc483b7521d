package actors

import (
	stdctx "context"
	"time"

	"sierra/internal/api"
	"sierra/internal/database"
	"sierra/internal/models"
	"sierra/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Message types for the UserActor
type (
	RegisterUserMsg struct {
		Username string
		Phone    string
		Password string
		Bio      string
	}

	LoginMsg struct {
		Username string
		Password string
	}

	GetUserProfileMsg struct {
		UserID uuid.UUID
	}

	UpdateProfileMsg struct {
		UserID    uuid.UUID
		Bio       string
		AvatarURL string
	}

	AddPushTokenMsg struct {
		UserID uuid.UUID
		Token  string
	}

	RemovePushTokenMsg struct {
		UserID uuid.UUID
		Token  string
	}

	AddContactMsg struct {
		UserID  uuid.UUID
		Contact models.Contact
	}

	MatchContactsMsg struct {
		Phones []string
	}

	SearchUsersMsg struct {
		Prefix string
	}

	OperationDone struct{}
)

// UserActor serializes identity operations against the store: registration,
// login, profile updates, push-token registration and contact matching.
type UserActor struct {
	store   database.Store
	log     *zap.SugaredLogger
	timeout time.Duration
}

func NewUserActor(store database.Store, log *zap.SugaredLogger, timeout time.Duration) actor.Actor {
	return &UserActor{
		store:   store,
		log:     log,
		timeout: timeout,
	}
}

func (a *UserActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *RegisterUserMsg:
		a.handleRegister(context, msg)
	case *LoginMsg:
		a.handleLogin(context, msg)
	case *GetUserProfileMsg:
		a.handleGetProfile(context, msg)
	case *UpdateProfileMsg:
		a.handleUpdateProfile(context, msg)
	case *AddPushTokenMsg:
		a.handleAddPushToken(context, msg)
	case *RemovePushTokenMsg:
		a.handleRemovePushToken(context, msg)
	case *AddContactMsg:
		a.handleAddContact(context, msg)
	case *MatchContactsMsg:
		a.handleMatchContacts(context, msg)
	case *SearchUsersMsg:
		a.handleSearchUsers(context, msg)
	}
}

func (a *UserActor) handleRegister(context actor.Context, msg *RegisterUserMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	if msg.Username == "" || msg.Phone == "" || msg.Password == "" {
		context.Respond(utils.NewValidationError("Username, phone and password are required"))
		return
	}

	if existing, _ := a.store.GetUserByUsername(ctx, msg.Username); existing != nil {
		context.Respond(utils.NewAppError(utils.ErrDuplicate, "Username already registered", nil))
		return
	}
	if existing, _ := a.store.GetUserByPhone(ctx, msg.Phone); existing != nil {
		context.Respond(utils.NewAppError(utils.ErrDuplicate, "Phone already registered", nil))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(msg.Password), bcrypt.DefaultCost)
	if err != nil {
		context.Respond(utils.NewDependencyError("Failed to hash password", err))
		return
	}

	bio := msg.Bio
	if bio == "" {
		bio = models.DefaultBio
	}

	user := &models.User{
		ID:             uuid.New(),
		Username:       msg.Username,
		Phone:          msg.Phone,
		HashedPassword: string(hashed),
		Bio:            bio,
		CreatedAt:      time.Now().UTC(),
	}

	if err := a.store.SaveUser(ctx, user); err != nil {
		if appErr, ok := err.(*utils.AppError); ok {
			context.Respond(appErr)
			return
		}
		context.Respond(utils.NewDependencyError("Failed to save user", err))
		return
	}

	a.log.Infow("user registered", "user", user.ID, "username", user.Username)
	context.Respond(user)
}

func (a *UserActor) handleLogin(context actor.Context, msg *LoginMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	user, err := a.store.GetUserByUsername(ctx, msg.Username)
	if err != nil {
		context.Respond(&api.AuthResponse{Success: false, Error: "Invalid username or password."})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(msg.Password)); err != nil {
		context.Respond(&api.AuthResponse{Success: false, Error: "Invalid username or password."})
		return
	}

	context.Respond(&api.AuthResponse{Success: true, UserID: user.ID.String()})
}

func (a *UserActor) handleGetProfile(context actor.Context, msg *GetUserProfileMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	user, err := a.store.GetUser(ctx, msg.UserID)
	if err != nil {
		if appErr, ok := err.(*utils.AppError); ok {
			context.Respond(appErr)
			return
		}
		context.Respond(utils.NewDependencyError("Failed to get user", err))
		return
	}
	context.Respond(user)
}

func (a *UserActor) handleUpdateProfile(context actor.Context, msg *UpdateProfileMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	if err := a.store.UpdateProfile(ctx, msg.UserID, msg.Bio, msg.AvatarURL); err != nil {
		a.respondErr(context, err, "Failed to update profile")
		return
	}
	context.Respond(&OperationDone{})
}

func (a *UserActor) handleAddPushToken(context actor.Context, msg *AddPushTokenMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	if msg.Token == "" {
		context.Respond(utils.NewValidationError("Push token is required"))
		return
	}
	if err := a.store.AddPushToken(ctx, msg.UserID, msg.Token); err != nil {
		a.respondErr(context, err, "Failed to register push token")
		return
	}
	context.Respond(&OperationDone{})
}

func (a *UserActor) handleRemovePushToken(context actor.Context, msg *RemovePushTokenMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	if err := a.store.RemovePushToken(ctx, msg.UserID, msg.Token); err != nil {
		a.respondErr(context, err, "Failed to remove push token")
		return
	}
	context.Respond(&OperationDone{})
}

func (a *UserActor) handleAddContact(context actor.Context, msg *AddContactMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	if msg.Contact.Phone == "" {
		context.Respond(utils.NewValidationError("Contact phone is required"))
		return
	}
	if err := a.store.AddContact(ctx, msg.UserID, msg.Contact); err != nil {
		a.respondErr(context, err, "Failed to save contact")
		return
	}
	context.Respond(&OperationDone{})
}

func (a *UserActor) handleMatchContacts(context actor.Context, msg *MatchContactsMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	users, err := a.store.MatchContacts(ctx, msg.Phones)
	if err != nil {
		context.Respond(utils.NewDependencyError("Failed to match contacts", err))
		return
	}
	context.Respond(users)
}

func (a *UserActor) handleSearchUsers(context actor.Context, msg *SearchUsersMsg) {
	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), a.timeout)
	defer cancel()

	users, err := a.store.SearchUsers(ctx, msg.Prefix, 20)
	if err != nil {
		context.Respond(utils.NewDependencyError("Failed to search users", err))
		return
	}
	context.Respond(users)
}

func (a *UserActor) respondErr(context actor.Context, err error, fallback string) {
	if appErr, ok := err.(*utils.AppError); ok {
		context.Respond(appErr)
		return
	}
	context.Respond(utils.NewDependencyError(fallback, err))
}
