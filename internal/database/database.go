// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"time"

	"sierra/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store defines the persistence operations consumed by the engine actors.
// MongoDB is the only backend; the interface exists so router tests can run
// against an in-memory fake.
type Store interface {
	Close(ctx context.Context) error

	// User methods
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	SearchUsers(ctx context.Context, prefix string, limit int64) ([]*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, bio, avatarURL string) error
	AddPushToken(ctx context.Context, id uuid.UUID, token string) error
	RemovePushToken(ctx context.Context, id uuid.UUID, token string) error
	AddContact(ctx context.Context, id uuid.UUID, contact models.Contact) error
	MatchContacts(ctx context.Context, phones []string) ([]*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	// Message methods
	SaveMessage(ctx context.Context, senderID, receiverID uuid.UUID, body, mediaURL string, mediaKind models.MediaKind) (*models.Message, error)
	GetConversation(ctx context.Context, userA, userB uuid.UUID) ([]*models.Message, error)
	LatestPerConversation(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error)
	CountUnread(ctx context.Context, fromID, toID uuid.UUID) (int64, error)
	MarkConversationRead(ctx context.Context, fromID, toID uuid.UUID) (int64, error)
	DeleteConversation(ctx context.Context, userA, userB uuid.UUID) (int64, error)
	DeleteUserMessages(ctx context.Context, userID uuid.UUID) (int64, error)
}

type MongoDB struct {
	Client   *mongo.Client
	Users    *mongo.Collection
	Messages *mongo.Collection
}

var _ Store = (*MongoDB)(nil)

func NewMongoDB(uri, name string) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	db := client.Database(name)
	m := &MongoDB{
		Client:   client,
		Users:    db.Collection("users"),
		Messages: db.Collection("messages"),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return m, nil
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	_, err := m.Users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	// Conversation history and latest-per-conversation both query by pair key.
	_, err = m.Messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "pairKey", Value: 1}, {Key: "sentAt", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "isRead", Value: 1}}},
	})
	return err
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// PairKey canonicalizes an unordered user pair into a single conversation key.
// The two IDs are sorted lexicographically so both directions map to one key.
func PairKey(userA, userB uuid.UUID) string {
	a, b := userA.String(), userB.String()
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
