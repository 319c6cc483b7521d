// internal/database/user_repository.go
package database

import (
	"context"
	"fmt"
	"time"

	"sierra/internal/models"
	"sierra/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserDocument represents the MongoDB schema for a user
type UserDocument struct {
	ID             string            `bson:"_id"`            // MongoDB primary key
	Username       string            `bson:"username"`       // Unique handle
	Phone          string            `bson:"phone"`          // Unique phone number
	HashedPassword string            `bson:"hashedPassword"` // Hashed password
	Bio            string            `bson:"bio"`            // Profile bio
	AvatarURL      string            `bson:"avatarUrl"`      // Profile photo URL
	PushTokens     []string          `bson:"pushTokens"`     // Registered push-delivery tokens
	Contacts       []ContactDocument `bson:"contacts"`       // Saved phone-book contacts
	CreatedAt      time.Time         `bson:"createdAt"`      // Account creation timestamp
}

type ContactDocument struct {
	Phone       string `bson:"phone"`
	DisplayName string `bson:"displayName"`
}

func userToDocument(user *models.User) UserDocument {
	doc := UserDocument{
		ID:             user.ID.String(),
		Username:       user.Username,
		Phone:          user.Phone,
		HashedPassword: user.HashedPassword,
		Bio:            user.Bio,
		AvatarURL:      user.AvatarURL,
		PushTokens:     user.PushTokens,
		Contacts:       make([]ContactDocument, len(user.Contacts)),
		CreatedAt:      user.CreatedAt,
	}
	for i, c := range user.Contacts {
		doc.Contacts[i] = ContactDocument{Phone: c.Phone, DisplayName: c.DisplayName}
	}
	return doc
}

func documentToUser(doc *UserDocument) (*models.User, error) {
	userID, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in database: %v", err)
	}

	contacts := make([]models.Contact, len(doc.Contacts))
	for i, c := range doc.Contacts {
		contacts[i] = models.Contact{Phone: c.Phone, DisplayName: c.DisplayName}
	}

	return &models.User{
		ID:             userID,
		Username:       doc.Username,
		Phone:          doc.Phone,
		HashedPassword: doc.HashedPassword,
		Bio:            doc.Bio,
		AvatarURL:      doc.AvatarURL,
		PushTokens:     doc.PushTokens,
		Contacts:       contacts,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

// SaveUser creates or updates a user in MongoDB. Uniqueness violations on
// username or phone surface as a DUPLICATE application error.
func (m *MongoDB) SaveUser(ctx context.Context, user *models.User) error {
	doc := userToDocument(user)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": user.ID.String()}
	update := bson.M{"$set": doc}

	_, err := m.Users.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewAppError(utils.ErrDuplicate, "Username or phone already registered", err)
	}
	return err
}

// GetUser retrieves a user from MongoDB by their ID
func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var doc UserDocument

	err := m.Users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", err)
	}
	if err != nil {
		return nil, err
	}

	return documentToUser(&doc)
}

// GetUserByUsername retrieves a user from MongoDB by their unique handle
func (m *MongoDB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var doc UserDocument

	err := m.Users.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", err)
	}
	if err != nil {
		return nil, err
	}

	return documentToUser(&doc)
}

// GetUserByPhone retrieves a user from MongoDB by their phone number
func (m *MongoDB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var doc UserDocument

	err := m.Users.FindOne(ctx, bson.M{"phone": phone}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", err)
	}
	if err != nil {
		return nil, err
	}

	return documentToUser(&doc)
}

// SearchUsers finds users whose username starts with the given prefix
func (m *MongoDB) SearchUsers(ctx context.Context, prefix string, limit int64) ([]*models.User, error) {
	filter := bson.M{"username": bson.M{"$regex": "^" + prefix}}

	cursor, err := m.Users.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		user, err := documentToUser(&doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, cursor.Err()
}

// UpdateProfile updates a user's bio and avatar
func (m *MongoDB) UpdateProfile(ctx context.Context, id uuid.UUID, bio, avatarURL string) error {
	set := bson.M{}
	if bio != "" {
		set["bio"] = bio
	}
	if avatarURL != "" {
		set["avatarUrl"] = avatarURL
	}
	if len(set) == 0 {
		return nil
	}

	result, err := m.Users.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
	}
	return nil
}

// AddPushToken registers a push-delivery token under a user. Adding the same
// token twice is a no-op.
func (m *MongoDB) AddPushToken(ctx context.Context, id uuid.UUID, token string) error {
	result, err := m.Users.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$addToSet": bson.M{"pushTokens": token}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
	}
	return nil
}

// RemovePushToken removes a push-delivery token from a user
func (m *MongoDB) RemovePushToken(ctx context.Context, id uuid.UUID, token string) error {
	result, err := m.Users.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$pull": bson.M{"pushTokens": token}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
	}
	return nil
}

// AddContact saves a phone-book entry under a user
func (m *MongoDB) AddContact(ctx context.Context, id uuid.UUID, contact models.Contact) error {
	doc := ContactDocument{Phone: contact.Phone, DisplayName: contact.DisplayName}
	result, err := m.Users.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$addToSet": bson.M{"contacts": doc}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
	}
	return nil
}

// MatchContacts returns the registered users whose phone number appears in
// the given list, used for phone-book matching.
func (m *MongoDB) MatchContacts(ctx context.Context, phones []string) ([]*models.User, error) {
	if len(phones) == 0 {
		return []*models.User{}, nil
	}

	cursor, err := m.Users.Find(ctx, bson.M{"phone": bson.M{"$in": phones}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		user, err := documentToUser(&doc)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, cursor.Err()
}

// DeleteUser removes a user record. Message cleanup is handled separately by
// DeleteUserMessages; the two deletes are sequential, not transactional.
func (m *MongoDB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := m.Users.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
	}
	return nil
}
