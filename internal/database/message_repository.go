package database

import (
	"context"
	"fmt"
	"time"

	"sierra/internal/models"
	"sierra/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageDocument represents the MongoDB document structure for messages
type MessageDocument struct {
	ID         string             `bson:"_id"`
	Seq        primitive.ObjectID `bson:"seq"`
	SenderID   string             `bson:"senderId"`
	ReceiverID string             `bson:"receiverId"`
	PairKey    string             `bson:"pairKey"`
	Body       string             `bson:"body"`
	MediaURL   string             `bson:"mediaUrl,omitempty"`
	MediaKind  string             `bson:"mediaKind,omitempty"`
	SentAt     time.Time          `bson:"sentAt"`
	IsRead     bool               `bson:"isRead"`
}

func documentToMessage(doc *MessageDocument) (*models.Message, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid message ID in database: %v", err)
	}
	senderID, err := uuid.Parse(doc.SenderID)
	if err != nil {
		return nil, fmt.Errorf("invalid sender ID in database: %v", err)
	}
	receiverID, err := uuid.Parse(doc.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("invalid receiver ID in database: %v", err)
	}

	return &models.Message{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       doc.Body,
		MediaURL:   doc.MediaURL,
		MediaKind:  models.MediaKind(doc.MediaKind),
		SentAt:     doc.SentAt,
		IsRead:     doc.IsRead,
	}, nil
}

// SaveMessage persists a new message with a server-assigned timestamp and
// isRead=false. Fails with INVALID_INPUT when both body and media are empty
// and with USER_NOT_FOUND when either participant does not exist.
func (m *MongoDB) SaveMessage(ctx context.Context, senderID, receiverID uuid.UUID, body, mediaURL string, mediaKind models.MediaKind) (*models.Message, error) {
	if body == "" && mediaURL == "" {
		return nil, utils.NewValidationError("Message requires a body or media")
	}

	count, err := m.Users.CountDocuments(ctx, bson.M{
		"_id": bson.M{"$in": []string{senderID.String(), receiverID.String()}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve participants: %v", err)
	}
	want := int64(2)
	if senderID == receiverID {
		want = 1
	}
	if count < want {
		return nil, utils.NewAppError(utils.ErrUserNotFound, "Sender or receiver does not exist", nil)
	}

	message := &models.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		MediaURL:   mediaURL,
		MediaKind:  mediaKind,
		SentAt:     time.Now().UTC(),
		IsRead:     false,
	}

	doc := MessageDocument{
		ID: message.ID.String(),
		// ObjectIDs carry a timestamp plus an in-process counter, giving
		// timestamp ties a stable insertion-order tie-break the random
		// UUID _id cannot.
		Seq:        primitive.NewObjectID(),
		SenderID:   message.SenderID.String(),
		ReceiverID: message.ReceiverID.String(),
		PairKey:    PairKey(senderID, receiverID),
		Body:       message.Body,
		MediaURL:   message.MediaURL,
		MediaKind:  string(message.MediaKind),
		SentAt:     message.SentAt,
		IsRead:     message.IsRead,
	}

	if _, err := m.Messages.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save message: %v", err)
	}

	return message, nil
}

// GetConversation retrieves all messages exchanged between two users in both
// directions, ascending by send time. Returns an empty slice when none exist.
func (m *MongoDB) GetConversation(ctx context.Context, userA, userB uuid.UUID) ([]*models.Message, error) {
	filter := bson.M{"pairKey": PairKey(userA, userB)}
	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: 1}, {Key: "seq", Value: 1}})

	cursor, err := m.Messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %v", err)
	}
	defer cursor.Close(ctx)

	messages := []*models.Message{}
	for cursor.Next(ctx) {
		var doc MessageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode message: %v", err)
		}
		message, err := documentToMessage(&doc)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, cursor.Err()
}

// LatestPerConversation returns, for each counterpart the user has exchanged
// messages with, the most recent message plus the count of messages from that
// counterpart not yet read. Top-1 per pair key, ordered by recency descending.
func (m *MongoDB) LatestPerConversation(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	uid := userID.String()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"$or": []bson.M{{"senderId": uid}, {"receiverId": uid}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "sentAt", Value: -1}, {Key: "seq", Value: -1}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id": "$pairKey",
			"doc": bson.M{"$first": "$$ROOT"},
			"unread": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$receiverId", uid}},
					bson.M{"$eq": bson.A{"$isRead", false}},
				}},
				1,
				0,
			}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"doc.sentAt": -1}}},
	}

	cursor, err := m.Messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate conversations: %v", err)
	}
	defer cursor.Close(ctx)

	summaries := []models.ConversationSummary{}
	for cursor.Next(ctx) {
		var row struct {
			Doc    MessageDocument `bson:"doc"`
			Unread int64           `bson:"unread"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode conversation summary: %v", err)
		}
		message, err := documentToMessage(&row.Doc)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, models.ConversationSummary{
			Message:     message,
			UnreadCount: row.Unread,
		})
	}

	return summaries, cursor.Err()
}

// CountUnread returns the number of unread messages sent from one user to
// another.
func (m *MongoDB) CountUnread(ctx context.Context, fromID, toID uuid.UUID) (int64, error) {
	return m.Messages.CountDocuments(ctx, bson.M{
		"senderId":   fromID.String(),
		"receiverId": toID.String(),
		"isRead":     false,
	})
}

// MarkConversationRead flips isRead on all unread messages from one user to
// another. Idempotent: a repeat call modifies zero documents.
func (m *MongoDB) MarkConversationRead(ctx context.Context, fromID, toID uuid.UUID) (int64, error) {
	result, err := m.Messages.UpdateMany(ctx,
		bson.M{
			"senderId":   fromID.String(),
			"receiverId": toID.String(),
			"isRead":     false,
		},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %v", err)
	}
	return result.ModifiedCount, nil
}

// DeleteConversation removes all messages in the unordered pair, both
// directions, and returns the number removed.
func (m *MongoDB) DeleteConversation(ctx context.Context, userA, userB uuid.UUID) (int64, error) {
	result, err := m.Messages.DeleteMany(ctx, bson.M{"pairKey": PairKey(userA, userB)})
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversation: %v", err)
	}
	return result.DeletedCount, nil
}

// DeleteUserMessages removes every message where the user is sender or
// receiver, used by the account-deletion cascade.
func (m *MongoDB) DeleteUserMessages(ctx context.Context, userID uuid.UUID) (int64, error) {
	uid := userID.String()
	result, err := m.Messages.DeleteMany(ctx, bson.M{
		"$or": []bson.M{{"senderId": uid}, {"receiverId": uid}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete user messages: %v", err)
	}
	return result.DeletedCount, nil
}
