package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sierra/internal/models"
	"sierra/internal/utils"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and for running the server
// without MongoDB. It enforces the same uniqueness rules as the Mongo
// indexes.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	messages []*models.Message
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[uuid.UUID]*models.User)}
}

// cloneUser copies the user including its token and contact slices so that
// returned snapshots never alias the stored record.
func cloneUser(u *models.User) *models.User {
	clone := *u
	clone.PushTokens = append([]string(nil), u.PushTokens...)
	clone.Contacts = append([]models.Contact(nil), u.Contacts...)
	return &clone
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID != user.ID && (u.Username == user.Username || u.Phone == user.Phone) {
			return utils.NewAppError(utils.ErrDuplicate, "Username or phone already registered", nil)
		}
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, utils.NewUserNotFoundError(id.String())
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
}

func (s *MemoryStore) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == phone {
			return cloneUser(u), nil
		}
	}
	return nil, utils.NewAppError(utils.ErrUserNotFound, "User not found", nil)
}

func (s *MemoryStore) SearchUsers(ctx context.Context, prefix string, limit int64) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.User
	for _, u := range s.users {
		if strings.HasPrefix(u.Username, prefix) {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, id uuid.UUID, bio, avatarURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return utils.NewUserNotFoundError(id.String())
	}
	if bio != "" {
		u.Bio = bio
	}
	if avatarURL != "" {
		u.AvatarURL = avatarURL
	}
	return nil
}

func (s *MemoryStore) AddPushToken(ctx context.Context, id uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return utils.NewUserNotFoundError(id.String())
	}
	for _, t := range u.PushTokens {
		if t == token {
			return nil
		}
	}
	u.PushTokens = append(u.PushTokens, token)
	return nil
}

func (s *MemoryStore) RemovePushToken(ctx context.Context, id uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return utils.NewUserNotFoundError(id.String())
	}
	kept := make([]string, 0, len(u.PushTokens))
	for _, t := range u.PushTokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	u.PushTokens = kept
	return nil
}

func (s *MemoryStore) AddContact(ctx context.Context, id uuid.UUID, contact models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return utils.NewUserNotFoundError(id.String())
	}
	u.Contacts = append(u.Contacts, contact)
	return nil
}

func (s *MemoryStore) MatchContacts(ctx context.Context, phones []string) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.User
	for _, phone := range phones {
		for _, u := range s.users {
			if u.Phone == phone {
				out = append(out, cloneUser(u))
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return utils.NewUserNotFoundError(id.String())
	}
	delete(s.users, id)
	return nil
}

func (s *MemoryStore) SaveMessage(ctx context.Context, senderID, receiverID uuid.UUID, body, mediaURL string, mediaKind models.MediaKind) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if body == "" && mediaURL == "" {
		return nil, utils.NewValidationError("Message needs a body or media")
	}
	if _, ok := s.users[senderID]; !ok {
		return nil, utils.NewUserNotFoundError(senderID.String())
	}
	if _, ok := s.users[receiverID]; !ok {
		return nil, utils.NewUserNotFoundError(receiverID.String())
	}
	msg := &models.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		MediaURL:   mediaURL,
		MediaKind:  mediaKind,
		SentAt:     time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, userA, userB uuid.UUID) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := PairKey(userA, userB)
	out := []*models.Message{}
	for _, m := range s.messages {
		if PairKey(m.SenderID, m.ReceiverID) == key {
			clone := *m
			out = append(out, &clone)
		}
	}
	// Ascending by send time, ties kept in insertion order to match the
	// Mongo sort.
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (s *MemoryStore) LatestPerConversation(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[string]*models.Message)
	unread := make(map[string]int64)
	for _, m := range s.messages {
		if m.SenderID != userID && m.ReceiverID != userID {
			continue
		}
		key := PairKey(m.SenderID, m.ReceiverID)
		// Later insertions win timestamp ties, matching persisted order.
		if cur, ok := latest[key]; !ok || !m.SentAt.Before(cur.SentAt) {
			clone := *m
			latest[key] = &clone
		}
		if m.ReceiverID == userID && !m.IsRead {
			unread[key]++
		}
	}
	var out []models.ConversationSummary
	for key, m := range latest {
		out = append(out, models.ConversationSummary{Message: m, UnreadCount: unread[key]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Message.SentAt.After(out[j].Message.SentAt) })
	return out, nil
}

func (s *MemoryStore) CountUnread(ctx context.Context, fromID, toID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.SenderID == fromID && m.ReceiverID == toID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) MarkConversationRead(ctx context.Context, fromID, toID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.SenderID == fromID && m.ReceiverID == toID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteConversation(ctx context.Context, userA, userB uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := PairKey(userA, userB)
	var n int64
	kept := s.messages[:0]
	for _, m := range s.messages {
		if PairKey(m.SenderID, m.ReceiverID) == key {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	return n, nil
}

func (s *MemoryStore) DeleteUserMessages(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.SenderID == userID || m.ReceiverID == userID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	return n, nil
}
