package handlers

import (
	"encoding/json"
	"net/http"

	"sierra/internal/engine/actors"
	"sierra/internal/middleware"
	"sierra/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// SendMessageRequest represents a request to send a direct message
type SendMessageRequest struct {
	ReceiverID string           `json:"receiverId"`
	Body       string           `json:"body,omitempty"`
	MediaURL   string           `json:"mediaUrl,omitempty"`
	MediaKind  models.MediaKind `json:"mediaKind,omitempty"`
}

// HandleSendMessage persists a message from the caller and triggers
// live fan-out and push dispatch.
func (s *Server) HandleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senderID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		receiverID, err := uuid.Parse(req.ReceiverID)
		if err != nil {
			http.Error(w, "Invalid receiver ID", http.StatusBadRequest)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetDeliveryActor(), &actors.SendMessageMsg{
			SenderID:   senderID,
			ReceiverID: receiverID,
			Body:       req.Body,
			MediaURL:   req.MediaURL,
			MediaKind:  req.MediaKind,
		})
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusCreated, result)
	}
}

// HandleMarkRead acknowledges a conversation: every unread message sent by
// the counterpart to the caller is flipped to read.
func (s *Server) HandleMarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			FromUserID string `json:"fromUserId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		fromID, err := uuid.Parse(req.FromUserID)
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetDeliveryActor(), &actors.MarkReadMsg{
			FromID: fromID,
			ToID:   userID,
		})
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// HandleGetConversation returns the full history between the caller and
// the user in the path, oldest first.
func (s *Server) HandleGetConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		otherID, err := uuid.Parse(mux.Vars(r)["userId"])
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetDeliveryActor(), &actors.GetConversationMsg{
			UserA: userID,
			UserB: otherID,
		})
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// HandleDeleteConversation removes every message between the caller and
// the user in the path, for both sides.
func (s *Server) HandleDeleteConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		otherID, err := uuid.Parse(mux.Vars(r)["userId"])
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetDeliveryActor(), &actors.DeleteConversationMsg{
			UserA: userID,
			UserB: otherID,
		})
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// HandleGetInbox returns one entry per conversation the caller takes part
// in: the latest message plus the caller's unread count, newest first.
func (s *Server) HandleGetInbox() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetDeliveryActor(), &actors.GetInboxMsg{UserID: userID})
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}
