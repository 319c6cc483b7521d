package handlers

import (
	"encoding/json"
	"net/http"

	"sierra/internal/api"
	"sierra/internal/engine/actors"
	"sierra/internal/middleware"
	"sierra/internal/models"

	"github.com/google/uuid"
)

// RegisterRequest represents a request to register a new user
type RegisterRequest struct {
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Bio      string `json:"bio,omitempty"`
}

// LoginRequest represents a request to log in a user
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister handles requests to register a new user
func (s *Server) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetUserActor(), &actors.RegisterUserMsg{
			Username: req.Username,
			Phone:    req.Phone,
			Password: req.Password,
			Bio:      req.Bio,
		})
		if !ok {
			return
		}

		user, ok := result.(*models.User)
		if !ok {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		token, err := s.Auth.GenerateToken(user.ID)
		if err != nil {
			http.Error(w, "Failed to generate auth token", http.StatusInternalServerError)
			return
		}

		s.writeJSON(w, http.StatusCreated, &api.AuthResponse{
			Success: true,
			Token:   token,
			UserID:  user.ID.String(),
		})
	}
}

// HandleLogin handles requests to log in a user
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetUserActor(), &actors.LoginMsg{
			Username: req.Username,
			Password: req.Password,
		})
		if !ok {
			return
		}

		loginResp, ok := result.(*api.AuthResponse)
		if !ok {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if !loginResp.Success {
			s.writeJSON(w, http.StatusUnauthorized, loginResp)
			return
		}

		userID, err := uuid.Parse(loginResp.UserID)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		token, err := s.Auth.GenerateToken(userID)
		if err != nil {
			http.Error(w, "Failed to generate auth token", http.StatusInternalServerError)
			return
		}
		loginResp.Token = token

		s.writeJSON(w, http.StatusOK, loginResp)
	}
}

// HandleGetProfile returns the authenticated caller's profile
func (s *Server) HandleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetUserActor(), &actors.GetUserProfileMsg{UserID: userID})
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// HandleUpdateProfile updates the caller's bio and avatar
func (s *Server) HandleUpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			Bio       string `json:"bio"`
			AvatarURL string `json:"avatarUrl"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		if _, ok := s.requestActor(w, s.Engine.GetUserActor(), &actors.UpdateProfileMsg{
			UserID:    userID,
			Bio:       req.Bio,
			AvatarURL: req.AvatarURL,
		}); !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// HandleSearchUsers finds users by username prefix
func (s *Server) HandleSearchUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("q")
		if prefix == "" {
			http.Error(w, "Query parameter q required", http.StatusBadRequest)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetUserActor(), &actors.SearchUsersMsg{Prefix: prefix})
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// HandleAddContact saves a phone-book entry for the caller
func (s *Server) HandleAddContact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req models.Contact
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		if _, ok := s.requestActor(w, s.Engine.GetUserActor(), &actors.AddContactMsg{
			UserID:  userID,
			Contact: req,
		}); !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// HandleMatchContacts returns the registered users among the posted phones
func (s *Server) HandleMatchContacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Phones []string `json:"phones"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetUserActor(), &actors.MatchContactsMsg{Phones: req.Phones})
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}

// HandleAddPushToken registers a push-delivery token for the caller
func (s *Server) HandleAddPushToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		if _, ok := s.requestActor(w, s.Engine.GetUserActor(), &actors.AddPushTokenMsg{
			UserID: userID,
			Token:  req.Token,
		}); !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// HandleRemovePushToken removes a push-delivery token for the caller
func (s *Server) HandleRemovePushToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		if _, ok := s.requestActor(w, s.Engine.GetUserActor(), &actors.RemovePushTokenMsg{
			UserID: userID,
			Token:  req.Token,
		}); !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// HandleDeleteAccount deletes the caller's account and cascades to all
// messages where the caller is sender or receiver.
func (s *Server) HandleDeleteAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		result, ok := s.requestActor(w, s.Engine.GetDeliveryActor(), &actors.DeleteAccountMsg{UserID: userID})
		if !ok {
			return
		}
		s.writeJSON(w, http.StatusOK, result)
	}
}
