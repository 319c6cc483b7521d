// Package seed populates a running server with fixture users and
// conversations through its public HTTP API.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Config controls what the seeder creates and where it sends requests.
type Config struct {
	ServerURL string
	Timeout   time.Duration
}

type fixtureUser struct {
	Username string
	Phone    string
	Password string
	Bio      string
}

type fixtureMessage struct {
	From int
	To   int
	Body string
}

var fixtureUsers = []fixtureUser{
	{"johndoe", "+15550100001", "password123", "Hello, I'm John! I love coding and hiking."},
	{"janedoe", "+15550100002", "securepass456", "Hi there! Jane here. I enjoy painting and exploring new cuisines."},
	{"mikesmith", "+15550100003", "mypassword789", "Mike here. A tech enthusiast and avid gamer."},
	{"emilyjones", "+15550100004", "emilypass321", "Emily's the name! Coffee lover and bookworm."},
	{"sarahbrown", "+15550100005", "sarahsecure1", "Sarah here. Passionate about fitness and photography."},
}

var fixtureMessages = []fixtureMessage{
	{0, 1, "Hey Jane, how are you doing?"},
	{1, 0, "I'm good, John! How about you?"},
	{2, 3, "Hey Emily, have you tried that new gaming console?"},
	{3, 2, "Not yet, Mike! I'm planning to check it out this weekend."},
	{0, 4, "Hi Sarah, long time no see! How's life?"},
	{4, 0, "Hey John, everything's going great! How about you?"},
	{3, 1, "Hi Jane! I saw your latest painting, it's amazing!"},
	{1, 3, "Thank you, Emily! That means a lot to me."},
}

type seededUser struct {
	ID    string
	Token string
}

// Seeder registers the fixture users and replays the fixture conversations.
type Seeder struct {
	config Config
	client *http.Client
	users  []seededUser
}

func NewSeeder(config Config) *Seeder {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Seeder{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Run creates all fixture users and then sends the fixture messages. Users
// that already exist are logged in instead, so the seeder is re-runnable.
func (s *Seeder) Run(ctx context.Context) error {
	log.Printf("Seeding %d users against %s...", len(fixtureUsers), s.config.ServerURL)
	for _, u := range fixtureUsers {
		seeded, err := s.registerOrLogin(ctx, u)
		if err != nil {
			return fmt.Errorf("seeding user %s: %w", u.Username, err)
		}
		s.users = append(s.users, seeded)
		log.Printf("User %s ready (%s)", u.Username, seeded.ID)
	}

	log.Printf("Seeding %d messages...", len(fixtureMessages))
	for _, m := range fixtureMessages {
		sender := s.users[m.From]
		receiver := s.users[m.To]
		if err := s.sendMessage(ctx, sender, receiver.ID, m.Body); err != nil {
			return fmt.Errorf("seeding message from %s: %w", fixtureUsers[m.From].Username, err)
		}
	}

	log.Printf("Seeding completed successfully")
	return nil
}

type authResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	UserID  string `json:"userId"`
	Error   string `json:"error"`
}

func (s *Seeder) registerOrLogin(ctx context.Context, u fixtureUser) (seededUser, error) {
	var resp authResponse
	status, err := s.postJSON(ctx, "/register", "", map[string]string{
		"username": u.Username,
		"phone":    u.Phone,
		"password": u.Password,
		"bio":      u.Bio,
	}, &resp)
	if err != nil {
		return seededUser{}, err
	}
	if status == http.StatusCreated {
		return seededUser{ID: resp.UserID, Token: resp.Token}, nil
	}

	// Already registered from a previous run, fall back to login.
	status, err = s.postJSON(ctx, "/login", "", map[string]string{
		"username": u.Username,
		"password": u.Password,
	}, &resp)
	if err != nil {
		return seededUser{}, err
	}
	if status != http.StatusOK || !resp.Success {
		return seededUser{}, fmt.Errorf("login failed with status %d: %s", status, resp.Error)
	}
	return seededUser{ID: resp.UserID, Token: resp.Token}, nil
}

func (s *Seeder) sendMessage(ctx context.Context, sender seededUser, receiverID, body string) error {
	status, err := s.postJSON(ctx, "/messages", sender.Token, map[string]string{
		"receiverId": receiverID,
		"body":       body,
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

func (s *Seeder) postJSON(ctx context.Context, path, token string, payload, out any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.ServerURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
