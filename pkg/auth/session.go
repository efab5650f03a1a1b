package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/usos-inventory/server/pkg/usos"
)

const (
	sessionKeyPrefix = "session:"
	stateKeyPrefix   = "oauth_state:"

	// SessionCookie carries the server-side session id for web clients
	SessionCookie = "inv_session"
	// StateCookie ties the browser to its in-flight handshake state
	StateCookie = "inv_oauth_state"
)

// LoginState is the ephemeral handshake state held between the
// authorization redirect and the callback: the temporary request
// credential plus the channel hint captured at handshake start. It is
// consumed exactly once on callback.
type LoginState struct {
	Temp    usos.RequestCredential `json:"temp"`
	Channel Channel                `json:"channel"`
}

// SessionManager manages server-side sessions and handshake state in
// Redis. TTLs bound both; expired entries simply vanish.
type SessionManager struct {
	client     *redis.Client
	sessionTTL time.Duration
	stateTTL   time.Duration
}

// NewSessionManager creates a new session manager
func NewSessionManager(client *redis.Client, sessionTTL, stateTTL time.Duration) *SessionManager {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	return &SessionManager{client: client, sessionTTL: sessionTTL, stateTTL: stateTTL}
}

// CreateSession establishes a session for a principal, keeping the
// profile snapshot captured at login for the diagnostic endpoint.
func (m *SessionManager) CreateSession(ctx context.Context, userID int64, profile json.RawMessage) (string, error) {
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Profile:   profile,
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := m.client.Set(ctx, sessionKeyPrefix+session.ID, payload, m.sessionTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return session.ID, nil
}

// GetSession retrieves a live session by id
func (m *SessionManager) GetSession(ctx context.Context, id string) (*Session, error) {
	payload, err := m.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if err != nil {
		return nil, err
	}
	session := &Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return session, nil
}

// DeleteSession flushes a session; logout calls this
func (m *SessionManager) DeleteSession(ctx context.Context, id string) error {
	return m.client.Del(ctx, sessionKeyPrefix+id).Err()
}

// CreateLoginState stores handshake state and returns its opaque id
func (m *SessionManager) CreateLoginState(ctx context.Context, state *LoginState) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal login state: %w", err)
	}
	if err := m.client.Set(ctx, stateKeyPrefix+id, payload, m.stateTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to store login state: %w", err)
	}
	return id, nil
}

// ConsumeLoginState retrieves and discards handshake state. The
// temporary credential is single-use: once exchanged it must not be
// replayable.
func (m *SessionManager) ConsumeLoginState(ctx context.Context, id string) (*LoginState, error) {
	key := stateKeyPrefix + id
	payload, err := m.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	m.client.Del(ctx, key)

	state := &LoginState{}
	if err := json.Unmarshal(payload, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal login state: %w", err)
	}
	return state, nil
}
