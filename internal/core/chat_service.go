package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound is returned when a chat session id is unknown.
var ErrSessionNotFound = errors.New("chat session not found")

// ChatMessage is one turn in a customer conversation. CaseID links an
// assistant message to the case it opened, when any.
type ChatMessage struct {
	ID        int       `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CaseID    *string   `json:"case_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatService persists customer chat sessions and their messages.
type ChatService interface {
	CreateSession(ctx context.Context) (string, error)
	AddMessage(ctx context.Context, sessionID, role, content string, caseID *string) error
	GetMessages(ctx context.Context, sessionID string) ([]ChatMessage, error)
}

type chatService struct {
	pool *pgxpool.Pool
}

// NewChatService constructs a ChatService backed by the chat_sessions and
// chat_messages tables.
func NewChatService(pool *pgxpool.Pool) ChatService {
	return &chatService{pool: pool}
}

func (s *chatService) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, "INSERT INTO chat_sessions (id) VALUES ($1)", id)
	if err != nil {
		return "", fmt.Errorf("failed to create chat session: %w", err)
	}
	return id, nil
}

func (s *chatService) AddMessage(ctx context.Context, sessionID, role, content string, caseID *string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM chat_sessions WHERE id = $1)", sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check chat session %s: %w", sessionID, err)
	}
	if !exists {
		return ErrSessionNotFound
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO chat_messages (session_id, role, content, case_id)
		VALUES ($1, $2, $3, $4)
	`, sessionID, role, content, caseID)
	if err != nil {
		return fmt.Errorf("failed to store chat message: %w", err)
	}
	return nil
}

func (s *chatService) GetMessages(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, case_id, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CaseID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chat messages: %w", err)
	}
	return msgs, nil
}
