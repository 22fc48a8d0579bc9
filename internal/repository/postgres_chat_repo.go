package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/goalcoach/internal/model"
)

// PostgresChatRepo はPostgreSQLを使用したチャットリポジトリ。
type PostgresChatRepo struct {
	db *sql.DB
}

// NewPostgresChatRepo はPostgresChatRepoを生成する。
func NewPostgresChatRepo(db *sql.DB) *PostgresChatRepo {
	return &PostgresChatRepo{db: db}
}

// FindSessionByID はセッションIDと所有者IDでセッションを取得する。
// 見つからない場合はnilを返す。
func (r *PostgresChatRepo) FindSessionByID(ctx context.Context, sessionID, userID string) (*model.ChatSession, error) {
	session := &model.ChatSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM chat_sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID,
	).Scan(&session.ID, &session.UserID, &session.Title, &session.CreatedAt, &session.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat session: %w", err)
	}

	return session, nil
}

// CreateSession はチャットセッションを作成する。
// 同一IDの行が既に存在する場合はErrDuplicateを返す。
func (r *PostgresChatRepo) CreateSession(ctx context.Context, session *model.ChatSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.ID, session.UserID, session.Title, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("chat session %s: %w", session.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert chat session: %w", err)
	}
	return nil
}

// CountSessionsByUserID はユーザーのセッション数を返す。
func (r *PostgresChatRepo) CountSessionsByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chat sessions: %w", err)
	}
	return count, nil
}

// CreateMessage はメッセージを作成し、採番されたpositionを書き戻す。
// positionはBIGSERIALで採番され、セッション内の挿入順序を定める。
func (r *PostgresChatRepo) CreateMessage(ctx context.Context, message *model.Message) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages (id, session_id, sender, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING position`,
		message.ID, message.SessionID, message.Sender, message.Role,
		message.Content, message.CreatedAt,
	).Scan(&message.Position)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListMessagesBySessionID はセッションの全メッセージを挿入順に返す。
func (r *PostgresChatRepo) ListMessagesBySessionID(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, position, sender, role, content, created_at
		 FROM messages WHERE session_id = $1 ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListRecentMessages はセッションの直近limit件を時系列順（古い→新しい）で返す。
func (r *PostgresChatRepo) ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, position, sender, role, content, created_at
		 FROM (
		     SELECT id, session_id, position, sender, role, content, created_at
		     FROM messages WHERE session_id = $1 ORDER BY position DESC LIMIT $2
		 ) recent
		 ORDER BY position`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// CountMessagesByUserID はユーザーの全セッション合計のメッセージ数を返す。
func (r *PostgresChatRepo) CountMessagesByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM messages m
		 JOIN chat_sessions s ON s.id = m.session_id
		 WHERE s.user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	var messages []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Position, &m.Sender,
			&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// compile-time interface check
var _ ChatRepository = (*PostgresChatRepo)(nil)
