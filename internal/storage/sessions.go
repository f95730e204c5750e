package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"finsight/internal/common"
	"finsight/internal/model"
)

// Get loads a session's conversation context with its turns in order.
func (s *SQLiteStorage) Get(ctx context.Context, sessionID string) (*model.ConversationContext, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}

	var conv model.ConversationContext
	var pending sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, original_query, state, rounds, pending
		 FROM sessions WHERE session_id = ?`, sessionID).
		Scan(&conv.SessionID, &conv.OriginalQuery, &conv.State, &conv.Rounds, &pending)
	if err == sql.ErrNoRows {
		return nil, common.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if pending.Valid && pending.String != "" {
		var classification model.IntentClassification
		if err := json.Unmarshal([]byte(pending.String), &classification); err != nil {
			return nil, fmt.Errorf("failed to decode pending classification: %w", err)
		}
		conv.Pending = &classification
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT type, text, created_at FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var turn model.ConversationTurn
		if err := rows.Scan(&turn.Type, &turn.Text, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		conv.Turns = append(conv.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	return &conv, nil
}

// Save writes the full conversation context in a single transaction,
// replacing any previously stored turns for the session.
func (s *SQLiteStorage) Save(ctx context.Context, conversation *model.ConversationContext) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if conversation == nil || conversation.SessionID == "" {
		return fmt.Errorf("conversation must have a session ID")
	}

	var pending any
	if conversation.Pending != nil {
		data, err := json.Marshal(conversation.Pending)
		if err != nil {
			return fmt.Errorf("failed to encode pending classification: %w", err)
		}
		pending = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, original_query, state, rounds, pending, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
			original_query = excluded.original_query,
			state = excluded.state,
			rounds = excluded.rounds,
			pending = excluded.pending,
			updated_at = excluded.updated_at`,
		conversation.SessionID, conversation.OriginalQuery, string(conversation.State),
		conversation.Rounds, pending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, conversation.SessionID); err != nil {
		return fmt.Errorf("failed to clear previous turns: %w", err)
	}

	for seq, turn := range conversation.Turns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, type, text, created_at) VALUES (?, ?, ?, ?, ?)`,
			conversation.SessionID, seq, string(turn.Type), turn.Text, turn.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert turn %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Clear discards a session's conversation context.
func (s *SQLiteStorage) Clear(ctx context.Context, sessionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// PurgeStale removes contexts whose last update is older than
// maxIdleSeconds and returns how many sessions were removed.
func (s *SQLiteStorage) PurgeStale(ctx context.Context, maxIdleSeconds int) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if maxIdleSeconds <= 0 {
		return 0, fmt.Errorf("maxIdleSeconds must be positive")
	}

	cutoff := time.Now().UTC().Add(-time.Duration(maxIdleSeconds) * time.Second)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM turns WHERE session_id IN
			(SELECT session_id FROM sessions WHERE updated_at < ?)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale turns: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale sessions: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}
	return int(purged), nil
}
