package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/messagely/apiserver/types"
)

// MessageRepository handles persistence for messages.
type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message types.Message) (types.Message, error) {
	message.SentAt = time.Now()
	message.ReadAt = nil

	const query = `
		INSERT INTO messages (from_username, to_username, body, sent_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		message.FromUsername,
		message.ToUsername,
		message.Body,
		message.SentAt,
	).Scan(&message.ID); err != nil {
		return types.Message{}, mapError(err)
	}
	return message, nil
}

// GetByID returns a message with both participant profiles joined in.
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (types.MessageDetail, error) {
	const query = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
			f.username, f.first_name, f.last_name, f.phone,
			t.username, t.first_name, t.last_name, t.phone
		FROM messages AS m
		JOIN users AS f ON f.username = m.from_username
		JOIN users AS t ON t.username = m.to_username
		WHERE m.id = $1`
	var detail types.MessageDetail
	var readAt sql.NullTime
	var fromUser, toUser types.UserProfile
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&detail.ID,
		&detail.Body,
		&detail.SentAt,
		&readAt,
		&fromUser.Username,
		&fromUser.FirstName,
		&fromUser.LastName,
		&fromUser.Phone,
		&toUser.Username,
		&toUser.FirstName,
		&toUser.LastName,
		&toUser.Phone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.MessageDetail{}, ErrNotFound
		}
		return types.MessageDetail{}, err
	}
	if readAt.Valid {
		detail.ReadAt = &readAt.Time
	}
	detail.FromUser = &fromUser
	detail.ToUser = &toUser
	return detail, nil
}

// MarkRead stamps read_at for an unread message. The update is conditioned
// on read_at still being null, so concurrent calls cannot overwrite the
// first timestamp. The returned bool reports whether this call performed
// the transition; repeat calls get the stored receipt unchanged.
func (r *MessageRepository) MarkRead(ctx context.Context, id int64) (types.ReadReceipt, bool, error) {
	const update = `
		UPDATE messages
		SET read_at = $1
		WHERE id = $2 AND read_at IS NULL`
	result, err := r.db.ExecContext(ctx, update, time.Now(), id)
	if err != nil {
		return types.ReadReceipt{}, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.ReadReceipt{}, false, err
	}

	const query = `
		SELECT id, read_at
		FROM messages
		WHERE id = $1`
	var receipt types.ReadReceipt
	var readAt sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&receipt.ID, &readAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ReadReceipt{}, false, ErrNotFound
		}
		return types.ReadReceipt{}, false, err
	}
	if !readAt.Valid {
		return types.ReadReceipt{}, false, errors.New("read_at not set after update")
	}
	receipt.ReadAt = readAt.Time
	return receipt, affected > 0, nil
}

// ListFrom returns messages sent by the user, with the recipient profile
// joined in, ordered by sent_at ascending.
func (r *MessageRepository) ListFrom(ctx context.Context, username string) ([]types.MessageDetail, error) {
	const query = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
			t.username, t.first_name, t.last_name, t.phone
		FROM messages AS m
		JOIN users AS t ON t.username = m.to_username
		WHERE m.from_username = $1
		ORDER BY m.sent_at, m.id`
	return r.listCounterpart(ctx, query, username, false)
}

// ListTo returns messages received by the user, with the sender profile
// joined in, ordered by sent_at ascending.
func (r *MessageRepository) ListTo(ctx context.Context, username string) ([]types.MessageDetail, error) {
	const query = `
		SELECT m.id, m.body, m.sent_at, m.read_at,
			f.username, f.first_name, f.last_name, f.phone
		FROM messages AS m
		JOIN users AS f ON f.username = m.from_username
		WHERE m.to_username = $1
		ORDER BY m.sent_at, m.id`
	return r.listCounterpart(ctx, query, username, true)
}

func (r *MessageRepository) listCounterpart(ctx context.Context, query, username string, counterpartIsSender bool) ([]types.MessageDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]types.MessageDetail, 0)
	for rows.Next() {
		var detail types.MessageDetail
		var readAt sql.NullTime
		var counterpart types.UserProfile
		if err := rows.Scan(
			&detail.ID,
			&detail.Body,
			&detail.SentAt,
			&readAt,
			&counterpart.Username,
			&counterpart.FirstName,
			&counterpart.LastName,
			&counterpart.Phone,
		); err != nil {
			return nil, err
		}
		if readAt.Valid {
			detail.ReadAt = &readAt.Time
		}
		if counterpartIsSender {
			detail.FromUser = &counterpart
		} else {
			detail.ToUser = &counterpart
		}
		messages = append(messages, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
