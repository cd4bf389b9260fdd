// Package message persists normalized messages keyed by provider message id.
package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMessageNotFound indicates the message id has no persisted row.
var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, tenant_id, sender_id, receiver_id, content, type,
	from_me, read, read_at, sent_at, media, created_at`

// Store persists messages backed by Postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a message store.
func NewStore(log *slog.Logger, pool *pgxpool.Pool) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool:   pool,
		logger: log.With(slog.String("store", "message")),
	}
}

// Create inserts a message. The provider redelivers events at least once, so
// a duplicate id is a successful no-op: created reports whether this call
// actually inserted the row.
func (s *Store) Create(ctx context.Context, m Message) (created bool, err error) {
	if strings.TrimSpace(m.ID) == "" {
		return false, fmt.Errorf("message id is required")
	}
	mediaBytes, err := marshalMedia(m.Media)
	if err != nil {
		return false, fmt.Errorf("marshal media descriptor: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, tenant_id, sender_id, receiver_id, content, type,
			from_me, read, read_at, sent_at, media)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		m.ID, m.TenantID, m.SenderID, m.ReceiverID, m.Content, string(m.Type),
		m.FromMe, m.Read, m.ReadAt, m.SentAt, mediaBytes)
	if err != nil {
		return false, fmt.Errorf("insert message: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByID returns one message.
func (s *Store) GetByID(ctx context.Context, id string) (Message, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, strings.TrimSpace(id))
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrMessageNotFound
		}
		return Message{}, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// UpdateMediaDescriptor replaces the stored media descriptor for a message.
func (s *Store) UpdateMediaDescriptor(ctx context.Context, id string, media *MediaDescriptor) error {
	mediaBytes, err := marshalMedia(media)
	if err != nil {
		return fmt.Errorf("marshal media descriptor: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET media = $2 WHERE id = $1`, strings.TrimSpace(id), mediaBytes)
	if err != nil {
		return fmt.Errorf("update media descriptor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkRead flips the read flag on a single message. Unknown ids are a no-op:
// the provider reports receipts for messages this system may never have seen.
func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET read = TRUE, read_at = $2
		WHERE id = $1 AND read = FALSE`, strings.TrimSpace(id), at)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}

// MarkConversationRead flips all unread inbound messages from one counterparty.
func (s *Store) MarkConversationRead(ctx context.Context, tenantID, counterparty string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE messages SET read = TRUE, read_at = now()
		WHERE tenant_id = $1 AND sender_id = $2 AND from_me = FALSE AND read = FALSE`,
		tenantID, strings.TrimSpace(counterparty))
	if err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	return nil
}

// ListConversation returns one tenant/counterparty thread, oldest first.
func (s *Store) ListConversation(ctx context.Context, tenantID, counterparty string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE tenant_id = $1
		  AND ((from_me = FALSE AND sender_id = $2) OR (from_me = TRUE AND receiver_id = $2))
		ORDER BY sent_at ASC`,
		tenantID, strings.TrimSpace(counterparty))
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// ListConversations computes the read-side aggregate for a tenant: the latest
// message per counterparty plus the unread inbound count.
func (s *Store) ListConversations(ctx context.Context, tenantID string) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		WITH threads AS (
			SELECT DISTINCT ON (counterparty) *
			FROM (
				SELECT m.*,
					CASE WHEN m.from_me THEN m.receiver_id ELSE m.sender_id END AS counterparty
				FROM messages m
				WHERE m.tenant_id = $1
			) t
			ORDER BY counterparty, sent_at DESC
		)
		SELECT `+prefixedMessageColumns("th")+`,
			COALESCE(c.name, '') AS contact_name,
			(
				SELECT COUNT(*) FROM messages u
				WHERE u.tenant_id = $1 AND u.sender_id = th.counterparty
				  AND u.from_me = FALSE AND u.read = FALSE
			) AS unread_count
		FROM threads th
		LEFT JOIN contacts c ON c.tenant_id = $1 AND c.phone = th.counterparty
		ORDER BY th.sent_at DESC`,
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]Conversation, 0)
	for rows.Next() {
		var m Message
		var mediaBytes []byte
		var name string
		var unread int
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Type,
			&m.FromMe, &m.Read, &m.ReadAt, &m.SentAt, &mediaBytes, &m.CreatedAt,
			&name, &unread,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if err := unmarshalMedia(mediaBytes, &m); err != nil {
			return nil, err
		}
		conversations = append(conversations, Conversation{
			Counterparty: m.Counterparty(),
			Name:         name,
			LastMessage:  m,
			UnreadCount:  unread,
			LastActivity: m.SentAt,
		})
	}
	return conversations, rows.Err()
}

// ListStaleMedia returns messages whose uploaded descriptor URL was issued
// before the cutoff. Used by the signed-URL refresh sweep.
func (s *Store) ListStaleMedia(ctx context.Context, cutoff time.Time, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE media IS NOT NULL
		  AND media->>'relay_status' = 'uploaded'
		  AND (media->>'url_issued_at')::timestamptz < $1
		ORDER BY (media->>'url_issued_at')::timestamptz ASC
		LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale media: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

// --- helpers ---

func marshalMedia(media *MediaDescriptor) ([]byte, error) {
	if media == nil {
		return nil, nil
	}
	return json.Marshal(media)
}

func unmarshalMedia(raw []byte, m *Message) error {
	if len(raw) == 0 {
		return nil
	}
	var d MediaDescriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return fmt.Errorf("unmarshal media descriptor: %w", err)
	}
	m.Media = &d
	return nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	var mediaBytes []byte
	err := row.Scan(
		&m.ID, &m.TenantID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Type,
		&m.FromMe, &m.Read, &m.ReadAt, &m.SentAt, &mediaBytes, &m.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}
	if err := unmarshalMedia(mediaBytes, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func collectMessages(rows pgx.Rows) ([]Message, error) {
	messages := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func prefixedMessageColumns(alias string) string {
	cols := strings.Split(strings.ReplaceAll(messageColumns, "\n", " "), ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
