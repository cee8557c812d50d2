package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"channel-service/internal/models"
	"channel-service/internal/reactions"
)

// DeletedContentPlaceholder replaces the content of a soft-deleted message.
const DeletedContentPlaceholder = "このメッセージは削除されました。"

const messageColumns = `id, channel_id, user_id, content, parent_message_id,
    mentioned_user_ids, reactions, is_edited, is_deleted, created_at, updated_at, deleted_at`

// NewMessage carries the validated write-path input for AppendMessage.
// MentionedUserIDs is resolved by the caller before the insert.
type NewMessage struct {
	ChannelID        int
	UserID           int
	Content          string
	ParentMessageID  *int
	MentionedUserIDs []int64
}

// MessageRepository owns the canonical copy of messages. All mutations go
// through it; other components only see read projections.
type MessageRepository interface {
	AppendMessage(ctx context.Context, msg NewMessage) (models.Message, error)
	PageRootMessages(ctx context.Context, channelID, page, pageSize int) ([]models.Message, bool, error)
	ListThread(ctx context.Context, parentMessageID int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	EditMessage(ctx context.Context, messageID, requestingUserID int, content string) (models.Message, error)
	SoftDeleteMessage(ctx context.Context, messageID, requestingUserID int) (models.Message, error)
	ToggleReaction(ctx context.Context, messageID, userID int, emoji string) (models.Message, error)
	ReplyCountsByParent(ctx context.Context) (map[int]int, error)
}

// MessageRepo is a sqlx-backed MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendMessage validates channel and parent references and inserts the
// message. A parent must be a root message in the same channel; threading
// is strictly single level.
func (r *MessageRepo) AppendMessage(ctx context.Context, msg NewMessage) (models.Message, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var channelExists bool
	if err := tx.GetContext(ctx, &channelExists,
		`SELECT EXISTS(SELECT 1 FROM channels WHERE id=$1)`, msg.ChannelID); err != nil {
		return models.Message{}, err
	}
	if !channelExists {
		return models.Message{}, ErrChannelNotFound
	}

	if msg.ParentMessageID != nil {
		var parent struct {
			ChannelID       int  `db:"channel_id"`
			ParentMessageID *int `db:"parent_message_id"`
		}
		err := tx.GetContext(ctx, &parent,
			`SELECT channel_id, parent_message_id FROM messages WHERE id=$1`, *msg.ParentMessageID)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, ErrParentNotFound
		}
		if err != nil {
			return models.Message{}, err
		}
		if parent.ChannelID != msg.ChannelID {
			return models.Message{}, ErrParentWrongChannel
		}
		if parent.ParentMessageID != nil {
			return models.Message{}, ErrParentNotRoot
		}
	}

	mentioned := msg.MentionedUserIDs
	if mentioned == nil {
		mentioned = []int64{}
	}

	var created models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (channel_id, user_id, content, parent_message_id, mentioned_user_ids)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+messageColumns,
		msg.ChannelID, msg.UserID, msg.Content, msg.ParentMessageID, pq.Int64Array(mentioned)).
		StructScan(&created)
	if err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return created, nil
}

// PageRootMessages returns root messages newest first, offset by
// (page-1)*pageSize. The second return value reports whether older root
// messages exist beyond the returned page, determined by a look-ahead row
// rather than the returned length.
func (r *MessageRepo) PageRootMessages(ctx context.Context, channelID, page, pageSize int) ([]models.Message, bool, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	exists, err := r.channelExists(ctx, channelID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, ErrChannelNotFound
	}

	offset := (page - 1) * pageSize
	msgs := []models.Message{}
	err = r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE channel_id=$1 AND parent_message_id IS NULL
         ORDER BY created_at DESC, id DESC
         LIMIT $2 OFFSET $3`,
		channelID, pageSize+1, offset)
	if err != nil {
		return nil, false, err
	}

	msgs, hasMore := trimLookAhead(msgs, pageSize)
	return msgs, hasMore, nil
}

// trimLookAhead drops the extra row fetched beyond the page and reports
// whether it existed. A page filled exactly, with nothing beyond it, is not
// "more".
func trimLookAhead(msgs []models.Message, pageSize int) ([]models.Message, bool) {
	if len(msgs) > pageSize {
		return msgs[:pageSize], true
	}
	return msgs, false
}

// ListThread returns all replies to the parent ascending by creation time.
func (r *MessageRepo) ListThread(ctx context.Context, parentMessageID int) ([]models.Message, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages
         WHERE parent_message_id=$1
         ORDER BY created_at ASC, id ASC`, parentMessageID)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// EditMessage updates content for the author only and marks the message
// edited. Mentions are not recomputed on edit. Deleted messages are frozen.
func (r *MessageRepo) EditMessage(ctx context.Context, messageID, requestingUserID int, content string) (models.Message, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`UPDATE messages SET content=$1, is_edited=TRUE, updated_at=NOW()
         WHERE id=$2 AND user_id=$3 AND is_deleted=FALSE
         RETURNING `+messageColumns,
		content, messageID, requestingUserID).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// SoftDeleteMessage marks the message deleted, stamps deleted_at and
// replaces content with the placeholder. The row and its id persist so
// thread and reaction history survive.
func (r *MessageRepo) SoftDeleteMessage(ctx context.Context, messageID, requestingUserID int) (models.Message, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`UPDATE messages SET is_deleted=TRUE, deleted_at=NOW(), content=$1
         WHERE id=$2 AND user_id=$3 AND is_deleted=FALSE
         RETURNING `+messageColumns,
		DeletedContentPlaceholder, messageID, requestingUserID).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ToggleReaction flips the (userID, emoji) pair on the message. The row is
// locked for the duration of the read-modify-write so two concurrent
// toggles of the same pair can never both observe it absent.
func (r *MessageRepo) ToggleReaction(ctx context.Context, messageID, userID int, emoji string) (models.Message, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id=$1 FOR UPDATE`, messageID).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	if msg.IsDeleted {
		return models.Message{}, ErrMessageDeleted
	}

	msg.Reactions = reactions.Toggle(msg.Reactions, userID, emoji)
	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET reactions=$1 WHERE id=$2`, msg.Reactions, messageID); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ReplyCountsByParent scans replies grouped by parent, used to rebuild the
// thread index.
func (r *MessageRepo) ReplyCountsByParent(ctx context.Context) (map[int]int, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx,
		`SELECT parent_message_id, COUNT(*) AS replies FROM messages
         WHERE parent_message_id IS NOT NULL
         GROUP BY parent_message_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var parentID, n int
		if err := rows.Scan(&parentID, &n); err != nil {
			return nil, err
		}
		counts[parentID] = n
	}
	return counts, rows.Err()
}

func (r *MessageRepo) channelExists(ctx context.Context, channelID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channels WHERE id=$1)`, channelID)
	return exists, err
}
