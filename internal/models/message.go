package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
)

// Message represents a channel message. A message with a nil
// ParentMessageID is a root message; one with a non-nil ParentMessageID is
// a single-level thread reply.
type Message struct {
	ID               int           `db:"id" json:"id"`
	ChannelID        int           `db:"channel_id" json:"channel_id"`
	UserID           int           `db:"user_id" json:"user_id"`
	Content          string        `db:"content" json:"content"`
	ParentMessageID  *int          `db:"parent_message_id" json:"parent_message_id"`
	MentionedUserIDs pq.Int64Array `db:"mentioned_user_ids" json:"mentioned_user_ids"`
	Reactions        ReactionList  `db:"reactions" json:"reactions"`
	IsEdited         bool          `db:"is_edited" json:"is_edited"`
	IsDeleted        bool          `db:"is_deleted" json:"is_deleted"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        *time.Time    `db:"updated_at" json:"updated_at,omitempty"`
	DeletedAt        *time.Time    `db:"deleted_at" json:"deleted_at,omitempty"`
}

// IsRoot reports whether the message starts a channel timeline entry.
func (m Message) IsRoot() bool {
	return m.ParentMessageID == nil
}

// Reaction is a single (user, emoji) pair. At most one entry per pair
// exists in a message's reaction list.
type Reaction struct {
	UserID int    `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// ReactionList is the ordered reaction sequence stored as JSONB.
type ReactionList []Reaction

// Value marshals the list for storage. A nil list is stored as [].
func (l ReactionList) Value() (driver.Value, error) {
	if l == nil {
		l = ReactionList{}
	}
	return json.Marshal(l)
}

// Scan unmarshals the JSONB column.
func (l *ReactionList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = ReactionList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("reactions: unsupported column type")
	}
}
