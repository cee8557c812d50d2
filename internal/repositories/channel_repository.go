package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"channel-service/internal/models"
)

// queryTimeout bounds every repository call against a slow or unreachable
// store.
const queryTimeout = 5 * time.Second

func boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// ChannelRepository abstracts channel persistence.
type ChannelRepository interface {
	CreateChannel(ctx context.Context, name, description string, creatorID int) (models.Channel, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)
	GetChannel(ctx context.Context, channelID int) (models.Channel, error)
	ChannelExists(ctx context.Context, channelID int) (bool, error)
}

// ChannelRepo is a sqlx implementation of ChannelRepository.
type ChannelRepo struct {
	db *sqlx.DB
}

// NewChannelRepo constructs a ChannelRepo.
func NewChannelRepo(db *sqlx.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// CreateChannel inserts a channel. A duplicate name yields
// ErrChannelNameTaken.
func (r *ChannelRepo) CreateChannel(ctx context.Context, name, description string, creatorID int) (models.Channel, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	var ch models.Channel
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO channels (name, description, created_by) VALUES ($1, $2, $3)
         RETURNING id, name, description, created_by, created_at`,
		name, description, creatorID).StructScan(&ch)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return models.Channel{}, ErrChannelNameTaken
		}
		return models.Channel{}, err
	}
	return ch, nil
}

// ListChannels returns all channels ascending by creation time.
func (r *ChannelRepo) ListChannels(ctx context.Context) ([]models.Channel, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	channels := []models.Channel{}
	err := r.db.SelectContext(ctx, &channels,
		`SELECT id, name, description, created_by, created_at FROM channels ORDER BY created_at ASC, id ASC`)
	return channels, err
}

// GetChannel fetches a channel by id.
func (r *ChannelRepo) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	var ch models.Channel
	err := r.db.GetContext(ctx, &ch,
		`SELECT id, name, description, created_by, created_at FROM channels WHERE id=$1`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

// ChannelExists checks channel existence.
func (r *ChannelRepo) ChannelExists(ctx context.Context, channelID int) (bool, error) {
	ctx, cancel := boundedCtx(ctx)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM channels WHERE id=$1)`, channelID)
	return exists, err
}
