package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"channel-service/internal/models"
	"channel-service/internal/reactions"
	"channel-service/internal/repositories"
	"channel-service/internal/telemetry"
	"channel-service/internal/threads"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ChannelHandler manages channel endpoints and channel history reads.
type ChannelHandler struct {
	channelRepo repositories.ChannelRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	replies     threads.ReplyCounter
	audit       *telemetry.AuditEmitter
}

// NewChannelHandler builds a ChannelHandler.
func NewChannelHandler(channelRepo repositories.ChannelRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, replies threads.ReplyCounter, audit *telemetry.AuditEmitter) *ChannelHandler {
	return &ChannelHandler{
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		replies:     replies,
		audit:       audit,
	}
}

// ListChannels returns all channels ascending by creation time.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	channels, err := h.channelRepo.ListChannels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channels"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// CreateChannel handles POST /channels.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := h.channelRepo.CreateChannel(c.Request.Context(), req.Name, req.Description, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "channel name already taken"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create channel"})
		return
	}

	h.emitAudit(c, "INFO", "Channel created")
	c.JSON(http.StatusCreated, channel)
}

// ListChannelMessages returns one page of root messages, newest first.
// Clients assembling a scrollback view reverse each page before prepending
// it to previously loaded older pages.
func (h *ChannelHandler) ListChannelMessages(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	page, limit := pageParams(c)
	msgs, hasMore, err := h.messageRepo.PageRootMessages(c.Request.Context(), channelID, page, limit)
	if err != nil {
		if errors.Is(err, repositories.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	resp, err := buildMessageResponses(c.Request.Context(), h.userRepo, h.replies, msgs, true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enrich messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp, "has_more": hasMore})
}

func (h *ChannelHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

// pageParams reads page/limit query params, defaulting and clamping
// non-positive or oversized values.
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

type messageResponse struct {
	models.Message
	Username        string              `json:"username,omitempty"`
	ReplyCount      int                 `json:"reply_count"`
	ReactionSummary []reactions.Summary `json:"reaction_summary"`
}

// buildMessageResponses attaches usernames, per-emoji reaction summaries
// and (for root listings) reply counts to raw store rows.
func buildMessageResponses(ctx context.Context, users repositories.UserRepository, replies threads.ReplyCounter, msgs []models.Message, withReplyCounts bool) ([]messageResponse, error) {
	authorIDs := make([]int64, 0, len(msgs))
	seen := map[int64]struct{}{}
	for _, m := range msgs {
		id := int64(m.UserID)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			authorIDs = append(authorIDs, id)
		}
	}

	usernames, err := users.BulkUsernames(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	replyCounts := map[int]int{}
	if withReplyCounts && len(msgs) > 0 {
		ids := make([]int, 0, len(msgs))
		for _, m := range msgs {
			ids = append(ids, m.ID)
		}
		replyCounts, err = replies.CountMany(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{
			Message:         m,
			Username:        usernames[int64(m.UserID)],
			ReplyCount:      replyCounts[m.ID],
			ReactionSummary: reactions.Summarize(m.Reactions),
		})
	}
	return resp, nil
}
