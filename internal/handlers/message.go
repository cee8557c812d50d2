package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"channel-service/internal/mentions"
	"channel-service/internal/repositories"
	"channel-service/internal/telemetry"
	"channel-service/internal/threads"
	"channel-service/internal/ws"
)

// MessageHandler manages the message write path and thread reads.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	resolver    *mentions.Resolver
	replies     threads.ReplyCounter
	dispatcher  *ws.Dispatcher
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, resolver *mentions.Resolver, replies threads.ReplyCounter, dispatcher *ws.Dispatcher, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		resolver:    resolver,
		replies:     replies,
		dispatcher:  dispatcher,
		audit:       audit,
	}
}

// PostMessage persists a root message or single-level reply and broadcasts
// a created event. Mentions are resolved from content before the insert
// and never recomputed afterwards.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	userID := c.GetInt("userID")
	var req struct {
		Content         string `json:"content" binding:"required"`
		ParentMessageID *int   `json:"parent_message_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mentioned, err := h.resolver.Resolve(c.Request.Context(), req.Content)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve mentions"})
		return
	}

	msg, err := h.messageRepo.AppendMessage(c.Request.Context(), repositories.NewMessage{
		ChannelID:        channelID,
		UserID:           userID,
		Content:          req.Content,
		ParentMessageID:  req.ParentMessageID,
		MentionedUserIDs: mentioned,
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		case errors.Is(err, repositories.ErrParentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "parent message not found"})
		case errors.Is(err, repositories.ErrParentNotRoot):
			c.JSON(http.StatusBadRequest, gin.H{"error": "threads are single level; cannot reply to a reply"})
		case errors.Is(err, repositories.ErrParentWrongChannel):
			c.JSON(http.StatusBadRequest, gin.H{"error": "parent message belongs to another channel"})
		default:
			h.emitAudit(c, "ERROR", "internal error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		}
		return
	}

	h.dispatcher.MessageCreated(c.Request.Context(), msg)
	h.emitAudit(c, "INFO", "Message created")
	c.JSON(http.StatusCreated, msg)
}

// GetThread returns all replies to a parent message ascending by time.
func (h *MessageHandler) GetThread(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if _, err := h.messageRepo.GetMessage(c.Request.Context(), messageID); err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}

	msgs, err := h.messageRepo.ListThread(c.Request.Context(), messageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load thread"})
		return
	}

	resp, err := buildMessageResponses(c.Request.Context(), h.userRepo, h.replies, msgs, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enrich messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// ToggleReaction flips the caller's (emoji) reaction on the message and
// broadcasts an updated event carrying the new reaction set.
func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.ToggleReaction(c.Request.Context(), messageID, userID, req.Emoji)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		case errors.Is(err, repositories.ErrMessageDeleted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is deleted"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle reaction"})
		}
		return
	}

	h.dispatcher.MessageUpdated(c.Request.Context(), msg)
	c.JSON(http.StatusOK, msg)
}

// EditMessage updates content for the author only.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}
	if msg.UserID != userID {
		h.emitAudit(c, "ERROR", "not allowed to edit")
		c.JSON(http.StatusForbidden, gin.H{"error": "only the author may edit"})
		return
	}
	if msg.IsDeleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is deleted"})
		return
	}

	updated, err := h.messageRepo.EditMessage(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to edit message"})
		return
	}

	h.dispatcher.MessageUpdated(c.Request.Context(), updated)
	h.emitAudit(c, "INFO", "Message edited")
	c.JSON(http.StatusOK, updated)
}

// DeleteMessage soft-deletes the author's message. The row survives with
// placeholder content so thread and reaction history stay intact.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load message"})
		return
	}
	if msg.UserID != userID {
		h.emitAudit(c, "ERROR", "not allowed to delete")
		c.JSON(http.StatusForbidden, gin.H{"error": "only the author may delete"})
		return
	}
	if msg.IsDeleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message already deleted"})
		return
	}

	deleted, err := h.messageRepo.SoftDeleteMessage(c.Request.Context(), messageID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	h.dispatcher.MessageDeleted(c.Request.Context(), deleted.ChannelID, deleted.ID)
	h.emitAudit(c, "INFO", "Message deleted")
	c.JSON(http.StatusOK, deleted)
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
