package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"channel-service/internal/mentions"
	"channel-service/internal/mocks"
	"channel-service/internal/models"
	"channel-service/internal/repositories"
	"channel-service/internal/threads"
	"channel-service/internal/ws"
)

type messageRouterDeps struct {
	messageRepo *mocks.MessageRepositoryMock
	userRepo    *mocks.UserRepositoryMock
	replies     *threads.MemoryCounter
	router      *gin.Engine
}

func newMessageRouter(userID int) messageRouterDeps {
	deps := messageRouterDeps{
		messageRepo: new(mocks.MessageRepositoryMock),
		userRepo:    new(mocks.UserRepositoryMock),
		replies:     threads.NewMemoryCounter(),
	}

	hub := ws.NewHub()
	dispatcher := ws.NewDispatcher(hub, deps.replies)
	resolver := mentions.NewResolver(deps.userRepo)
	h := NewMessageHandler(deps.messageRepo, deps.userRepo, resolver, deps.replies, dispatcher, nil)

	router := gin.New()
	router.POST("/channels/:channel_id/messages", asUser(userID), h.PostMessage)
	router.GET("/messages/:message_id/thread", asUser(userID), h.GetThread)
	router.POST("/messages/:message_id/reactions", asUser(userID), h.ToggleReaction)
	router.PATCH("/messages/:message_id", asUser(userID), h.EditMessage)
	router.DELETE("/messages/:message_id", asUser(userID), h.DeleteMessage)
	deps.router = router
	return deps
}

func TestPostMessageRoot(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("AppendMessage", mock.Anything, repositories.NewMessage{
		ChannelID:        1,
		UserID:           42,
		Content:          "hello",
		MentionedUserIDs: []int64{},
	}).Return(models.Message{ID: 10, ChannelID: 1, UserID: 42, Content: "hello"}, nil)

	w := performRequest(deps.router, http.MethodPost, "/channels/1/messages", `{"content":"hello"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 10, created.ID)
	deps.messageRepo.AssertExpectations(t)
}

func TestPostMessageResolvesMentions(t *testing.T) {
	deps := newMessageRouter(42)
	deps.userRepo.On("ResolveUsernames", mock.Anything, []string{"alice", "ghost"}).
		Return(map[string]int64{"alice": 11}, nil)
	deps.messageRepo.On("AppendMessage", mock.Anything, repositories.NewMessage{
		ChannelID:        1,
		UserID:           42,
		Content:          "ping @alice and @ghost",
		MentionedUserIDs: []int64{11},
	}).Return(models.Message{ID: 10, ChannelID: 1, UserID: 42}, nil)

	w := performRequest(deps.router, http.MethodPost, "/channels/1/messages", `{"content":"ping @alice and @ghost"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	deps.messageRepo.AssertExpectations(t)
}

func TestPostMessageReplyBumpsReplyCount(t *testing.T) {
	deps := newMessageRouter(42)
	parentID := 10
	deps.messageRepo.On("AppendMessage", mock.Anything, mock.Anything).
		Return(models.Message{ID: 11, ChannelID: 1, UserID: 42, ParentMessageID: &parentID}, nil)

	w := performRequest(deps.router, http.MethodPost, "/channels/1/messages", `{"content":"a reply","parent_message_id":10}`)

	require.Equal(t, http.StatusCreated, w.Code)

	n, err := deps.replies.Count(context.Background(), parentID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPostMessageReplyToReply(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("AppendMessage", mock.Anything, mock.Anything).
		Return(models.Message{}, repositories.ErrParentNotRoot)

	w := performRequest(deps.router, http.MethodPost, "/channels/1/messages", `{"content":"nested","parent_message_id":11}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostMessageUnknownChannel(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("AppendMessage", mock.Anything, mock.Anything).
		Return(models.Message{}, repositories.ErrChannelNotFound)

	w := performRequest(deps.router, http.MethodPost, "/channels/99/messages", `{"content":"hello"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostMessageParentInAnotherChannel(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("AppendMessage", mock.Anything, mock.Anything).
		Return(models.Message{}, repositories.ErrParentWrongChannel)

	w := performRequest(deps.router, http.MethodPost, "/channels/2/messages", `{"content":"hi","parent_message_id":10}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetThread(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("GetMessage", mock.Anything, 10).
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 2}, nil)
	parentID := 10
	deps.messageRepo.On("ListThread", mock.Anything, 10).Return([]models.Message{
		{ID: 11, ChannelID: 1, UserID: 2, ParentMessageID: &parentID, Content: "first"},
		{ID: 12, ChannelID: 1, UserID: 3, ParentMessageID: &parentID, Content: "second"},
	}, nil)
	deps.userRepo.On("BulkUsernames", mock.Anything, []int64{2, 3}).
		Return(map[int64]string{2: "alice", 3: "bob"}, nil)

	w := performRequest(deps.router, http.MethodGet, "/messages/10/thread", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []struct {
			ID       int    `json:"id"`
			Username string `json:"username"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, 11, resp.Messages[0].ID)
	assert.Equal(t, "bob", resp.Messages[1].Username)
}

func TestGetThreadUnknownParent(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("GetMessage", mock.Anything, 99).
		Return(models.Message{}, repositories.ErrMessageNotFound)

	w := performRequest(deps.router, http.MethodGet, "/messages/99/thread", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleReaction(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("ToggleReaction", mock.Anything, 10, 42, "👍").
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 2,
			Reactions: models.ReactionList{{UserID: 42, Emoji: "👍"}}}, nil)

	w := performRequest(deps.router, http.MethodPost, "/messages/10/reactions", `{"emoji":"👍"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var msg models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, 42, msg.Reactions[0].UserID)
}

func TestToggleReactionDeletedMessage(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("ToggleReaction", mock.Anything, 10, 42, "👍").
		Return(models.Message{}, repositories.ErrMessageDeleted)

	w := performRequest(deps.router, http.MethodPost, "/messages/10/reactions", `{"emoji":"👍"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToggleReactionUnknownMessage(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("ToggleReaction", mock.Anything, 99, 42, "👍").
		Return(models.Message{}, repositories.ErrMessageNotFound)

	w := performRequest(deps.router, http.MethodPost, "/messages/99/reactions", `{"emoji":"👍"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditMessage(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("GetMessage", mock.Anything, 10).
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 42, Content: "before"}, nil)
	deps.messageRepo.On("EditMessage", mock.Anything, 10, 42, "after").
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 42, Content: "after", IsEdited: true}, nil)

	w := performRequest(deps.router, http.MethodPatch, "/messages/10", `{"content":"after"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var msg models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, "after", msg.Content)
	assert.True(t, msg.IsEdited)
}

func TestEditMessageForbiddenForNonAuthor(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("GetMessage", mock.Anything, 10).
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 7}, nil)

	w := performRequest(deps.router, http.MethodPatch, "/messages/10", `{"content":"hijack"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	deps.messageRepo.AssertNotCalled(t, "EditMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEditMessageDeletedIsFrozen(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("GetMessage", mock.Anything, 10).
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 42, IsDeleted: true}, nil)

	w := performRequest(deps.router, http.MethodPatch, "/messages/10", `{"content":"zombie"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	deps.messageRepo.AssertNotCalled(t, "EditMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteMessage(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("GetMessage", mock.Anything, 10).
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 42, Content: "secret"}, nil)
	deps.messageRepo.On("SoftDeleteMessage", mock.Anything, 10, 42).
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 42,
			Content: repositories.DeletedContentPlaceholder, IsDeleted: true}, nil)

	w := performRequest(deps.router, http.MethodDelete, "/messages/10", "")

	require.Equal(t, http.StatusOK, w.Code)

	var msg models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.True(t, msg.IsDeleted)
	assert.Equal(t, repositories.DeletedContentPlaceholder, msg.Content)
}

func TestDeleteMessageForbiddenForNonAuthor(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("GetMessage", mock.Anything, 10).
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 7}, nil)

	w := performRequest(deps.router, http.MethodDelete, "/messages/10", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	deps.messageRepo.AssertNotCalled(t, "SoftDeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteMessageAlreadyDeleted(t *testing.T) {
	deps := newMessageRouter(42)
	deps.messageRepo.On("GetMessage", mock.Anything, 10).
		Return(models.Message{ID: 10, ChannelID: 1, UserID: 42, IsDeleted: true}, nil)

	w := performRequest(deps.router, http.MethodDelete, "/messages/10", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
