package repositories

import "errors"

var (
	ErrChannelNotFound    = errors.New("channel not found")
	ErrChannelNameTaken   = errors.New("channel name already taken")
	ErrMessageNotFound    = errors.New("message not found")
	ErrParentNotFound     = errors.New("parent message not found")
	ErrParentNotRoot      = errors.New("parent message is itself a reply")
	ErrParentWrongChannel = errors.New("parent message belongs to another channel")
	ErrMessageDeleted     = errors.New("message is deleted")
)
