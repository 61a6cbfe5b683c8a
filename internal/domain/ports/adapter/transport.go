package adapter

import "context"

// MessageHandle identifies a message previously sent to a conversation.
type MessageHandle struct {
	ConversationID int64
	MessageID      int
}

// Presence is a transient activity indicator shown to the user.
type Presence string

const (
	PresenceTyping         Presence = "typing"
	PresenceUploadPhoto    Presence = "upload_photo"
	PresenceUploadDocument Presence = "upload_document"
	PresenceUploadAudio    Presence = "upload_audio"
)

// MaxSingleMessageRunes is the longest text SendText delivers as one message.
// Longer text may be split, and the returned handle then names only the last part.
const MaxSingleMessageRunes = 4096

// Transport is the outbound side of the messaging platform.
// Every call is fallible; callers decide whether a failure matters.
type Transport interface {
	SendText(ctx context.Context, conversationID int64, text string) (MessageHandle, error)
	SendImage(ctx context.Context, conversationID int64, image []byte, caption string) (MessageHandle, error)
	SendDocument(ctx context.Context, conversationID int64, path, caption string) (MessageHandle, error)
	SendAudio(ctx context.Context, conversationID int64, path, caption string) (MessageHandle, error)
	DeleteMessage(ctx context.Context, handle MessageHandle) error
	SetPresence(ctx context.Context, conversationID int64, presence Presence) error
}

// Editor is implemented by transports that can rewrite a sent text message in place.
type Editor interface {
	EditText(ctx context.Context, handle MessageHandle, text string) error
}
