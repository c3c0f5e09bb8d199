package models

// InboundMessage is the transport-independent view of a single Discord
// message. It is built once per message by the transport and read-only
// from there on.
type InboundMessage struct {
	ID              string   `json:"id"`
	AuthorID        string   `json:"author_id"`
	AuthorName      string   `json:"author_name"`
	AuthorIsBot     bool     `json:"author_is_bot"`
	Content         string   `json:"content"`
	ChannelID       string   `json:"channel_id"`
	ChannelName     string   `json:"channel_name"`
	GuildID         string   `json:"guild_id,omitempty"`
	ReplyToAuthorID string   `json:"reply_to_author_id,omitempty"`
	MentionIDs      []string `json:"mention_ids,omitempty"`
}

// Roles for conversation turns, matching the chat-completion wire values.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one entry of the per-channel history handed to the
// completion endpoint, oldest-first.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
