package chatclient

import "context"

// ConversationSource is the request API the aggregator reads from.
type ConversationSource interface {
	// FetchMine returns the caller's own conversations.
	FetchMine(ctx context.Context) ([]Conversation, error)

	// FetchAll returns every conversation; admin only.
	FetchAll(ctx context.Context) ([]Conversation, error)
}

// FetchConversations resolves the viewer's role first and then performs
// exactly one fetch: the admin source for administrators, the personal
// source for everyone else. The unused source is never called.
func FetchConversations(ctx context.Context, src ConversationSource, viewer Identity) ([]Conversation, error) {
	if viewer.Role == RoleAdmin {
		return src.FetchAll(ctx)
	}
	return src.FetchMine(ctx)
}

// FilterByStatus returns the subset of conversations whose underlying
// service request status matches the filter. FilterAll returns the input
// unchanged; order is preserved.
func FilterByStatus(conversations []Conversation, filter string) []Conversation {
	if filter == FilterAll || filter == "" {
		return conversations
	}

	filtered := make([]Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if conv.Status == filter {
			filtered = append(filtered, conv)
		}
	}
	return filtered
}
