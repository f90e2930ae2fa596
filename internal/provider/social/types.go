package social

// PostRequest is the payload for publishing a single post.
type PostRequest struct {
	Text      string   `json:"text"`
	QuoteID   string   `json:"quote_id,omitempty"`
	ReplyToID string   `json:"reply_to_id,omitempty"`
	MediaIDs  []string `json:"media_ids,omitempty"`
}

// Posted is the provider's acknowledgement of a published post.
type Posted struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
