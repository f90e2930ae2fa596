package domain

// EngagementSnapshot is a point-in-time read of a published item's
// interaction counts, derived from a single provider response.
// Impressions and reach are only available on some plans, hence the
// pointers.
type EngagementSnapshot struct {
	LikeCount       int      `json:"like_count"`
	RetweetCount    int      `json:"retweet_count"`
	ReplyCount      int      `json:"reply_count"`
	QuoteCount      int      `json:"quote_count"`
	EngagementScore int      `json:"engagement_score"`
	ImpressionCount *int     `json:"impression_count,omitempty"`
	ReachCount      *int     `json:"reach_count,omitempty"`
	EngagementRate  *float64 `json:"engagement_rate,omitempty"`
}

// NewEngagementSnapshot computes the derived score and rate fields.
func NewEngagementSnapshot(likes, retweets, replies, quotes int, impressions, reach *int) EngagementSnapshot {
	s := EngagementSnapshot{
		LikeCount:       likes,
		RetweetCount:    retweets,
		ReplyCount:      replies,
		QuoteCount:      quotes,
		EngagementScore: likes + retweets + replies + quotes,
		ImpressionCount: impressions,
		ReachCount:      reach,
	}
	if impressions != nil && *impressions > 0 {
		rate := float64(s.EngagementScore) / float64(*impressions) * 100
		s.EngagementRate = &rate
	}
	return s
}
