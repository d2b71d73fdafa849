package models

// MSyncMetrics summarizes what the sync core has processed.
type MSyncMetrics struct {
	MessagesApplied   int64  `json:"messages_applied"`
	MessagesDuplicate int64  `json:"messages_duplicate"`
	MessagesMalformed int64  `json:"messages_malformed"`
	MessagesRejected  int64  `json:"messages_rejected"`
	MessagesUnchanged int64  `json:"messages_unchanged"`
	Reconnects        int64  `json:"reconnects"`
	PollFetches       int64  `json:"poll_fetches"`
	PollFailures      int64  `json:"poll_failures"`
	DedupWindowSize   int    `json:"dedup_window_size"`
	Generation        uint64 `json:"generation"`
	ReconnectAttempt  int    `json:"reconnect_attempt"`
}
