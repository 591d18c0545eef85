package models

// AI generation modes.
const (
	AIModeReply   = "reply"
	AIModeSummary = "summary"
	AIModeImprove = "improve"
)

type AIMessage struct {
	Content      string `json:"content"`
	Sender       string `json:"sender"`
	IsOwnMessage bool   `json:"isOwnMessage"`
}

type AIRequest struct {
	Messages        []AIMessage `json:"messages" binding:"required"`
	Type            string      `json:"type" binding:"omitempty,oneof=reply summary improve"`
	CurrentUserName string      `json:"currentUserName"`
	CurrentMessage  string      `json:"currentMessage"`
}

// AIResult is the generate endpoint payload: reply mode yields suggestions,
// the other modes a single result string.
type AIResult struct {
	Suggestions []string `json:"suggestions,omitempty"`
	Result      string   `json:"result,omitempty"`
}
