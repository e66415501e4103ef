package types

type ChatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
	Language  string `json:"language,omitempty"`
}

type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
	ReplyHTML string `json:"replyHtml"`
	Kind      string `json:"kind"`
	Remaining int    `json:"remaining"`
}

type HistoryMessage struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

type HistoryResponse struct {
	SessionID string           `json:"sessionId"`
	Messages  []HistoryMessage `json:"messages"`
}

type QuotaResponse struct {
	SessionID string `json:"sessionId"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Date      string `json:"date"`
}

type LinkResponse struct {
	URL string `json:"url"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
