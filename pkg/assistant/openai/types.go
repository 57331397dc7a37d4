package openai

// createThreadRequest is the request body for POST /v1/threads.
type createThreadRequest struct {
	Messages []threadMessage `json:"messages"`
}

// threadMessage is a single message, used both when seeding a thread and
// when appending to one.
type threadMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// startRunRequest is the request body for POST /v1/threads/{id}/runs.
type startRunRequest struct {
	AssistantID string `json:"assistant_id"`
}

// idResponse covers every creation endpoint: only the id matters.
type idResponse struct {
	ID string `json:"id"`
}

// runStatusResponse is the subset of the run object the poll loop reads.
type runStatusResponse struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	LastError *runLastError `json:"last_error"`
}

type runLastError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// messagesResponse is the subset of GET /v1/threads/{id}/messages the
// reply extraction reads. Messages arrive newest first.
type messagesResponse struct {
	Data []struct {
		Role    string           `json:"role"`
		Content []contentSegment `json:"content"`
	} `json:"data"`
}

type contentSegment struct {
	Type string `json:"type"`
	Text *struct {
		Value string `json:"value"`
	} `json:"text"`
}
