package dto

type SessionMessageDTO struct {
	Id        int      `json:"id"`
	Content   string   `json:"content"`
	Role      string   `json:"role"`
	Timestamp string   `json:"timestamp"`
	CaseTypes []string `json:"case_types,omitempty"`
}

type SessionDTO struct {
	SessionId string              `json:"session_id"`
	Preview   string              `json:"preview"`
	CaseTypes []string            `json:"case_types"`
	Messages  []SessionMessageDTO `json:"messages"`
}

type SessionListResponse struct {
	Sessions []SessionDTO `json:"sessions"`
	Loading  bool         `json:"loading"`
	Stale    bool         `json:"stale"`
}

// CaseTypeCountDTO backs the sidebar filter: one available case type with
// the number of sessions it appears in.
type CaseTypeCountDTO struct {
	Id    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}
