package entity

// SessionSummary is one conversation as listed by the backend session call,
// mirrored read-only for the sidebar.
type SessionSummary struct {
	SessionId string
	Messages  []SessionMessage
}

// SessionMessage is one message inside a listed session.
type SessionMessage struct {
	Id        int
	Content   string
	Role      string
	Timestamp string
	CaseTypes []string
}
