package mapper

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"lexchat-be/internal/constant"
	"lexchat-be/internal/entity"
	"lexchat-be/pkg/backend"

	"github.com/google/uuid"
)

// ChatMapper adapts the backend's wire payloads to the canonical entities.
// The metadata shape has varied across backend versions (keyed object vs
// array); the instability is contained here instead of branching through the
// service layer.
type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

type metadataItem struct {
	CaseType    string      `json:"case_type"`
	FileId      json.Number `json:"file_id"`
	FileSummary string      `json:"file_summary"`
	Summary     string      `json:"summary"`
	FileUrl     string      `json:"file_url"`
	Url         string      `json:"url"`
	Score       float64     `json:"score"`
	Date        string      `json:"date"`
	Text        string      `json:"text"`
}

func (it metadataItem) toReference(fallbackId string) entity.Reference {
	id := it.FileId.String()
	if id == "" {
		id = fallbackId
	}
	url := it.Url
	if url == "" {
		url = it.FileUrl
	}
	summary := it.Summary
	if summary == "" {
		summary = it.FileSummary
	}
	return entity.Reference{
		FileId:   id,
		CaseType: it.CaseType,
		Score:    it.Score,
		Date:     it.Date,
		Url:      url,
		Summary:  summary,
		Text:     it.Text,
	}
}

// ReferencesFromMetadata converts raw retrieval metadata into canonical
// references. A keyed object's keys become the file identifiers; numeric
// keys sort numerically, opaque keys are preserved and sort after them.
func (m *ChatMapper) ReferencesFromMetadata(raw json.RawMessage) []entity.Reference {
	if len(raw) == 0 {
		return []entity.Reference{}
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []entity.Reference{}
	}

	if trimmed[0] == '[' {
		var items []metadataItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return []entity.Reference{}
		}
		refs := make([]entity.Reference, 0, len(items))
		for _, it := range items {
			refs = append(refs, it.toReference(""))
		}
		return refs
	}

	var keyed map[string]metadataItem
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return []entity.Reference{}
	}

	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, erri := strconv.Atoi(keys[i])
		nj, errj := strconv.Atoi(keys[j])
		switch {
		case erri == nil && errj == nil:
			return ni < nj
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	refs := make([]entity.Reference, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, keyed[k].toReference(k))
	}
	return refs
}

// CollectedIds extracts the deduplicated document ids cited by a reference
// set, preserving first-seen order. Only non-empty ids are kept.
func (m *ChatMapper) CollectedIds(refs []entity.Reference) []string {
	seen := make(map[string]struct{}, len(refs))
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.FileId == "" {
			continue
		}
		if _, dup := seen[r.FileId]; dup {
			continue
		}
		seen[r.FileId] = struct{}{}
		ids = append(ids, r.FileId)
	}
	return ids
}

// TurnsFromHistory rebuilds a turn sequence from the stored [text, role]
// pairs. History carries neither categories nor reference metadata, so
// rebuilt turns have empty category and reference sets.
func (m *ChatMapper) TurnsFromHistory(pairs [][]string, now time.Time) []*entity.Turn {
	turns := make([]*entity.Turn, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		user := pairs[i]
		if len(user) < 2 || user[1] != constant.ChatMessageRoleUser {
			continue
		}
		turn := &entity.Turn{
			Id:        uuid.New(),
			Question:  user[0],
			Status:    entity.TurnStatusPending,
			CreatedAt: now,
		}
		if i+1 < len(pairs) {
			ai := pairs[i+1]
			if len(ai) >= 2 && ai[1] == constant.ChatMessageRoleAI {
				turn.Status = entity.TurnStatusAnswered
				turn.Answer = &entity.Answer{Text: ai[0], References: []entity.Reference{}}
			}
		}
		turns = append(turns, turn)
	}
	return turns
}

// SessionFromPayload mirrors one backend session listing.
func (m *ChatMapper) SessionFromPayload(p backend.SessionPayload) entity.SessionSummary {
	msgs := make([]entity.SessionMessage, 0, len(p.Messages))
	for _, wire := range p.Messages {
		msgs = append(msgs, entity.SessionMessage{
			Id:        wire.Id,
			Content:   wire.Content,
			Role:      wire.Role,
			Timestamp: wire.Timestamp,
			CaseTypes: m.caseTypesFromMessageMetadata(wire.Metadata),
		})
	}
	return entity.SessionSummary{SessionId: p.SessionId, Messages: msgs}
}

// caseTypesFromMessageMetadata pulls the distinct lowercased case types out
// of a message's metadata blob, tolerating both observed shapes.
func (m *ChatMapper) caseTypesFromMessageMetadata(raw json.RawMessage) []string {
	// Session listings wrap the retrieval payload: {"metadata": <shape>}.
	var envelope struct {
		Metadata json.RawMessage `json:"metadata"`
	}
	inner := raw
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Metadata) > 0 {
		inner = envelope.Metadata
	}

	refs := m.ReferencesFromMetadata(inner)
	seen := make(map[string]struct{}, len(refs))
	types := make([]string, 0, len(refs))
	for _, r := range refs {
		ct := strings.ToLower(r.CaseType)
		if ct == "" {
			continue
		}
		if _, dup := seen[ct]; dup {
			continue
		}
		seen[ct] = struct{}{}
		types = append(types, ct)
	}
	return types
}
