package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"lexchat-be/internal/constant"
	"lexchat-be/internal/dto"
	"lexchat-be/internal/entity"
	"lexchat-be/internal/mapper"
	"lexchat-be/internal/pkg/logger"
	"lexchat-be/pkg/backend"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const previewMaxLen = 80

// ISessionService keeps a per-user snapshot of the conversation list shown
// in the sidebar. Reads never hit the remote backend; a refresh replaces the
// snapshot wholesale, and a failed refresh leaves the prior one marked stale.
type ISessionService interface {
	Sessions(userId string) *dto.SessionListResponse
	GetByID(userId, sessionId string) (*dto.SessionDTO, bool)

	// Refresh re-fetches the user's sessions. Concurrent refreshes are
	// ordered by start: a result from an older refresh never overwrites a
	// newer one.
	Refresh(ctx context.Context, userId string)

	// AvailableCaseTypes lists the case types present across the user's
	// sessions with per-type session counts, for the filter sidebar.
	AvailableCaseTypes(userId string) []dto.CaseTypeCountDTO

	// FilterByCaseTypes returns the sessions touching at least one of the
	// given case types. An empty filter returns everything.
	FilterByCaseTypes(userId string, caseTypes []string) []dto.SessionDTO

	// Start subscribes to conversation-created events on the in-process bus.
	Start(ctx context.Context) error
}

type sessionSnapshot struct {
	sessions []entity.SessionSummary
	loading  bool
	stale    bool
	gen      uint64
}

type sessionService struct {
	backend backend.Client
	mapper  *mapper.ChatMapper
	pubSub  *gochannel.GoChannel
	logger  logger.ILogger

	mu        sync.Mutex
	snapshots map[string]*sessionSnapshot
	started   map[string]uint64
}

func NewSessionService(client backend.Client, chatMapper *mapper.ChatMapper, pubSub *gochannel.GoChannel, log logger.ILogger) ISessionService {
	return &sessionService{
		backend:   client,
		mapper:    chatMapper,
		pubSub:    pubSub,
		logger:    log,
		snapshots: make(map[string]*sessionSnapshot),
		started:   make(map[string]uint64),
	}
}

// snapshotLocked returns the user's snapshot, creating an empty one if
// needed. Caller holds s.mu.
func (s *sessionService) snapshotLocked(userId string) *sessionSnapshot {
	snap, ok := s.snapshots[userId]
	if !ok {
		snap = &sessionSnapshot{}
		s.snapshots[userId] = snap
	}
	return snap
}

func (s *sessionService) Sessions(userId string) *dto.SessionListResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked(userId)
	res := &dto.SessionListResponse{
		Sessions: make([]dto.SessionDTO, 0, len(snap.sessions)),
		Loading:  snap.loading,
		Stale:    snap.stale,
	}
	for _, sess := range snap.sessions {
		res.Sessions = append(res.Sessions, toSessionDTO(sess))
	}
	return res
}

func (s *sessionService) GetByID(userId, sessionId string) (*dto.SessionDTO, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.snapshotLocked(userId).sessions {
		if sess.SessionId == sessionId {
			res := toSessionDTO(sess)
			return &res, true
		}
	}
	return nil, false
}

func (s *sessionService) Refresh(ctx context.Context, userId string) {
	if userId == "" {
		return
	}

	s.mu.Lock()
	s.started[userId]++
	gen := s.started[userId]
	s.snapshotLocked(userId).loading = true
	s.mu.Unlock()

	payloads, err := s.backend.UserSessions(ctx, userId)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked(userId)
	if gen < snap.gen {
		// A refresh started after this one already landed.
		return
	}
	snap.gen = gen
	snap.loading = false

	if err != nil {
		snap.stale = true
		s.logger.Warn("SessionService", "Session refresh failed, keeping prior snapshot", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		return
	}

	sessions := make([]entity.SessionSummary, 0, len(payloads))
	for _, p := range payloads {
		sessions = append(sessions, s.mapper.SessionFromPayload(p))
	}
	snap.sessions = sessions
	snap.stale = false
}

func (s *sessionService) AvailableCaseTypes(userId string) []dto.CaseTypeCountDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, sess := range s.snapshotLocked(userId).sessions {
		for _, ct := range sessionCaseTypes(sess) {
			counts[ct]++
		}
	}

	res := make([]dto.CaseTypeCountDTO, 0, len(counts))
	for id, count := range counts {
		res = append(res, dto.CaseTypeCountDTO{
			Id:    id,
			Name:  caseTypeName(id),
			Count: count,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Count != res[j].Count {
			return res[i].Count > res[j].Count
		}
		return res[i].Id < res[j].Id
	})
	return res
}

func (s *sessionService) FilterByCaseTypes(userId string, caseTypes []string) []dto.SessionDTO {
	wanted := make(map[string]bool, len(caseTypes))
	for _, ct := range caseTypes {
		ct = strings.ToLower(strings.TrimSpace(ct))
		if ct != "" {
			wanted[ct] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res []dto.SessionDTO
	for _, sess := range s.snapshotLocked(userId).sessions {
		if len(wanted) == 0 || intersects(sessionCaseTypes(sess), wanted) {
			res = append(res, toSessionDTO(sess))
		}
	}
	return res
}

func (s *sessionService) Start(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, constant.TopicConversationCreated)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.handleConversationCreated(ctx, msg)
		}
	}()

	return nil
}

func (s *sessionService) handleConversationCreated(ctx context.Context, msg *message.Message) {
	var payload dto.ConversationCreatedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error("SessionService", "Failed to unmarshal conversation event", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	s.Refresh(ctx, payload.UserKey)
	msg.Ack()
}

// sessionCaseTypes returns the distinct case types across a session's
// messages, already lowercased by the mapper.
func sessionCaseTypes(sess entity.SessionSummary) []string {
	seen := make(map[string]bool)
	var res []string
	for _, m := range sess.Messages {
		for _, ct := range m.CaseTypes {
			if !seen[ct] {
				seen[ct] = true
				res = append(res, ct)
			}
		}
	}
	return res
}

func intersects(caseTypes []string, wanted map[string]bool) bool {
	for _, ct := range caseTypes {
		if wanted[ct] {
			return true
		}
	}
	return false
}

func toSessionDTO(sess entity.SessionSummary) dto.SessionDTO {
	res := dto.SessionDTO{
		SessionId: sess.SessionId,
		CaseTypes: sessionCaseTypes(sess),
		Messages:  make([]dto.SessionMessageDTO, 0, len(sess.Messages)),
	}
	for _, m := range sess.Messages {
		res.Messages = append(res.Messages, dto.SessionMessageDTO{
			Id:        m.Id,
			Content:   m.Content,
			Role:      m.Role,
			Timestamp: m.Timestamp,
			CaseTypes: m.CaseTypes,
		})
	}
	if res.CaseTypes == nil {
		res.CaseTypes = []string{}
	}
	res.Preview = sessionPreview(sess)
	return res
}

// sessionPreview is the first user message, truncated for the sidebar.
func sessionPreview(sess entity.SessionSummary) string {
	for _, m := range sess.Messages {
		if m.Role != constant.ChatMessageRoleUser {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) > previewMaxLen {
			return string(runes[:previewMaxLen]) + "..."
		}
		return m.Content
	}
	return ""
}

// caseTypeName renders a case type id like "civil_law" as "Civil Law".
func caseTypeName(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
