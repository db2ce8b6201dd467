package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"lexchat-be/internal/constant"
	"lexchat-be/internal/dto"
	"lexchat-be/internal/entity"
	"lexchat-be/internal/mapper"
	"lexchat-be/internal/pkg/logger"
	"lexchat-be/internal/repository/contract"
	"lexchat-be/pkg/backend"
	"lexchat-be/pkg/events"
	pktNats "lexchat-be/pkg/nats"
	"lexchat-be/pkg/references"
	"lexchat-be/pkg/reveal"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Caller identifies who is asking. UserId is empty for signed-out visitors;
// ClientKey is always set (user id, client header, or remote IP) and keys
// the rate limiter and websocket delivery.
type Caller struct {
	UserId    string
	ClientKey string
}

func (c Caller) SignedIn() bool {
	return c.UserId != ""
}

// Identity is the key the remote backend stores history and sessions under.
func (c Caller) Identity() string {
	if c.UserId != "" {
		return c.UserId
	}
	return c.ClientKey
}

// RevealDelivery pushes reveal frames to connected clients. Implemented by
// the WebSocket hub.
type RevealDelivery interface {
	Send(clientKey string, frame dto.RevealFrame)
}

// IConversationService is the turn orchestrator. A conversation is born in
// two steps split across a client navigation: Start assigns the id and parks
// the first question in the handoff slot; Open, called from the destination
// page, consumes the slot and runs the one retrieval call.
type IConversationService interface {
	Start(ctx context.Context, caller Caller, req *dto.StartConversationRequest) (*dto.StartConversationResponse, error)
	Open(ctx context.Context, caller Caller, conversationId uuid.UUID) (*dto.ConversationResponse, error)
	Ask(ctx context.Context, caller Caller, conversationId uuid.UUID, req *dto.AskRequest) (*dto.ConversationResponse, error)
	History(ctx context.Context, caller Caller, conversationId uuid.UUID) (*dto.ConversationResponse, error)
}

type conversationService struct {
	backend        backend.Client
	conversations  contract.ConversationStore
	handoffs       contract.HandoffStore
	limiter        ILimiterService
	publisher      IPublisherService
	eventPublisher *pktNats.Publisher
	mapper         *mapper.ChatMapper
	delivery       RevealDelivery
	logger         logger.ILogger

	retrievalLimit int

	mu      sync.Mutex
	reveals map[uuid.UUID]*activeReveal

	// async is the context retrieval and remote writes run under once the
	// originating request has returned.
	async context.Context

	now func() time.Time
}

func NewConversationService(
	client backend.Client,
	conversations contract.ConversationStore,
	handoffs contract.HandoffStore,
	limiter ILimiterService,
	publisher IPublisherService,
	eventPublisher *pktNats.Publisher,
	chatMapper *mapper.ChatMapper,
	delivery RevealDelivery,
	retrievalLimit int,
	log logger.ILogger,
) IConversationService {
	if retrievalLimit <= 0 {
		retrievalLimit = constant.RetrievalLimit
	}
	return &conversationService{
		backend:        client,
		conversations:  conversations,
		handoffs:       handoffs,
		limiter:        limiter,
		publisher:      publisher,
		eventPublisher: eventPublisher,
		mapper:         chatMapper,
		delivery:       delivery,
		logger:         log,
		retrievalLimit: retrievalLimit,
		reveals:        make(map[uuid.UUID]*activeReveal),
		async:          context.Background(),
		now:            time.Now,
	}
}

func (s *conversationService) Start(ctx context.Context, caller Caller, req *dto.StartConversationRequest) (*dto.StartConversationResponse, error) {
	if err := s.limiter.Gate(ctx, caller.ClientKey, caller.SignedIn()); err != nil {
		return nil, err
	}
	if _, err := s.limiter.RecordQuestion(ctx, caller.ClientKey); err != nil {
		return nil, err
	}

	now := s.now()
	conv := &entity.Conversation{
		Id:        uuid.New(),
		UserKey:   caller.Identity(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations.Save(conv)

	// The retrieval call is deliberately deferred: it must run when the
	// destination page opens the conversation, not here.
	s.handoffs.Put(conv.Id, &entity.PendingHandoff{
		Question:   req.Question,
		Categories: req.Categories,
		Ready:      true,
		CreatedAt:  now,
	})

	s.publishConversationCreated(ctx, conv.Id, caller)

	s.logger.Info("ConversationService", "Conversation started", map[string]interface{}{
		"conversation_id": conv.Id.String(),
		"user_key":        conv.UserKey,
	})

	return &dto.StartConversationResponse{ConversationId: conv.Id}, nil
}

func (s *conversationService) Open(ctx context.Context, caller Caller, conversationId uuid.UUID) (*dto.ConversationResponse, error) {
	_, handoffPending := s.handoffs.Peek(conversationId)

	s.mu.Lock()
	conv, ok := s.conversations.Get(conversationId)
	if !ok {
		now := s.now()
		conv = &entity.Conversation{
			Id:        conversationId,
			UserKey:   caller.Identity(),
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	needsHistory := len(conv.Turns) == 0 && !handoffPending
	s.mu.Unlock()

	// Loading the remote history while a handoff is pending would race the
	// first answer; the handoff path owns the conversation until consumed.
	if needsHistory {
		pairs, err := s.backend.GetChatHistory(ctx, caller.Identity(), conversationId.String())
		if err != nil {
			s.logger.Warn("ConversationService", "Failed to load remote history", map[string]interface{}{
				"conversation_id": conversationId.String(),
				"error":           err.Error(),
			})
		} else {
			s.mu.Lock()
			if cur, ok := s.conversations.Get(conversationId); ok && len(cur.Turns) > 0 {
				conv = cur // a concurrent open already populated it
			} else {
				conv.Turns = s.mapper.TurnsFromHistory(pairs, s.now())
			}
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A concurrent open may have saved turns since our first look; never
	// shadow them with an emptier working copy.
	if cur, ok := s.conversations.Get(conversationId); ok && len(cur.Turns) > 0 {
		conv = cur
	}

	if len(conv.Turns) == 0 {
		if handoff, ok := s.handoffs.Consume(conversationId); ok && handoff.Ready {
			s.beginTurnLocked(conv, caller, handoff.Question, handoff.Categories)
		}
	} else if _, still := s.handoffs.Peek(conversationId); still {
		// A conversation with history never replays its handoff.
		s.handoffs.Discard(conversationId)
		s.logger.Warn("ConversationService", "Discarded stale handoff for populated conversation", map[string]interface{}{
			"conversation_id": conversationId.String(),
		})
	}

	s.conversations.Save(conv)
	return s.toResponseLocked(conv), nil
}

func (s *conversationService) Ask(ctx context.Context, caller Caller, conversationId uuid.UUID, req *dto.AskRequest) (*dto.ConversationResponse, error) {
	if err := s.limiter.Gate(ctx, caller.ClientKey, caller.SignedIn()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations.Get(conversationId)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}
	if conv.HasInFlight() {
		return nil, dto.ErrTurnInFlight
	}

	if _, err := s.limiter.RecordQuestion(ctx, caller.ClientKey); err != nil {
		return nil, err
	}

	s.beginTurnLocked(conv, caller, req.Question, req.Categories)
	s.conversations.Save(conv)
	return s.toResponseLocked(conv), nil
}

func (s *conversationService) History(ctx context.Context, caller Caller, conversationId uuid.UUID) (*dto.ConversationResponse, error) {
	s.mu.Lock()
	if conv, ok := s.conversations.Get(conversationId); ok {
		res := s.toResponseLocked(conv)
		s.mu.Unlock()
		return res, nil
	}
	s.mu.Unlock()

	pairs, err := s.backend.GetChatHistory(ctx, caller.Identity(), conversationId.String())
	if err != nil {
		return nil, err
	}

	now := s.now()
	conv := &entity.Conversation{
		Id:        conversationId,
		UserKey:   caller.Identity(),
		Turns:     s.mapper.TurnsFromHistory(pairs, now),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations.Save(conv)
	return s.toResponseLocked(conv), nil
}

// beginTurnLocked appends the optimistic pending turn and kicks off the
// remote work. Caller holds s.mu.
func (s *conversationService) beginTurnLocked(conv *entity.Conversation, caller Caller, question string, categories []string) *entity.Turn {
	now := s.now()
	turn := &entity.Turn{
		Id:         uuid.New(),
		Question:   question,
		Categories: categories,
		Status:     entity.TurnStatusPending,
		CreatedAt:  now,
	}
	conv.Turns = append(conv.Turns, turn)
	conv.UpdatedAt = now

	go s.recordMessage(caller.Identity(), conv.Id, constant.ChatMessageRoleUser, question)
	go s.resolveTurn(caller, conv.Id, turn.Id, question, categories)

	return turn
}

// resolveTurn runs the single retrieval call for a pending turn and attaches
// the answer, or the apology when retrieval fails. It runs detached from the
// originating request.
func (s *conversationService) resolveTurn(caller Caller, conversationId, turnId uuid.UUID, question string, categories []string) {
	res, err := s.backend.Retrieve(s.async, &backend.RetrieveRequest{
		Question:  question,
		CaseTypes: categories,
		Limit:     s.retrievalLimit,
	})

	answer := &entity.Answer{Text: constant.ApologyAnswer}
	if err != nil {
		s.logger.Error("ConversationService", "Retrieval failed, answering with apology", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	} else {
		answer = &entity.Answer{
			Text:       res.Response,
			References: s.mapper.ReferencesFromMetadata(res.Metadata),
		}
	}

	s.mu.Lock()
	conv, ok := s.conversations.Get(conversationId)
	if !ok {
		// Evicted while retrieval was in flight. The remote history is
		// still authoritative; nothing local to update.
		s.mu.Unlock()
		s.logger.Warn("ConversationService", "Dropping late answer for evicted conversation", map[string]interface{}{
			"conversation_id": conversationId.String(),
		})
		return
	}
	turn := findTurn(conv, turnId)
	if turn == nil {
		s.mu.Unlock()
		return
	}
	turn.Answer = answer
	turn.Status = entity.TurnStatusAnswered
	turn.RevealInProgress = true
	conv.UpdatedAt = s.now()
	collected := s.collectedIdsLocked(conv)
	s.conversations.Save(conv)
	s.mu.Unlock()

	go s.recordMessage(caller.Identity(), conversationId, constant.ChatMessageRoleAI, answer.Text)
	if len(collected) > 0 {
		go s.appendContext(caller.Identity(), conversationId, collected)
	}

	s.startReveal(caller, conversationId, turnId, answer.Text)
}

// activeReveal is the one reveal a conversation may have in flight, and the
// turn it belongs to. Starting a newer turn's reveal preempts it.
type activeReveal struct {
	engine *reveal.Engine
	turnId uuid.UUID
	text   string
}

func (s *conversationService) startReveal(caller Caller, conversationId, turnId uuid.UUID, text string) {
	s.mu.Lock()
	ar, ok := s.reveals[conversationId]
	if !ok {
		ar = &activeReveal{engine: reveal.NewEngine(constant.RevealChunkSize, constant.RevealTick)}
		s.reveals[conversationId] = ar
	}

	// Preempting a still-revealing turn skips its completion callback, so
	// settle that turn here: clear its flag and deliver its final frame.
	var preempted *dto.RevealFrame
	if ar.turnId != uuid.Nil && ar.turnId != turnId {
		if conv, ok := s.conversations.Get(conversationId); ok {
			if t := findTurn(conv, ar.turnId); t != nil && t.RevealInProgress {
				t.RevealInProgress = false
				s.conversations.Save(conv)
				preempted = &dto.RevealFrame{
					ConversationId: conversationId,
					TurnId:         ar.turnId,
					Text:           ar.text,
					Done:           true,
				}
			}
		}
	}
	ar.turnId = turnId
	ar.text = text
	engine := ar.engine
	s.mu.Unlock()

	if preempted != nil {
		s.delivery.Send(caller.ClientKey, *preempted)
	}

	engine.Start(text,
		func(prefix, delta string) {
			s.delivery.Send(caller.ClientKey, dto.RevealFrame{
				ConversationId: conversationId,
				TurnId:         turnId,
				Text:           prefix,
			})
		},
		func() {
			s.delivery.Send(caller.ClientKey, dto.RevealFrame{
				ConversationId: conversationId,
				TurnId:         turnId,
				Text:           text,
				Done:           true,
			})
			s.finishReveal(conversationId, turnId)
		},
	)
}

// finishReveal clears the turn's reveal flag. Nothing else about the turn
// changes once it is answered. A completion that lost the race to a
// preempting turn must not drop that turn's engine.
func (s *conversationService) finishReveal(conversationId, turnId uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ar, ok := s.reveals[conversationId]; ok && ar.turnId == turnId {
		delete(s.reveals, conversationId)
	}

	conv, ok := s.conversations.Get(conversationId)
	if !ok {
		return
	}
	if turn := findTurn(conv, turnId); turn != nil {
		turn.RevealInProgress = false
		s.conversations.Save(conv)
	}
}

func (s *conversationService) recordMessage(identity string, conversationId uuid.UUID, sender, text string) {
	err := s.backend.AddChatMessage(s.async, identity, conversationId.String(), sender, text)
	if err != nil {
		s.logger.Warn("ConversationService", "Failed to record message remotely", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"sender":          sender,
			"error":           err.Error(),
		})
	}
}

func (s *conversationService) appendContext(identity string, conversationId uuid.UUID, ids []string) {
	err := s.backend.AppendContextHistory(s.async, identity, conversationId.String(), ids)
	if err != nil {
		s.logger.Warn("ConversationService", "Failed to append context history", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}
}

// collectedIdsLocked gathers the deduped reference ids cited across the
// conversation so far. Caller holds s.mu.
func (s *conversationService) collectedIdsLocked(conv *entity.Conversation) []string {
	var refs []entity.Reference
	for _, t := range conv.Turns {
		if t.Answer != nil {
			refs = append(refs, t.Answer.References...)
		}
	}
	return s.mapper.CollectedIds(refs)
}

func (s *conversationService) publishConversationCreated(ctx context.Context, conversationId uuid.UUID, caller Caller) {
	payload, err := json.Marshal(dto.ConversationCreatedMessage{
		ConversationId: conversationId,
		UserKey:        caller.Identity(),
	})
	if err == nil {
		if err := s.publisher.Publish(ctx, constant.TopicConversationCreated, payload); err != nil {
			s.logger.Warn("ConversationService", "Failed to publish conversation event", map[string]interface{}{"error": err.Error()})
		}
	}

	if s.eventPublisher != nil {
		evt := events.NewConversationCreated(conversationId.String(), caller.Identity())
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("ConversationService", "Failed to publish CONVERSATION_CREATED to NATS", map[string]interface{}{"error": err.Error()})
		}
	}
}

func findTurn(conv *entity.Conversation, turnId uuid.UUID) *entity.Turn {
	for _, t := range conv.Turns {
		if t.Id == turnId {
			return t
		}
	}
	return nil
}

// toResponseLocked renders the conversation. The reference processor runs
// here: stored answers keep the raw retrieval set. Caller holds s.mu.
func (s *conversationService) toResponseLocked(conv *entity.Conversation) *dto.ConversationResponse {
	res := &dto.ConversationResponse{
		ConversationId: conv.Id,
		Turns:          make([]dto.TurnDTO, 0, len(conv.Turns)),
	}
	for _, t := range conv.Turns {
		turnDTO := dto.TurnDTO{
			Id:               t.Id,
			Question:         t.Question,
			Categories:       t.Categories,
			Status:           string(t.Status),
			RevealInProgress: t.RevealInProgress,
			CreatedAt:        t.CreatedAt,
		}
		if t.Answer != nil {
			answer := &dto.AnswerDTO{
				Text:       t.Answer.Text,
				References: make([]dto.ReferenceDTO, 0, len(t.Answer.References)),
			}
			for _, ref := range references.Process(t.Answer.References) {
				answer.References = append(answer.References, dto.ReferenceDTO{
					FileId:   ref.FileId,
					CaseType: ref.CaseType,
					Score:    ref.Score,
					Date:     ref.Date,
					Url:      ref.Url,
					Summary:  ref.Summary,
					Text:     ref.Text,
				})
			}
			turnDTO.Answer = answer
		}
		res.Turns = append(res.Turns, turnDTO)
	}
	return res
}
