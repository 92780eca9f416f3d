package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wingman/app/config"
	"wingman/app/model"
	"wingman/app/service/store"
	"wingman/app/service/venues"

	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

// venueSuggester supplies meeting-spot ideas for the reply prompt. A failure
// here only costs the suggestions, it never fails the generation call.
type venueSuggester interface {
	Suggest(ctx context.Context, venueType string) ([]string, error)
}

// Service is the conversation engine. It owns per-match dialogue state,
// decides what to request from the model, and persists every successful
// mutation. Calls for distinct match ids run concurrently; calls for the same
// match id are serialized.
type Service struct {
	cfg    *config.Config
	store  store.Store
	venues venueSuggester

	readinessAgent *ReadinessAgent
	replyAgent     *ReplyAgent
	now            func() time.Time

	mu            sync.Mutex
	conversations map[string]*model.ConversationState
	locks         map[string]*sync.Mutex
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)
	st := do.MustInvoke[store.Store](di)
	venuesSvc := do.MustInvoke[*venues.Service](di)

	timeout := time.Duration(cfg.Engine.RequestTimeoutSeconds) * time.Second
	personaBlock := personaProfile(cfg.Persona).Render()

	readinessAgent := NewReadinessAgent(createClient(cfg.OpenAI.Readiness), cfg.OpenAI.Readiness.Model, timeout)
	replyAgent := NewReplyAgent(createClient(cfg.OpenAI.Reply), cfg.OpenAI.Reply.Model, personaBlock, timeout)

	if cfg.OpenAI.Refine != nil {
		replyAgent = replyAgent.WithRefine(createClient(*cfg.OpenAI.Refine), cfg.OpenAI.Refine.Model)
	}

	s := newService(cfg, st, venuesSvc, readinessAgent, replyAgent)

	if err := s.open(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func newService(
	cfg *config.Config,
	st store.Store,
	venuesSvc venueSuggester,
	readinessAgent *ReadinessAgent,
	replyAgent *ReplyAgent,
) *Service {
	return &Service{
		cfg:            cfg,
		store:          st,
		venues:         venuesSvc,
		readinessAgent: readinessAgent,
		replyAgent:     replyAgent,
		now:            time.Now,
		conversations:  make(map[string]*model.ConversationState),
		locks:          make(map[string]*sync.Mutex),
	}
}

// open restores every persisted conversation, readiness fields included.
func (s *Service) open(ctx context.Context) error {
	states, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("store.LoadAll: %w", err)
	}

	s.mu.Lock()
	s.conversations = states
	s.mu.Unlock()

	slog.Info("Loaded conversations", "count", len(states))

	return nil
}

// GenerateOpener produces the first outgoing message for a match. Exactly one
// message, the generated opener, is appended and persisted.
func (s *Service) GenerateOpener(ctx context.Context, profile model.MatchProfile) (string, error) {
	if profile.MatchID == "" {
		return "", fmt.Errorf("%w: match_id is required", ErrInvalidRequest)
	}

	unlock := s.lockMatch(profile.MatchID)
	defer unlock()

	state := s.current(profile.MatchID, profile)
	if state.ReadyToMeet {
		return "", s.matchReady(state)
	}

	next := state.Clone()
	next.SnapshotProfile(profile)

	history := "SENT: " + conversationStartMarker
	if len(next.Messages) > 0 {
		history = renderHistory(next.Messages)
	}

	text, err := s.replyAgent.Call(ctx, replyInput{
		ProfileBlock: next.Profile.Render(),
		History:      history,
		Task:         openerTask,
	})
	if err != nil {
		return "", fmt.Errorf("replyAgent.Call: %w", err)
	}

	if err = s.checkLength(text); err != nil {
		return "", err
	}

	now := s.now()
	next.Append(text, false, now)
	next.LastInteraction = now

	if err = s.store.Save(ctx, next); err != nil {
		return "", fmt.Errorf("store.Save: %w", err)
	}

	s.commit(next)

	return text, nil
}

// GenerateReply ingests the latest inbound message, classifies readiness once
// the history is long enough, and produces a reply. The whole unit is atomic:
// a failed classification, generation or save leaves the state untouched.
func (s *Service) GenerateReply(ctx context.Context, profile model.MatchProfile, incoming []model.Message) (string, error) {
	if profile.MatchID == "" {
		return "", fmt.Errorf("%w: match_id is required", ErrInvalidRequest)
	}

	if len(incoming) == 0 {
		return "", fmt.Errorf("%w: at least one incoming message is required", ErrInvalidRequest)
	}

	unlock := s.lockMatch(profile.MatchID)
	defer unlock()

	state := s.current(profile.MatchID, profile)
	if state.ReadyToMeet {
		return "", s.matchReady(state)
	}

	next := state.Clone()
	next.SnapshotProfile(profile)

	now := s.now()

	// The scraped batch may re-include lines we already recorded; its final
	// element is the trigger, the rest is carrier context.
	trigger := incoming[len(incoming)-1]
	next.Append(trigger.Text, true, now)

	if len(next.Messages) > s.cfg.Engine.ReadinessMinMessages {
		verdict, err := s.readinessAgent.Call(ctx, renderHistory(next.Messages))
		if err != nil {
			return "", fmt.Errorf("readinessAgent.Call: %w", err)
		}

		slog.Debug("Readiness check completed",
			"match_id", next.MatchID,
			"ready_to_meet", verdict.ReadyToMeet,
			"rationale", verdict.Rationale,
		)

		if verdict.ReadyToMeet {
			next.MarkReady(now)
			next.LastInteraction = now

			if err = s.store.Save(ctx, next); err != nil {
				return "", fmt.Errorf("store.Save: %w", err)
			}

			s.commit(next)

			slog.Info("Match is ready to meet",
				"match_id", next.MatchID,
				"name", next.Profile.Name,
				"rationale", verdict.Rationale,
				"telegram", true,
			)

			return "", s.matchReady(next)
		}
	}

	text, err := s.replyAgent.Call(ctx, replyInput{
		ProfileBlock: next.Profile.Render(),
		History:      renderHistory(next.Messages),
		Task:         replyTask,
		VenueIdeas:   s.venueIdeas(ctx),
	})
	if err != nil {
		return "", fmt.Errorf("replyAgent.Call: %w", err)
	}

	if err = s.checkLength(text); err != nil {
		return "", err
	}

	now = s.now()
	next.Append(text, false, now)
	next.LastInteraction = now

	if err = s.store.Save(ctx, next); err != nil {
		return "", fmt.Errorf("store.Save: %w", err)
	}

	s.commit(next)

	return text, nil
}

func (s *Service) lockMatch(matchID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[matchID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[matchID] = lock
	}
	s.mu.Unlock()

	lock.Lock()

	return lock.Unlock
}

// current returns the tracked state for the match, or a fresh one that is
// only adopted into the map by commit after a successful save.
func (s *Service) current(matchID string, profile model.MatchProfile) *model.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.conversations[matchID]; ok {
		return state
	}

	return model.NewConversationState(matchID, profile, s.now())
}

func (s *Service) commit(next *model.ConversationState) {
	s.mu.Lock()
	s.conversations[next.MatchID] = next
	s.mu.Unlock()
}

func (s *Service) matchReady(state *model.ConversationState) error {
	since := state.LastInteraction
	if state.ReadinessTimestamp != nil {
		since = *state.ReadinessTimestamp
	}

	return &MatchReadyError{
		MatchID: state.MatchID,
		Name:    state.Profile.Name,
		Since:   since,
	}
}

func (s *Service) checkLength(text string) error {
	if len(text) > s.cfg.Engine.MaxMessageLength {
		return fmt.Errorf("%w: response is too long (%d > %d)",
			ErrGenerationUnavailable, len(text), s.cfg.Engine.MaxMessageLength)
	}

	return nil
}

// venueIdeas runs under the per-match lock, so the lookup gets the same
// deadline the agents use; a hung venue server must not stall the match.
func (s *Service) venueIdeas(ctx context.Context) []string {
	if s.venues == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Engine.RequestTimeoutSeconds)*time.Second)
	defer cancel()

	ideas, err := s.venues.Suggest(ctx, s.cfg.Venues.DefaultType)
	if err != nil {
		slog.Warn("Venue lookup failed", "error", err)
		return nil
	}

	return ideas
}

// Shutdown flushes every conversation. Saves are idempotent, so states that
// were already persisted incrementally write nothing new.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	states := make([]*model.ConversationState, 0, len(s.conversations))
	for _, state := range s.conversations {
		states = append(states, state)
	}
	s.mu.Unlock()

	var errs []error
	for _, state := range states {
		if err := s.store.Save(context.Background(), state); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
