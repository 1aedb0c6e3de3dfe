package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/category"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/lifecycle"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/sla"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// DefaultTicketNumberAttempts bounds ticket number generation.
const DefaultTicketNumberAttempts = 10

const (
	maxTitleLength = 200
	previewLength  = 120
)

var requesterEditableFields = map[string]bool{
	"title":          true,
	"description":    true,
	"additionalData": true,
}

var staffEditableFields = map[string]bool{
	"title":          true,
	"description":    true,
	"additionalData": true,
	"priority":       true,
}

// NumberGenerator produces ticket number candidates.
type NumberGenerator interface {
	Next() string
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	categories  repository.CategoryRepository
	users       repository.UserRepository
	calc        *sla.Calculator
	machine     *lifecycle.Machine
	numbers     NumberGenerator
	sink        events.Sink
	logger      *zap.Logger
	maxAttempts int
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo        repository.TicketRepository
	CommentRepo       repository.CommentRepository
	CategoryRepo      repository.CategoryRepository
	UserRepo          repository.UserRepository
	Calculator        *sla.Calculator
	Numbers           NumberGenerator
	Sink              events.Sink
	Logger            *zap.Logger
	MaxNumberAttempts int
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CategoryID     string
	Title          string
	Description    string
	Priority       domain.TicketPriority
	AdditionalData map[string]any
}

// TicketListFilter describes listing filters. Role scoping is applied on top.
type TicketListFilter struct {
	Statuses        []domain.TicketStatus
	Priorities      []domain.TicketPriority
	CategoryID      *string
	AssignedAgentID *string
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sink := deps.Sink
	if sink == nil {
		sink = events.NewDispatcherSink(nil)
	}
	attempts := deps.MaxNumberAttempts
	if attempts <= 0 {
		attempts = DefaultTicketNumberAttempts
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		categories:  deps.CategoryRepo,
		users:       deps.UserRepo,
		calc:        deps.Calculator,
		machine:     lifecycle.NewMachine(deps.Calculator),
		numbers:     deps.Numbers,
		sink:        sink,
		logger:      logger,
		maxAttempts: attempts,
	}
}

// CreateTicket opens a ticket for actor against an active category. Due
// dates and the category snapshot are fixed here and never recomputed.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if len(title) > maxTitleLength {
		return nil, apperrors.NewValidationError("title is too long", map[string]any{"max_length": maxTitleLength})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": string(priority)})
	}

	cat, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": input.CategoryID})
		}
		return nil, apperrors.MapError(err)
	}
	if !cat.IsActive {
		return nil, apperrors.NewBadRequest("selected category is not active")
	}
	if err := category.CheckFieldData(cat.AdditionalFields, input.AdditionalData); err != nil {
		return nil, err
	}

	now := s.calc.Now()
	firstResponseDue, resolutionDue := category.DueDates(now, cat.SLA)
	data := input.AdditionalData
	if data == nil {
		data = map[string]any{}
	}
	ticket := &domain.Ticket{
		RequesterID:            actor.ID,
		CategoryID:             cat.ID,
		Title:                  title,
		Description:            description,
		Status:                 domain.TicketStatusOpen,
		Priority:               priority,
		AdditionalData:         data,
		FirstResponseDue:       firstResponseDue,
		ResolutionDue:          resolutionDue,
		FirstResponseSLAStatus: domain.SLAStatusOnTime,
		ResolutionSLAStatus:    domain.SLAStatusOnTime,
		CategorySnapshot:       category.Snapshot(cat),
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.insertWithUniqueNumber(ctx, ticket); err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("ticket_number", ticket.TicketNumber),
		zap.Time("first_response_due", ticket.FirstResponseDue),
		zap.Time("resolution_due", ticket.ResolutionDue))
	s.sink.TicketCreated(ctx, events.TicketCreated{
		Ticket:     events.RefOf(ticket),
		CategoryID: ticket.CategoryID,
		ActorID:    actor.ID,
	})
	return ticket, nil
}

func (s *TicketService) insertWithUniqueNumber(ctx context.Context, ticket *domain.Ticket) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		candidate := s.numbers.Next()
		exists, err := s.tickets.ExistsByNumber(ctx, candidate)
		if err != nil {
			return apperrors.MapError(err)
		}
		if exists {
			s.logger.Debug("ticket number collision", zap.String("ticket_number", candidate), zap.Int("attempt", attempt))
			continue
		}
		ticket.TicketNumber = candidate
		err = s.tickets.Create(ctx, ticket)
		if errors.Is(err, repository.ErrDuplicateTicketNumber) {
			s.logger.Debug("ticket number taken on insert", zap.String("ticket_number", candidate), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return apperrors.MapError(err)
		}
		return nil
	}
	ticket.TicketNumber = ""
	return apperrors.NewConflict("could not generate unique ticket number", map[string]any{"attempts": s.maxAttempts})
}

// UpdateTicket applies a partial update. Keys outside the actor's editable
// set reject the whole request with the offending field names.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, ticketID string, changes map[string]any) (*domain.Ticket, error) {
	if len(changes) == 0 {
		return nil, apperrors.NewValidationError("no fields to update", nil)
	}
	editable := staffEditableFields
	if actor.Role == domain.UserRoleRequester {
		editable = requesterEditableFields
	}
	var forbidden []string
	for field := range changes {
		if !editable[field] {
			forbidden = append(forbidden, field)
		}
	}
	if len(forbidden) > 0 {
		return nil, apperrors.NewForbiddenFields(forbidden)
	}

	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	before := sla.StatusesOf(ticket)

	if raw, ok := changes["title"]; ok {
		title, isString := raw.(string)
		title = strings.TrimSpace(title)
		if !isString || title == "" || len(title) > maxTitleLength {
			return nil, apperrors.NewValidationError("invalid title", map[string]any{"field": "title"})
		}
		ticket.Title = title
	}
	if raw, ok := changes["description"]; ok {
		description, isString := raw.(string)
		description = strings.TrimSpace(description)
		if !isString || description == "" {
			return nil, apperrors.NewValidationError("invalid description", map[string]any{"field": "description"})
		}
		ticket.Description = description
	}
	if raw, ok := changes["priority"]; ok {
		value, _ := raw.(string)
		priority := domain.TicketPriority(value)
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
		}
		ticket.Priority = priority
	}
	if raw, ok := changes["additionalData"]; ok {
		data, isMap := raw.(map[string]any)
		if !isMap {
			return nil, apperrors.NewValidationError("additionalData must be an object", map[string]any{"field": "additionalData"})
		}
		if err := category.CheckFieldData(ticket.CategorySnapshot.AdditionalFields, data); err != nil {
			return nil, err
		}
		ticket.AdditionalData = data
	}

	s.calc.UpdateTicketSLAStatus(ticket)
	if err := s.save(ctx, ticket, before); err != nil {
		return nil, err
	}
	return ticket, nil
}

// TransitionStatus moves a ticket along the lifecycle table.
func (s *TicketService) TransitionStatus(ctx context.Context, actor domain.Actor, ticketID string, target domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	from, before := ticket.Status, sla.StatusesOf(ticket)
	if err := s.machine.Transition(ticket, target, actor.Role); err != nil {
		return nil, err
	}
	if err := s.save(ctx, ticket, before); err != nil {
		return nil, err
	}
	s.emitStatusChange(ctx, actor, ticket, from)
	return ticket, nil
}

// AssignTicket hands an open-family ticket to an agent or manager and moves
// it to in_progress.
func (s *TicketService) AssignTicket(ctx context.Context, actor domain.Actor, ticketID, agentID string) (*domain.Ticket, error) {
	if !actor.Role.CanManageTickets() {
		return nil, apperrors.NewForbidden("only agents and managers can assign tickets")
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.CanBeAssigned() {
		return nil, apperrors.NewBadRequest("ticket cannot be assigned in its current state")
	}
	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if agent == nil || !agent.IsActive || !agent.CanManageTickets() {
		return nil, apperrors.NewBadRequest("invalid agent for assignment")
	}

	from, before := ticket.Status, sla.StatusesOf(ticket)
	ticket.AssignedAgentID = &agent.ID
	ticket.Status = domain.TicketStatusInProgress
	ticket.UpdatedAt = s.calc.Now()
	s.calc.UpdateTicketSLAStatus(ticket)
	if err := s.save(ctx, ticket, before); err != nil {
		return nil, err
	}

	s.addSystemComment(ctx, ticket.ID, actor.ID, fmt.Sprintf("Ticket assigned to %s", agent.FullName))
	s.sink.TicketAssigned(ctx, events.TicketAssigned{
		Ticket:       events.RefOf(ticket),
		AgentID:      agent.ID,
		AgentName:    agent.FullName,
		AssignedByID: actor.ID,
	})
	if from != ticket.Status {
		s.sink.TicketStatusChanged(ctx, events.TicketStatusChanged{
			Ticket:  events.RefOf(ticket),
			From:    from,
			To:      ticket.Status,
			ActorID: actor.ID,
		})
	}
	return ticket, nil
}

// ResolveTicket marks an in_progress ticket resolved.
func (s *TicketService) ResolveTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	if !actor.Role.CanManageTickets() {
		return nil, apperrors.NewForbidden("only agents and managers can resolve tickets")
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.CanBeResolved() {
		return nil, apperrors.NewBadRequest("ticket cannot be resolved in its current state")
	}
	return s.transitionWithComment(ctx, actor, ticket, domain.TicketStatusResolved, "Ticket resolved by %s")
}

// CloseTicket closes a resolved ticket. Requesters may only close their own.
func (s *TicketService) CloseTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewBadRequest("only resolved tickets can be closed")
	}
	if actor.Role == domain.UserRoleRequester && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("you can only close your own tickets")
	}
	return s.transitionWithComment(ctx, actor, ticket, domain.TicketStatusClosed, "Ticket closed by %s")
}

// ReopenTicket moves a closed ticket back to open.
func (s *TicketService) ReopenTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewBadRequest("only closed tickets can be reopened")
	}
	if actor.Role == domain.UserRoleRequester && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("you can only reopen your own tickets")
	}
	return s.transitionWithComment(ctx, actor, ticket, domain.TicketStatusOpen, "Ticket reopened by %s")
}

func (s *TicketService) transitionWithComment(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, target domain.TicketStatus, note string) (*domain.Ticket, error) {
	from, before := ticket.Status, sla.StatusesOf(ticket)
	if err := s.machine.Transition(ticket, target, actor.Role); err != nil {
		return nil, err
	}
	if err := s.save(ctx, ticket, before); err != nil {
		return nil, err
	}
	s.addSystemComment(ctx, ticket.ID, actor.ID, fmt.Sprintf(note, actor.DisplayName()))
	s.emitStatusChange(ctx, actor, ticket, from)
	return ticket, nil
}

// AddComment appends a comment. The first public comment by an agent or
// manager on a ticket without public comments is its first response.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID, content string, commentType domain.CommentType) (*domain.TicketComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", nil)
	}
	if commentType == "" {
		commentType = domain.CommentTypePublic
	}
	switch commentType {
	case domain.CommentTypePublic:
	case domain.CommentTypeInternal:
		if !actor.Role.CanManageTickets() {
			return nil, apperrors.NewForbidden("requesters cannot create internal comments")
		}
	default:
		return nil, apperrors.NewValidationError("invalid comment type", map[string]any{"type": string(commentType)})
	}

	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	isFirstResponse := false
	if commentType == domain.CommentTypePublic && actor.Role.CanManageTickets() {
		publicCount, err := s.comments.CountPublic(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		isFirstResponse = publicCount == 0
	}

	comment := &domain.TicketComment{
		TicketID:        ticket.ID,
		AuthorID:        actor.ID,
		Type:            commentType,
		Content:         content,
		IsFirstResponse: isFirstResponse,
		CreatedAt:       s.calc.Now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if isFirstResponse && ticket.FirstResponseAt == nil {
		before := sla.StatusesOf(ticket)
		respondedAt := comment.CreatedAt
		ticket.FirstResponseAt = &respondedAt
		s.calc.UpdateTicketSLAStatus(ticket)
		if err := s.save(ctx, ticket, before); err != nil {
			s.discardComment(ctx, comment)
			return nil, err
		}
		s.sink.FirstResponse(ctx, events.FirstResponse{
			Ticket:      events.RefOf(ticket),
			CommentID:   comment.ID,
			ActorID:     actor.ID,
			RespondedAt: respondedAt,
		})
	}

	s.sink.TicketCommented(ctx, events.TicketCommented{
		Ticket:      events.RefOf(ticket),
		CommentID:   comment.ID,
		CommentType: comment.Type,
		ActorID:     actor.ID,
		Preview:     stringPreview(comment.Content, previewLength),
	})
	return comment, nil
}

// ListComments returns the thread. Requesters see public comments only.
func (s *TicketService) ListComments(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketComment, error) {
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	var types []domain.CommentType
	if actor.Role == domain.UserRoleRequester {
		types = []domain.CommentType{domain.CommentTypePublic}
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, types)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// GetTicket loads a ticket in the actor's scope with fresh SLA statuses.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	tickets := []domain.Ticket{*ticket}
	s.refreshAndPersist(ctx, tickets)
	return &tickets[0], nil
}

// ListTickets lists tickets in the actor's scope with fresh SLA statuses.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Statuses:        filter.Statuses,
		Priorities:      filter.Priorities,
		CategoryID:      filter.CategoryID,
		AssignedAgentID: filter.AssignedAgentID,
		SearchTerm:      filter.SearchTerm,
		CreatedFrom:     filter.CreatedFrom,
		CreatedTo:       filter.CreatedTo,
		Limit:           filter.Limit,
		Offset:          filter.Offset,
	}
	switch actor.Role {
	case domain.UserRoleRequester:
		repoFilter.RequesterID = &actor.ID
	case domain.UserRoleAgent:
		repoFilter.AgentScopeID = &actor.ID
	case domain.UserRoleManager:
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.refreshAndPersist(ctx, tickets)
	return tickets, nil
}

// RecomputeSLA refreshes both SLA statuses of ticket in place.
func (s *TicketService) RecomputeSLA(ticket *domain.Ticket) {
	s.calc.UpdateTicketSLAStatus(ticket)
}

// refreshAndPersist recomputes SLA on read and writes back only the tickets
// whose statuses moved, emitting the breach edges of the rows it wrote.
// Failures are logged; the read still succeeds.
func (s *TicketService) refreshAndPersist(ctx context.Context, tickets []domain.Ticket) {
	detectedAt := s.calc.Now()
	changed := make([]domain.Ticket, 0)
	edges := map[string][]events.SLABreached{}
	for i := range tickets {
		before := sla.StatusesOf(&tickets[i])
		s.calc.UpdateTicketSLAStatus(&tickets[i])
		if before.Changed(&tickets[i]) {
			changed = append(changed, tickets[i])
			edges[tickets[i].ID] = sla.BreachEdges(before, &tickets[i], detectedAt)
		}
	}
	if len(changed) == 0 {
		return
	}
	staleIDs, err := s.tickets.UpdateSLAStatuses(ctx, changed)
	if err != nil {
		s.logger.Warn("failed to persist sla statuses on read", zap.Int("tickets", len(changed)), zap.Error(err))
		return
	}
	stale := make(map[string]bool, len(staleIDs))
	for _, id := range staleIDs {
		stale[id] = true
	}
	for i := range changed {
		if !stale[changed[i].ID] {
			s.emitBreaches(ctx, edges[changed[i].ID])
		}
	}
}

func (s *TicketService) loadTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundTicket(ticketID)
		}
		return nil, apperrors.MapError(err)
	}
	if !canAccess(actor, ticket) {
		return nil, notFoundTicket(ticketID)
	}
	return ticket, nil
}

func notFoundTicket(ticketID string) error {
	return apperrors.NewNotFound("ticket", map[string]any{
		"ticket_id": ticketID,
		"reason":    "not found or access denied",
	})
}

// canAccess: requesters see their own tickets, agents see tickets assigned
// to them or unassigned, managers see everything.
func canAccess(actor domain.Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.UserRoleManager:
		return true
	case domain.UserRoleAgent:
		return ticket.AssignedAgentID == nil || *ticket.AssignedAgentID == actor.ID
	case domain.UserRoleRequester:
		return ticket.RequesterID == actor.ID
	}
	return false
}

// save persists ticket and emits the breach edges between before and the
// saved statuses.
func (s *TicketService) save(ctx context.Context, ticket *domain.Ticket, before sla.TrackStatuses) error {
	err := s.tickets.Update(ctx, ticket)
	switch {
	case err == nil:
		s.emitBreaches(ctx, sla.BreachEdges(before, ticket, s.calc.Now()))
		return nil
	case errors.Is(err, repository.ErrStaleTicket):
		return apperrors.NewConflict("ticket was modified by another request", map[string]any{"ticket_id": ticket.ID})
	case errors.Is(err, pgx.ErrNoRows):
		return notFoundTicket(ticket.ID)
	default:
		return apperrors.MapError(err)
	}
}

func (s *TicketService) emitBreaches(ctx context.Context, edges []events.SLABreached) {
	for _, e := range edges {
		s.sink.SLABreached(ctx, e)
	}
}

// discardComment removes a comment whose ticket update failed so the next
// staff reply can still become the first response.
func (s *TicketService) discardComment(ctx context.Context, comment *domain.TicketComment) {
	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		s.logger.Error("failed to discard comment after ticket save failed",
			zap.String("ticket_id", comment.TicketID),
			zap.String("comment_id", comment.ID),
			zap.Error(err))
	}
}

func (s *TicketService) emitStatusChange(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, from domain.TicketStatus) {
	if ticket.Status == domain.TicketStatusResolved && ticket.ResolvedAt != nil {
		s.sink.TicketResolved(ctx, events.TicketResolved{
			Ticket:     events.RefOf(ticket),
			ActorID:    actor.ID,
			ResolvedAt: *ticket.ResolvedAt,
		})
	}
	s.sink.TicketStatusChanged(ctx, events.TicketStatusChanged{
		Ticket:  events.RefOf(ticket),
		From:    from,
		To:      ticket.Status,
		ActorID: actor.ID,
	})
}

func (s *TicketService) addSystemComment(ctx context.Context, ticketID, authorID, content string) {
	comment := &domain.TicketComment{
		TicketID:  ticketID,
		AuthorID:  authorID,
		Type:      domain.CommentTypeSystem,
		Content:   content,
		CreatedAt: s.calc.Now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Warn("failed to add system comment", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
