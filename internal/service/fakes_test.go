package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
)

type fakeTickets struct {
	mu          sync.Mutex
	byID        map[string]domain.Ticket
	numbers     map[string]bool
	dupOnInsert map[string]bool
	seq         int
	slaWrites   [][]domain.Ticket
	updateErr   error
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{
		byID:        map[string]domain.Ticket{},
		numbers:     map[string]bool{},
		dupOnInsert: map[string]bool{},
	}
}

func (f *fakeTickets) Create(_ context.Context, t *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dupOnInsert[t.TicketNumber] || f.numbers[t.TicketNumber] {
		return repository.ErrDuplicateTicketNumber
	}
	f.seq++
	t.ID = fmt.Sprintf("ticket-%d", f.seq)
	t.Version = 1
	f.numbers[t.TicketNumber] = true
	f.byID[t.ID] = *t
	return nil
}

func (f *fakeTickets) Update(_ context.Context, t *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.byID[t.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if stored.Version != t.Version {
		return repository.ErrStaleTicket
	}
	t.Version++
	f.byID[t.ID] = *t
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (f *fakeTickets) ExistsByNumber(_ context.Context, number string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numbers[number], nil
}

func (f *fakeTickets) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for i := 1; i <= f.seq; i++ {
		t, ok := f.byID[fmt.Sprintf("ticket-%d", i)]
		if !ok {
			continue
		}
		if filter.RequesterID != nil && t.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.AgentScopeID != nil && t.AssignedAgentID != nil && *t.AssignedAgentID != *filter.AgentScopeID {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(*filter.SearchTerm)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTickets) ListByStatuses(_ context.Context, statuses []domain.TicketStatus) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.byID {
		for _, st := range statuses {
			if t.Status == st {
				out = append(out, t)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTickets) ListCreatedBetween(_ context.Context, from, to time.Time) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTickets) UpdateSLAStatuses(_ context.Context, tickets []domain.Ticket) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slaWrites = append(f.slaWrites, tickets)
	for _, t := range tickets {
		stored := f.byID[t.ID]
		stored.FirstResponseSLAStatus = t.FirstResponseSLAStatus
		stored.ResolutionSLAStatus = t.ResolutionSLAStatus
		f.byID[t.ID] = stored
	}
	return nil, nil
}

func (f *fakeTickets) put(t domain.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("ticket-%d", f.seq)
	}
	if t.Version == 0 {
		t.Version = 1
	}
	f.byID[t.ID] = t
}

type fakeComments struct {
	mu        sync.Mutex
	comments  []domain.TicketComment
	seq       int
	createErr error
}

func (f *fakeComments) Create(_ context.Context, c *domain.TicketComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	c.ID = fmt.Sprintf("comment-%d", f.seq)
	f.comments = append(f.comments, *c)
	return nil
}

func (f *fakeComments) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.comments {
		if f.comments[i].ID == id {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeComments) ListByTicket(_ context.Context, ticketID string, types []domain.CommentType) ([]domain.TicketComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketComment
	for _, c := range f.comments {
		if c.TicketID != ticketID {
			continue
		}
		if len(types) > 0 && !containsType(types, c.Type) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeComments) CountPublic(_ context.Context, ticketID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.comments {
		if c.TicketID == ticketID && c.Type == domain.CommentTypePublic {
			count++
		}
	}
	return count, nil
}

func (f *fakeComments) ofType(kind domain.CommentType) []domain.TicketComment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketComment
	for _, c := range f.comments {
		if c.Type == kind {
			out = append(out, c)
		}
	}
	return out
}

func containsType(types []domain.CommentType, kind domain.CommentType) bool {
	for _, t := range types {
		if t == kind {
			return true
		}
	}
	return false
}

type fakeCategories struct {
	byID map[string]*domain.Category
}

func (f *fakeCategories) Create(_ context.Context, c *domain.Category) error {
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCategories) ListActive(_ context.Context) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range f.byID {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakeUsers struct {
	byID map[string]*domain.User
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*domain.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = fmt.Sprintf("user-%d", len(f.byID)+1)
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeHistory struct {
	entries   []domain.TicketHistory
	createErr error
}

func (f *fakeHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, *h)
	return nil
}

func (f *fakeHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	for _, h := range f.entries {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

type recordingSink struct {
	mu     sync.Mutex
	names  []string
	events []any
}

func (r *recordingSink) record(name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.events = append(r.events, payload)
}

func (r *recordingSink) TicketCreated(_ context.Context, e events.TicketCreated) {
	r.record("created", e)
}

func (r *recordingSink) TicketAssigned(_ context.Context, e events.TicketAssigned) {
	r.record("assigned", e)
}

func (r *recordingSink) FirstResponse(_ context.Context, e events.FirstResponse) {
	r.record("first_response", e)
}

func (r *recordingSink) TicketResolved(_ context.Context, e events.TicketResolved) {
	r.record("resolved", e)
}

func (r *recordingSink) TicketCommented(_ context.Context, e events.TicketCommented) {
	r.record("commented", e)
}

func (r *recordingSink) SLABreached(_ context.Context, e events.SLABreached) {
	r.record("sla_breached", e)
}

func (r *recordingSink) TicketStatusChanged(_ context.Context, e events.TicketStatusChanged) {
	r.record("status_changed", e)
}

func (r *recordingSink) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.names {
		if got == name {
			n++
		}
	}
	return n
}

type sequenceNumbers struct {
	values []string
	calls  int
}

func (s *sequenceNumbers) Next() string {
	idx := s.calls
	if idx >= len(s.values) {
		idx = len(s.values) - 1
	}
	s.calls++
	return s.values[idx]
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
