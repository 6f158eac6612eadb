package leave_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-hris-leave/internal/leave"
	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/messaging/kafka"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the leave tables. serialTx runs one
// transaction at a time against it and restores a snapshot on error, which
// models row locks plus rollback.
type memStore struct {
	mu        sync.Mutex
	employees map[uuid.UUID]leave.Employee
	types     map[uuid.UUID]leave.LeaveType
	balances  map[leave.BalanceKey]leave.LeaveBalance
	requests  map[uuid.UUID]leave.LeaveRequest
	outbox    []kafka.OutboxEvent

	// failCreateRequest makes CreateRequest fail after the ledger write.
	failCreateRequest error
}

func newMemStore() *memStore {
	return &memStore{
		employees: map[uuid.UUID]leave.Employee{},
		types:     map[uuid.UUID]leave.LeaveType{},
		balances:  map[leave.BalanceKey]leave.LeaveBalance{},
		requests:  map[uuid.UUID]leave.LeaveRequest{},
	}
}

type memSnapshot struct {
	balances map[leave.BalanceKey]leave.LeaveBalance
	requests map[uuid.UUID]leave.LeaveRequest
	outbox   int
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		balances: make(map[leave.BalanceKey]leave.LeaveBalance, len(s.balances)),
		requests: make(map[uuid.UUID]leave.LeaveRequest, len(s.requests)),
		outbox:   len(s.outbox),
	}
	for k, v := range s.balances {
		snap.balances[k] = v
	}
	for k, v := range s.requests {
		snap.requests[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances = snap.balances
	s.requests = snap.requests
	s.outbox = s.outbox[:snap.outbox]
}

func (s *memStore) balance(key leave.BalanceKey) leave.LeaveBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[key]
}

func (s *memStore) request(id string) leave.LeaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[uuid.MustParse(id)]
}

func (s *memStore) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *memStore) outboxEvents() []kafka.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]kafka.OutboxEvent(nil), s.outbox...)
}

type serialTx struct {
	mu    sync.Mutex
	store *memStore
}

func (t *serialTx) WithinTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.store.snapshot()
	if err := fn(nil); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type memRepo struct {
	store *memStore
}

func (r *memRepo) WithTx(*gorm.DB) leave.Repository { return r }

func (r *memRepo) LockEmployee(_ context.Context, organizationID, employeeID string) (*leave.Employee, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	e, ok := r.store.employees[uuid.MustParse(employeeID)]
	if !ok || e.OrganizationID.String() != organizationID {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (r *memRepo) FindLeaveType(_ context.Context, organizationID, leaveTypeID string) (*leave.LeaveType, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	lt, ok := r.store.types[uuid.MustParse(leaveTypeID)]
	if !ok || lt.OrganizationID.String() != organizationID {
		return nil, gorm.ErrRecordNotFound
	}
	return &lt, nil
}

func (r *memRepo) FindLeaveTypesByOrganization(_ context.Context, organizationID string) ([]leave.LeaveType, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []leave.LeaveType
	for _, lt := range r.store.types {
		if lt.OrganizationID.String() == organizationID {
			out = append(out, lt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) HasOverlappingRequest(_ context.Context, employeeID uuid.UUID, start, end time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, req := range r.store.requests {
		if req.EmployeeID == employeeID && req.Status.IsActive() &&
			leave.RangesOverlap(req.StartDate, req.EndDate, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) FindBalance(_ context.Context, key leave.BalanceKey) (*leave.LeaveBalance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	b, ok := r.store.balances[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r *memRepo) FindBalanceForUpdate(ctx context.Context, key leave.BalanceKey) (*leave.LeaveBalance, error) {
	return r.FindBalance(ctx, key)
}

func (r *memRepo) FindBalances(_ context.Context, organizationID string, employeeID uuid.UUID, year int) ([]leave.LeaveBalance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []leave.LeaveBalance
	for _, b := range r.store.balances {
		lt := r.store.types[b.LeaveTypeID]
		if b.EmployeeID != employeeID || lt.OrganizationID.String() != organizationID {
			continue
		}
		if year > 0 && b.Year != year {
			continue
		}
		b.LeaveType = &lt
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func (r *memRepo) UpdateBalance(_ context.Context, b *leave.LeaveBalance, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.balances[b.Key()]
	if !ok || current.Version != expectedVersion {
		return leaveerrors.ErrConcurrentUpdate
	}
	stored := *b
	stored.LeaveType = nil
	r.store.balances[b.Key()] = stored
	return nil
}

func (r *memRepo) CreateBalanceIfAbsent(_ context.Context, b *leave.LeaveBalance) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.balances[b.Key()]; ok {
		return false, nil
	}
	r.store.balances[b.Key()] = *b
	return true, nil
}

func (r *memRepo) CreateRequest(_ context.Context, l *leave.LeaveRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failCreateRequest != nil {
		return r.store.failCreateRequest
	}
	stored := *l
	stored.LeaveType = nil
	r.store.requests[l.ID] = stored
	return nil
}

func (r *memRepo) FindRequest(_ context.Context, organizationID, id string) (*leave.LeaveRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	req, ok := r.store.requests[uuid.MustParse(id)]
	if !ok || req.OrganizationID.String() != organizationID {
		return nil, gorm.ErrRecordNotFound
	}
	lt := r.store.types[req.LeaveTypeID]
	req.LeaveType = &lt
	return &req, nil
}

func (r *memRepo) FindRequestForUpdate(ctx context.Context, organizationID, id string) (*leave.LeaveRequest, error) {
	return r.FindRequest(ctx, organizationID, id)
}

func (r *memRepo) FindRequests(_ context.Context, organizationID string, filter leave.RequestFilter) ([]leave.LeaveRequest, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []leave.LeaveRequest
	for _, req := range r.store.requests {
		if req.OrganizationID.String() != organizationID {
			continue
		}
		if filter.EmployeeID != nil && req.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Year > 0 && req.StartDate.Year() != filter.Year {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })

	total := int64(len(out))
	if filter.Offset >= total {
		return []leave.LeaveRequest{}, total, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (r *memRepo) UpdateRequest(_ context.Context, l *leave.LeaveRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored := *l
	stored.LeaveType = nil
	r.store.requests[l.ID] = stored
	return nil
}

type memOutbox struct {
	store *memStore
}

func (o *memOutbox) WithTx(*gorm.DB) kafka.OutboxRepository { return o }

func (o *memOutbox) Create(_ context.Context, event kafka.OutboxEvent) error {
	if err := kafka.ValidateOutboxEvent(event); err != nil {
		return err
	}
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	o.store.outbox = append(o.store.outbox, event)
	return nil
}

func (o *memOutbox) ListPending(context.Context, int) ([]kafka.OutboxEvent, error) { return nil, nil }
func (o *memOutbox) MarkSent(context.Context, string) error                        { return nil }
func (o *memOutbox) MarkFailed(context.Context, string, string) error              { return nil }
