package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-hris-leave/internal/bootstrap"
	"go-hris-leave/internal/events"
	leaveerrors "go-hris-leave/internal/leave/errors"
	"go-hris-leave/internal/messaging/kafka"
	"go-hris-leave/internal/shared/apperror"
	"go-hris-leave/internal/shared/contextutil"
	"go-hris-leave/internal/shared/metrics"
	"go-hris-leave/internal/shared/txmanager"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Actor is the authenticated caller. Privileged is decided by the HTTP layer
// (casbin leave:manage) and lets the caller act on other employees' leave.
type Actor struct {
	ID         string
	Privileged bool
}

//go:generate mockgen -source=leave_service.go -destination=mock/leave_service_mock.go -package=mock
type Service interface {
	PreviewDays(req PreviewDaysRequest) (PreviewDaysResponse, error)
	Create(ctx context.Context, organizationID string, actor Actor, req CreateLeaveRequest) (LeaveResponse, error)
	Approve(ctx context.Context, organizationID, approverID, id string) (LeaveResponse, error)
	Reject(ctx context.Context, organizationID, approverID, id, rejectionReason string) (LeaveResponse, error)
	Cancel(ctx context.Context, organizationID string, actor Actor, id string) (LeaveResponse, error)
	GetByID(ctx context.Context, organizationID string, actor Actor, id string) (LeaveResponse, error)
	GetRequests(ctx context.Context, organizationID string, actor Actor, q RequestQuery) (RequestPage, error)
	GetBalances(ctx context.Context, organizationID string, actor Actor, q BalanceQuery) ([]BalanceResponse, error)
}

type Option func(*service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger.Named("leave.service")
		}
	}
}

// WithBalanceFloor sets the lowest remaining balance a reservation may leave
// behind. Zero forbids overdraft.
func WithBalanceFloor(floor decimal.Decimal) Option {
	return func(s *service) { s.floor = floor }
}

func WithBalanceCache(cache BalanceCache) Option {
	return func(s *service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func WithAuditLogger(audit bootstrap.AuditLogger) Option {
	return func(s *service) {
		if audit != nil {
			s.audit = audit
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

type service struct {
	tx     txmanager.Manager
	repo   Repository
	outbox kafka.OutboxRepository
	cache  BalanceCache
	audit  bootstrap.AuditLogger
	floor  decimal.Decimal
	now    func() time.Time
	reads  singleflight.Group
	gens   cacheGenerations
	logger *zap.Logger
}

func NewService(tx txmanager.Manager, repo Repository, outbox kafka.OutboxRepository, opts ...Option) Service {
	s := &service{
		tx:     tx,
		repo:   repo,
		outbox: outbox,
		cache:  noopBalanceCache{},
		audit:  bootstrap.NopAuditLogger{},
		floor:  decimal.Zero,
		now:    time.Now,
		logger: zap.L().Named("leave.service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) PreviewDays(req PreviewDaysRequest) (PreviewDaysResponse, error) {
	return PreviewDays(req)
}

// PreviewDays counts the chargeable days of a range without touching any
// balance.
func PreviewDays(req PreviewDaysRequest) (PreviewDaysResponse, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return PreviewDaysResponse{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return PreviewDaysResponse{}, err
	}
	if req.HalfDay && !start.Equal(end) {
		return PreviewDaysResponse{}, leaveerrors.ErrInvalidHalfDay
	}

	days, err := CalculateDays(start, end, req.HalfDay)
	if err != nil {
		return PreviewDaysResponse{}, err
	}

	return PreviewDaysResponse{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		HalfDay:   req.HalfDay,
		Days:      days.StringFixed(1),
	}, nil
}

type createInput struct {
	organizationID uuid.UUID
	actorID        uuid.UUID
	employeeID     uuid.UUID
	leaveTypeID    uuid.UUID
	startDate      time.Time
	endDate        time.Time
	halfDayPart    *HalfDayPart
}

func validateCreateRequest(organizationID string, actor Actor, req CreateLeaveRequest) (createInput, error) {
	var in createInput
	var err error

	if in.organizationID, err = uuid.Parse(organizationID); err != nil {
		return in, leaveerrors.ErrInvalidOrganizationID
	}
	if in.actorID, err = uuid.Parse(actor.ID); err != nil {
		return in, leaveerrors.ErrInvalidActorID
	}
	if in.employeeID, err = uuid.Parse(req.EmployeeID); err != nil {
		return in, leaveerrors.ErrInvalidEmployeeID
	}
	if in.leaveTypeID, err = uuid.Parse(req.LeaveTypeID); err != nil {
		return in, leaveerrors.ErrInvalidLeaveTypeID
	}
	if in.startDate, err = parseDate(req.StartDate); err != nil {
		return in, err
	}
	if in.endDate, err = parseDate(req.EndDate); err != nil {
		return in, err
	}
	if in.endDate.Before(in.startDate) {
		return in, leaveerrors.ErrInvalidDateRange
	}

	if req.HalfDay {
		part := HalfDayPart(req.HalfDayPart)
		if !in.startDate.Equal(in.endDate) || !part.Valid() {
			return in, leaveerrors.ErrInvalidHalfDay
		}
		in.halfDayPart = &part
	} else if req.HalfDayPart != "" {
		return in, leaveerrors.ErrInvalidHalfDay
	}

	return in, nil
}

func (s *service) Create(ctx context.Context, organizationID string, actor Actor, req CreateLeaveRequest) (LeaveResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug("create leave requested",
		zap.String("organization_id", organizationID),
		zap.String("actor_id", actor.ID),
		zap.String("employee_id", req.EmployeeID),
		zap.String("leave_type_id", req.LeaveTypeID),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)

	in, err := validateCreateRequest(organizationID, actor, req)
	if err != nil {
		log.Warn("create leave validation failed", zap.Error(err))
		return LeaveResponse{}, s.observe("create", err)
	}
	if in.employeeID != in.actorID && !actor.Privileged {
		log.Warn("create leave on behalf of another employee denied",
			zap.String("actor_id", actor.ID),
			zap.String("employee_id", req.EmployeeID),
		)
		return LeaveResponse{}, s.observe("create", leaveerrors.ErrForbidden)
	}

	days, err := CalculateDays(in.startDate, in.endDate, req.HalfDay)
	if err != nil {
		return LeaveResponse{}, s.observe("create", err)
	}
	if days.IsZero() {
		log.Warn("create leave range has no working days",
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
		)
		return LeaveResponse{}, s.observe("create", leaveerrors.ErrNoWorkingDays)
	}

	now := s.now().UTC()
	var created *LeaveRequest

	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)

		if _, err := qtx.LockEmployee(ctx, organizationID, req.EmployeeID); err != nil {
			return mapRepositoryError(err, leaveerrors.ErrEmployeeNotFound)
		}

		leaveType, err := qtx.FindLeaveType(ctx, organizationID, req.LeaveTypeID)
		if err != nil {
			return mapRepositoryError(err, leaveerrors.ErrLeaveTypeNotFound)
		}

		if err := (overlapDetector{repo: qtx}).Check(ctx, in.employeeID, in.startDate, in.endDate); err != nil {
			return err
		}

		l := &LeaveRequest{
			ID:             uuid.New(),
			OrganizationID: in.organizationID,
			EmployeeID:     in.employeeID,
			LeaveTypeID:    in.leaveTypeID,
			StartDate:      in.startDate,
			EndDate:        in.endDate,
			HalfDay:        req.HalfDay,
			HalfDayPart:    in.halfDayPart,
			Days:           days,
			Reason:         strings.TrimSpace(req.Reason),
			Status:         StatusPending,
			CreatedBy:      in.actorID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		ledger := balanceLedger{repo: qtx, floor: s.floor}
		var balance *LeaveBalance
		if leaveType.RequiresApproval {
			balance, err = ledger.Reserve(ctx, l.BalanceKey(), days)
		} else {
			l.Status = StatusApproved
			l.ApprovalDate = &now
			balance, err = ledger.Commit(ctx, l.BalanceKey(), days)
		}
		if err != nil {
			return mapRepositoryError(err, nil)
		}

		if err := qtx.CreateRequest(ctx, l); err != nil {
			return mapRepositoryError(err, nil)
		}

		if err := s.enqueue(ctx, tx, events.EventTypeLeaveCreated, l, "", actor.ID, balance, now); err != nil {
			return err
		}

		l.LeaveType = leaveType
		created = l
		return nil
	})
	if err != nil {
		err = mapRepositoryError(err, nil)
		s.logFailure(log, "create leave failed", err,
			zap.String("employee_id", req.EmployeeID),
			zap.String("leave_type_id", req.LeaveTypeID),
		)
		return LeaveResponse{}, s.observe("create", err)
	}

	s.invalidateBalances(ctx, organizationID, created.EmployeeID, created.StartDate.Year())
	metrics.LeaveDaysBooked.WithLabelValues(string(created.Status)).Add(created.Days.InexactFloat64())
	log.Info("create leave success",
		zap.String("leave_id", created.ID.String()),
		zap.String("employee_id", req.EmployeeID),
		zap.String("status", string(created.Status)),
		zap.String("days", created.Days.String()),
	)

	return mapToResponse(*created), s.observe("create", nil)
}

func (s *service) Approve(ctx context.Context, organizationID, approverID, id string) (LeaveResponse, error) {
	return s.transition(ctx, organizationID, approverID, id, transition{
		action:    "approve",
		target:    StatusApproved,
		eventType: events.EventTypeLeaveApproved,
		apply: func(l *LeaveRequest, actorID uuid.UUID, at time.Time) {
			l.ApproverID = &actorID
			l.ApprovalDate = &at
		},
	})
}

func (s *service) Reject(ctx context.Context, organizationID, approverID, id, rejectionReason string) (LeaveResponse, error) {
	reason := strings.TrimSpace(rejectionReason)

	return s.transition(ctx, organizationID, approverID, id, transition{
		action:    "reject",
		target:    StatusRejected,
		eventType: events.EventTypeLeaveRejected,
		check: func() error {
			if reason == "" {
				return leaveerrors.ErrRejectionReasonRequired
			}
			return nil
		},
		apply: func(l *LeaveRequest, actorID uuid.UUID, at time.Time) {
			l.ApproverID = &actorID
			l.ApprovalDate = &at
			l.RejectionReason = &reason
		},
	})
}

func (s *service) Cancel(ctx context.Context, organizationID string, actor Actor, id string) (LeaveResponse, error) {
	return s.transition(ctx, organizationID, actor.ID, id, transition{
		action:    "cancel",
		target:    StatusCancelled,
		eventType: events.EventTypeLeaveCancelled,
		authorize: func(l *LeaveRequest, actorID uuid.UUID) error {
			if l.EmployeeID != actorID && !actor.Privileged {
				return leaveerrors.ErrForbidden
			}
			return nil
		},
		apply: func(l *LeaveRequest, actorID uuid.UUID, at time.Time) {
			l.CancelledBy = &actorID
			l.CancelledAt = &at
		},
		audited: true,
	})
}

type transition struct {
	action    string
	target    Status
	eventType string
	authorize func(l *LeaveRequest, actorID uuid.UUID) error
	// check runs once the transition itself is known to be legal.
	check   func() error
	apply   func(l *LeaveRequest, actorID uuid.UUID, at time.Time)
	audited bool
}

// transition locks the request row, then the balance row, and moves the
// request to t.target together with the matching ledger compensation.
func (s *service) transition(ctx context.Context, organizationID, actorID, id string, t transition) (LeaveResponse, error) {
	log := contextutil.GetLogger(ctx, s.logger)
	log.Debug(t.action+" leave requested",
		zap.String("leave_id", id),
		zap.String("organization_id", organizationID),
		zap.String("actor_id", actorID),
	)

	if _, err := uuid.Parse(organizationID); err != nil {
		return LeaveResponse{}, s.observe(t.action, leaveerrors.ErrInvalidOrganizationID)
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveResponse{}, s.observe(t.action, leaveerrors.ErrInvalidActorID)
	}
	if _, err := uuid.Parse(id); err != nil {
		return LeaveResponse{}, s.observe(t.action, leaveerrors.ErrInvalidLeaveID)
	}

	now := s.now().UTC()
	var (
		updated *LeaveRequest
		from    Status
	)

	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		qtx := s.repo.WithTx(tx)

		l, err := qtx.FindRequestForUpdate(ctx, organizationID, id)
		if err != nil {
			return mapRepositoryError(err, leaveerrors.ErrLeaveNotFound)
		}

		if t.authorize != nil {
			if err := t.authorize(l, actorUUID); err != nil {
				return err
			}
		}

		from = l.Status
		if !from.CanTransitionTo(t.target) {
			return leaveerrors.ErrInvalidStatusTransition
		}
		if t.check != nil {
			if err := t.check(); err != nil {
				return err
			}
		}

		ledger := balanceLedger{repo: qtx, floor: s.floor}
		balance, err := ledger.settle(ctx, l, from, t.target)
		if err != nil {
			return mapRepositoryError(err, nil)
		}

		l.Status = t.target
		t.apply(l, actorUUID, now)
		l.UpdatedAt = now

		if err := qtx.UpdateRequest(ctx, l); err != nil {
			return mapRepositoryError(err, nil)
		}

		if err := s.enqueue(ctx, tx, t.eventType, l, from, actorID, balance, now); err != nil {
			return err
		}

		updated = l
		return nil
	})
	if err != nil {
		err = mapRepositoryError(err, nil)
		s.logFailure(log, t.action+" leave failed", err, zap.String("leave_id", id))
		return LeaveResponse{}, s.observe(t.action, err)
	}

	s.invalidateBalances(ctx, organizationID, updated.EmployeeID, updated.StartDate.Year())

	if t.audited {
		s.audit.Log(ctx, bootstrap.AuditLog{
			Action:  "LEAVE_" + strings.ToUpper(string(t.target)),
			ActorID: actorID,
			Message: fmt.Sprintf("leave request %s moved from %s to %s", id, from, t.target),
			Meta: map[string]any{
				"leave_id":    id,
				"employee_id": updated.EmployeeID.String(),
				"from_status": string(from),
				"days":        updated.Days.String(),
			},
		})
	}

	log.Info(t.action+" leave success",
		zap.String("leave_id", id),
		zap.String("from_status", string(from)),
		zap.String("to_status", string(t.target)),
	)

	return mapToResponse(*updated), s.observe(t.action, nil)
}

func (s *service) enqueue(
	ctx context.Context,
	tx *gorm.DB,
	eventType string,
	l *LeaveRequest,
	from Status,
	actorID string,
	balance *LeaveBalance,
	at time.Time,
) error {
	event, err := newLifecycleOutboxEvent(ctx, eventType, l, from, actorID, balance, at)
	if err != nil {
		return err
	}
	return s.outbox.WithTx(tx).Create(ctx, event)
}

func (s *service) GetByID(ctx context.Context, organizationID string, actor Actor, id string) (LeaveResponse, error) {
	if _, err := uuid.Parse(organizationID); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidOrganizationID
	}
	if _, err := uuid.Parse(id); err != nil {
		return LeaveResponse{}, leaveerrors.ErrInvalidLeaveID
	}

	l, err := s.repo.FindRequest(ctx, organizationID, id)
	if err != nil {
		return LeaveResponse{}, mapRepositoryError(err, leaveerrors.ErrLeaveNotFound)
	}
	// other employees' requests are reported as missing
	if !actor.Privileged && l.EmployeeID.String() != actor.ID {
		return LeaveResponse{}, leaveerrors.ErrLeaveNotFound
	}

	return mapToResponse(*l), nil
}

func (s *service) GetRequests(ctx context.Context, organizationID string, actor Actor, q RequestQuery) (RequestPage, error) {
	if _, err := uuid.Parse(organizationID); err != nil {
		return RequestPage{}, leaveerrors.ErrInvalidOrganizationID
	}

	var filter RequestFilter
	employeeID := q.EmployeeID
	if employeeID == "" && !actor.Privileged {
		employeeID = actor.ID
	}
	if employeeID != "" {
		id, err := s.resolveEmployee(actor, employeeID)
		if err != nil {
			return RequestPage{}, err
		}
		filter.EmployeeID = &id
	}
	if q.Year < 0 {
		return RequestPage{}, leaveerrors.ErrInvalidYear
	}
	filter.Year = q.Year
	if q.Status != "" {
		status, err := ParseStatus(q.Status)
		if err != nil {
			return RequestPage{}, leaveerrors.ErrInvalidStatusFilter
		}
		filter.Status = &status
	}

	page, pageSize := q.Pagination()
	filter.Limit = pageSize
	filter.Offset = int64(page-1) * int64(pageSize)

	requests, total, err := s.repo.FindRequests(ctx, organizationID, filter)
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("list leave requests failed", zap.Error(err))
		return RequestPage{}, err
	}

	return RequestPage{
		Items:    mapToListResponse(requests),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *service) GetBalances(ctx context.Context, organizationID string, actor Actor, q BalanceQuery) ([]BalanceResponse, error) {
	if _, err := uuid.Parse(organizationID); err != nil {
		return nil, leaveerrors.ErrInvalidOrganizationID
	}
	if q.Year < 0 {
		return nil, leaveerrors.ErrInvalidYear
	}

	employeeID := q.EmployeeID
	if employeeID == "" {
		employeeID = actor.ID
	}
	employeeUUID, err := s.resolveEmployee(actor, employeeID)
	if err != nil {
		return nil, err
	}

	// cache keys always use the canonical form, matching invalidation
	employeeID = employeeUUID.String()

	if cached, ok := s.cache.Get(ctx, organizationID, employeeID, q.Year); ok {
		return cached, nil
	}

	key := balanceCacheKey(organizationID, employeeID, q.Year)
	v, err, _ := s.reads.Do(key, func() (any, error) {
		gen := s.gens.current(organizationID, employeeID)
		balances, err := s.repo.FindBalances(ctx, organizationID, employeeUUID, q.Year)
		if err != nil {
			return nil, err
		}
		resp := mapToBalanceListResponse(balances)
		// a commit invalidated the entry while we were loading; do not
		// re-cache the older rows
		if s.gens.current(organizationID, employeeID) == gen {
			s.cache.Set(ctx, organizationID, employeeID, q.Year, resp)
		}
		return resp, nil
	})
	if err != nil {
		contextutil.GetLogger(ctx, s.logger).Error("list leave balances failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return nil, err
	}

	return v.([]BalanceResponse), nil
}

func (s *service) invalidateBalances(ctx context.Context, organizationID string, employeeID uuid.UUID, year int) {
	s.gens.bump(organizationID, employeeID.String())
	s.cache.Invalidate(ctx, organizationID, employeeID.String(), year)
}

// resolveEmployee parses employeeID and checks the actor may read it.
func (s *service) resolveEmployee(actor Actor, employeeID string) (uuid.UUID, error) {
	id, err := uuid.Parse(employeeID)
	if err != nil {
		return uuid.Nil, leaveerrors.ErrInvalidEmployeeID
	}
	if !actor.Privileged {
		if actorID, err := uuid.Parse(actor.ID); err != nil || actorID != id {
			return uuid.Nil, leaveerrors.ErrForbidden
		}
	}
	return id, nil
}

func (s *service) observe(action string, err error) error {
	result := "ok"
	if err != nil {
		result = apperror.ToHTTP(err).Code
	}
	metrics.LeaveTransitions.WithLabelValues(action, result).Inc()
	return err
}

func (s *service) logFailure(log *zap.Logger, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus < 500 {
		log.Warn(msg, fields...)
		return
	}
	log.Error(msg, fields...)
}

func mapToResponse(l LeaveRequest) LeaveResponse {
	resp := LeaveResponse{
		ID:              l.ID.String(),
		OrganizationID:  l.OrganizationID.String(),
		EmployeeID:      l.EmployeeID.String(),
		LeaveTypeID:     l.LeaveTypeID.String(),
		StartDate:       l.StartDate.Format(dateLayout),
		EndDate:         l.EndDate.Format(dateLayout),
		HalfDay:         l.HalfDay,
		Days:            l.Days.StringFixed(1),
		Reason:          l.Reason,
		Status:          string(l.Status),
		CreatedBy:       l.CreatedBy.String(),
		RejectionReason: l.RejectionReason,
		CreatedAt:       l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       l.UpdatedAt.Format(time.RFC3339),
	}
	if l.LeaveType != nil {
		resp.LeaveTypeName = l.LeaveType.Name
	}
	if l.HalfDayPart != nil {
		part := string(*l.HalfDayPart)
		resp.HalfDayPart = &part
	}
	if l.ApproverID != nil {
		v := l.ApproverID.String()
		resp.ApproverID = &v
	}
	if l.ApprovalDate != nil {
		v := l.ApprovalDate.Format(time.RFC3339)
		resp.ApprovalDate = &v
	}
	if l.CancelledBy != nil {
		v := l.CancelledBy.String()
		resp.CancelledBy = &v
	}
	if l.CancelledAt != nil {
		v := l.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &v
	}
	return resp
}

func mapToListResponse(requests []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, len(requests))
	for i, l := range requests {
		resp[i] = mapToResponse(l)
	}
	return resp
}

func mapToBalanceResponse(b LeaveBalance) BalanceResponse {
	resp := BalanceResponse{
		EmployeeID:      b.EmployeeID.String(),
		LeaveTypeID:     b.LeaveTypeID.String(),
		Year:            b.Year,
		EntitledDays:    b.EntitledDays.StringFixed(1),
		CarriedOverDays: b.CarriedOverDays.StringFixed(1),
		AccruedDays:     b.AccruedDays.StringFixed(1),
		UsedDays:        b.UsedDays.StringFixed(1),
		PendingDays:     b.PendingDays.StringFixed(1),
		RemainingDays:   b.RemainingDays.StringFixed(1),
	}
	if b.LeaveType != nil {
		resp.LeaveTypeName = b.LeaveType.Name
		resp.IsPaid = b.LeaveType.IsPaid
	}
	return resp
}

func mapToBalanceListResponse(balances []LeaveBalance) []BalanceResponse {
	resp := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		resp[i] = mapToBalanceResponse(b)
	}
	return resp
}
