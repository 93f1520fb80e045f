// Package peminjaman implements the loan lifecycle: availability, approval,
// return with fines, and fine payment verification. Stock changes on alat
// happen only here, inside the same transaction as the loan transition that
// causes them.
package peminjaman

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/cache"
	"peminjaman_alat/pkg/denda"
	"peminjaman_alat/pkg/repository"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RolePetugas  Role = "petugas"
	RolePeminjam Role = "peminjam"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePetugas || r == RolePeminjam
}

// Actor is an authenticated user resolved by the transport layer.
type Actor struct {
	ID   uint
	Role Role
}

func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RolePetugas
}

// AuditRecorder stores activity lines. A nil actorID is a system action.
type AuditRecorder interface {
	Record(ctx context.Context, actorID *uint, aktivitas string) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, topics ...cache.Topic) error
}

type FileRemover interface {
	Remove(path string) error
}

type Options struct {
	FinePerDay  decimal.Decimal
	MaxLoanDays int
	Location    *time.Location
	Now         func() time.Time
}

type Service struct {
	store repository.Store
	audit AuditRecorder
	cache Invalidator
	files FileRemover

	finePerDay  decimal.Decimal
	maxLoanDays int
	loc         *time.Location
	now         func() time.Time
}

// NewService wires the loan core. audit, inv and files may be nil.
func NewService(store repository.Store, audit AuditRecorder, inv Invalidator, files FileRemover, opts Options) *Service {
	s := &Service{
		store:       store,
		audit:       audit,
		cache:       inv,
		files:       files,
		finePerDay:  opts.FinePerDay,
		maxLoanDays: opts.MaxLoanDays,
		loc:         opts.Location,
		now:         opts.Now,
	}
	if s.audit == nil {
		s.audit = noopAudit{}
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.files == nil {
		s.files = noopFiles{}
	}
	if s.maxLoanDays < 1 {
		s.maxLoanDays = 7
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) today() time.Time {
	return denda.DateOnly(s.now(), s.loc)
}

// committed runs the post-commit side effects. Failures are logged only.
func (s *Service) committed(ctx context.Context, actor *Actor, aktivitas string, topics ...cache.Topic) {
	if err := s.cache.Invalidate(ctx, topics...); err != nil {
		log.Printf("peminjaman: cache invalidation failed: %v", err)
	}
	var actorID *uint
	if actor != nil {
		id := actor.ID
		actorID = &id
	}
	if err := s.audit.Record(ctx, actorID, aktivitas); err != nil {
		log.Printf("peminjaman: audit failed: %v", err)
	}
}

func requireStaff(actor Actor) error {
	if !actor.IsStaff() {
		return apperr.Authorization("only petugas or admin may do this")
	}
	return nil
}

var allTopics = []cache.Topic{cache.TopicLoanList, cache.TopicEquipmentList, cache.TopicDashboardStats}

type noopAudit struct{}

func (noopAudit) Record(context.Context, *uint, string) error { return nil }

type noopFiles struct{}

func (noopFiles) Remove(string) error { return nil }
