package ledger

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

var (
	// ErrMissingAccount is returned when a balance mutation targets an
	// identity that has no ledger entry. Entries are provisioned at first
	// authentication; hitting this means the auth flow was bypassed.
	ErrMissingAccount = errors.New("ledger: no account for identity")

	// ErrInsufficientCredits is surfaced by costed-operation preconditions.
	// The ledger itself never goes negative; decrements clamp at zero.
	ErrInsufficientCredits = errors.New("ledger: insufficient credits")
)

// Service owns the per-user credit balance. Adjust is the only write path;
// it is a single conditional UPDATE at the store, so a racing pair of
// sessions cannot drive a balance below zero. Two sessions can still both
// pass a precondition read before either debit lands; that check-then-act
// window is accepted product behavior, not a guarantee this service makes.
type Service struct {
	repo  Repository
	cache BalanceCache
}

// NewService creates a ledger service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewCachedService creates a ledger service whose balance reads go through
// the given cache. Adjust writes the fresh balance through the cache so
// reads never serve a pre-mutation value.
func NewCachedService(repo Repository, cache BalanceCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// NewServiceFromDB creates a ledger service from a GORM DB handle, with
// balance reads cached in Redis.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewCachedService(NewRepository(db), NewBalanceCache())
}

// Balance returns the current balance, or 0 for an unknown identity.
func (s *Service) Balance(ctx context.Context, userID uint) (int, error) {
	_ = ctx
	if s.cache != nil {
		if balance, ok := s.cache.Get(userID); ok {
			return balance, nil
		}
	}
	balance, _, err := s.repo.Balance(userID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.Set(userID, balance)
	}
	return balance, nil
}

// Adjust applies delta to the balance, clamping at zero, and returns the new
// balance. Delta may be negative (debit) or positive (credit). A missing
// account is logged and reported as ErrMissingAccount with a zero balance.
func (s *Service) Adjust(ctx context.Context, userID uint, delta int) (int, error) {
	_ = ctx
	affected, err := s.repo.ApplyDelta(userID, delta)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// MySQL reports changed rows, not matched rows: a clamp that leaves
		// the value as-is also yields 0. Only a truly absent row is an error.
		exists, err := s.repo.Exists(userID)
		if err != nil {
			return 0, err
		}
		if !exists {
			log.Warnf("[Ledger] adjust of %+d for missing account user_id=%d", delta, userID)
			return 0, ErrMissingAccount
		}
	}
	balance, _, err := s.repo.Balance(userID)
	if err != nil {
		if s.cache != nil {
			s.cache.Invalidate(userID)
		}
		return 0, err
	}
	if s.cache != nil {
		s.cache.Set(userID, balance)
	}
	return balance, nil
}
