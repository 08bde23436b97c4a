// Package services implements the access-control facade: registration,
// e-mail verification, login with progressive lockout and MFA, the single
// active session, and password recovery.
//
// Every state change is a read-modify-write of one account record that is
// committed with a version check and retried from a fresh read when another
// caller got there first.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/cryptox"
	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"github.com/dmitrijs2005/gophguard/internal/server/config"
	"github.com/dmitrijs2005/gophguard/internal/server/lockout"
	"github.com/dmitrijs2005/gophguard/internal/server/metrics"
	"github.com/dmitrijs2005/gophguard/internal/server/mfa"
	"github.com/dmitrijs2005/gophguard/internal/server/notify"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophguard/internal/server/session"
	"github.com/dmitrijs2005/gophguard/internal/timex"
	"github.com/google/uuid"
)

const (
	defaultEventsLimit = 20
	maxEventsLimit     = 100
)

// Dependencies are the collaborators of AccessService that are not derived
// from configuration. Nil Clock, Logger and Hasher get production defaults.
type Dependencies struct {
	Hasher   cryptox.PasswordHasher
	Notifier notify.Notifier
	Clock    timex.Clock
	Logger   logging.Logger
	Metrics  *metrics.Metrics

	// Background runs work that must not hold up the response. Nil starts
	// a goroutine.
	Background func(task func())
}

type AccessService struct {
	repos    repomanager.RepositoryManager
	hasher   cryptox.PasswordHasher
	notifier notify.Notifier
	clock    timex.Clock
	logger   logging.Logger
	metrics  *metrics.Metrics

	tokens   *auth.Tokens
	policy   lockout.Policy
	mfa      *mfa.Manager
	sessions *session.Guard

	verificationTTL time.Duration
	resetTTL        time.Duration
	maxRetries      int
	isAdmin         func(email string) bool

	// dummyHash is compared against when the e-mail of a login is unknown,
	// so both paths cost one hash comparison.
	dummyHash string

	background func(task func())
	pending    sync.WaitGroup
}

func NewAccessService(repos repomanager.RepositoryManager, cfg *config.Config, deps Dependencies) (*AccessService, error) {
	if deps.Notifier == nil {
		return nil, fmt.Errorf("access service: notifier is required")
	}
	if deps.Clock == nil {
		deps.Clock = timex.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop{}
	}
	if deps.Background == nil {
		deps.Background = func(task func()) { go task() }
	}
	if deps.Hasher == nil {
		h, err := cryptox.NewArgon2idHasher(cryptox.DefaultArgon2idParams)
		if err != nil {
			return nil, fmt.Errorf("access service: %w", err)
		}
		deps.Hasher = h
	}

	dummy, err := deps.Hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("access service: dummy hash: %w", err)
	}

	tokens := auth.NewTokens([]byte(cfg.SecretKey), deps.Clock)

	return &AccessService{
		repos:    repos,
		hasher:   deps.Hasher,
		notifier: deps.Notifier,
		clock:    deps.Clock,
		logger:   deps.Logger.With("module", "access"),
		metrics:  deps.Metrics,

		tokens:   tokens,
		policy:   lockout.Policy{Threshold: cfg.LockoutThreshold, LockDuration: cfg.TemporaryLockDuration},
		mfa:      mfa.NewManager(cfg.MFACodeTTL, cfg.MFATrustWindow),
		sessions: session.NewGuard(tokens, cfg.SessionTokenTTL),

		verificationTTL: cfg.VerificationTokenTTL,
		resetTTL:        cfg.ResetTokenTTL,
		maxRetries:      max(cfg.MaxUpdateRetries, 1),
		isAdmin:         cfg.IsAdminEmail,

		dummyHash: dummy,

		background: deps.Background,
	}, nil
}

// Wait blocks until the work handed to the background runner has finished.
func (s *AccessService) Wait() {
	s.pending.Wait()
}

func (s *AccessService) goBackground(task func()) {
	s.pending.Add(1)
	s.background(func() {
		defer s.pending.Done()
		task()
	})
}

// deliver hands a message to the notifier. Delivery runs after the state it
// refers to is committed, so a failure is logged and counted but never
// returned.
func (s *AccessService) deliver(ctx context.Context, kind notify.Kind, accountID string, send func(ctx context.Context) error) {
	err := send(context.WithoutCancel(ctx))
	s.metrics.Notification(string(kind), err)
	if err != nil {
		s.logger.Error(ctx, "notification delivery failed", "kind", kind, "account_id", accountID, "error", err)
	}
}
