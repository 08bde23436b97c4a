package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"github.com/dmitrijs2005/gophguard/internal/server/config"
	"github.com/dmitrijs2005/gophguard/internal/server/metrics"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/notify"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophguard/internal/timex"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeHasher struct {
	compares atomic.Int64
}

func (h *fakeHasher) Hash(password string) (string, error) {
	return "plain:" + password, nil
}

func (h *fakeHasher) Compare(encoded, password string) (bool, error) {
	h.compares.Add(1)
	if !strings.HasPrefix(encoded, "plain:") {
		return false, errors.New("malformed hash")
	}
	return encoded == "plain:"+password, nil
}

type sent struct {
	kind  notify.Kind
	to    string
	value string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (n *fakeNotifier) record(kind notify.Kind, to, value string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sent{kind: kind, to: to, value: value})
	return nil
}

func (n *fakeNotifier) SendVerificationLink(_ context.Context, email, token string) error {
	return n.record(notify.KindVerification, email, token)
}

func (n *fakeNotifier) SendMFACode(_ context.Context, email, code string) error {
	return n.record(notify.KindMFACode, email, code)
}

func (n *fakeNotifier) SendPasswordResetLink(_ context.Context, email, token string) error {
	return n.record(notify.KindPasswordReset, email, token)
}

// last returns the value of the newest message of kind sent to email.
func (n *fakeNotifier) last(t *testing.T, kind notify.Kind, email string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind && n.sent[i].to == email {
			return n.sent[i].value
		}
	}
	t.Fatalf("no %s message to %s", kind, email)
	return ""
}

func (n *fakeNotifier) count(kind notify.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.sent {
		if s.kind == kind {
			c++
		}
	}
	return c
}

// --- fixture ---

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	pw        = "correct-horse"
	wrongPW   = "wrong-horse!"
	newPW     = "battery-staple"
	adminMail = "root@example.com"
)

type fixture struct {
	svc      *AccessService
	repos    *repomanager.MemoryRepositoryManager
	clock    *timex.ManualClock
	notifier *fakeNotifier
	hasher   *fakeHasher
	tokens   *auth.Tokens
	cfg      *config.Config
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	cfg.AdminEmails = []string{adminMail}
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, testConfig(), repomanager.NewMemoryRepositoryManager())
}

func newFixtureWith(t *testing.T, cfg *config.Config, repos repomanager.RepositoryManager) *fixture {
	t.Helper()

	f := &fixture{
		clock:    timex.NewManualClock(t0),
		notifier: &fakeNotifier{},
		hasher:   &fakeHasher{},
		cfg:      cfg,
	}
	if m, ok := repos.(*repomanager.MemoryRepositoryManager); ok {
		f.repos = m
	}

	// background work runs inline so assertions see it
	svc, err := NewAccessService(repos, cfg, Dependencies{
		Hasher:     f.hasher,
		Notifier:   f.notifier,
		Clock:      f.clock,
		Metrics:    metrics.New(),
		Background: func(task func()) { task() },
	})
	require.NoError(t, err)

	f.svc = svc
	f.tokens = auth.NewTokens([]byte(cfg.SecretKey), f.clock)
	return f
}

func (f *fixture) register(t *testing.T, email string) *models.Account {
	t.Helper()
	a, err := f.svc.Register(context.Background(), RegisterRequest{Email: email, Password: pw})
	require.NoError(t, err)
	return a
}

// verified registers email and confirms it.
func (f *fixture) verified(t *testing.T, email string) *models.Account {
	t.Helper()
	a := f.register(t, email)
	token := f.notifier.last(t, notify.KindVerification, a.Email)
	require.NoError(t, f.svc.VerifyEmail(context.Background(), token))
	return a
}

// session logs in through the MFA challenge and returns the session token.
func (f *fixture) session(t *testing.T, email, device string) string {
	t.Helper()
	ctx := context.Background()

	res, err := f.svc.Login(ctx, LoginRequest{Email: email, Password: pw, Device: device})
	require.NoError(t, err)
	if !res.MFARequired {
		return res.Token
	}

	code := f.notifier.last(t, notify.KindMFACode, strings.ToLower(email))
	token, err := f.svc.VerifyMFA(ctx, VerifyMFARequest{AccountID: res.AccountID, Code: code, Device: device})
	require.NoError(t, err)
	return token
}

func (f *fixture) stored(t *testing.T, id string) *models.Account {
	t.Helper()
	a, err := f.repos.Accounts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

func principalOf(a *models.Account) models.Principal {
	return models.Principal{AccountID: a.ID, Email: a.Email, Role: a.Role}
}

// --- constructor ---

func TestNewAccessService_RequiresNotifier(t *testing.T) {
	_, err := NewAccessService(repomanager.NewMemoryRepositoryManager(), testConfig(), Dependencies{Hasher: &fakeHasher{}})
	require.Error(t, err)
}

// --- register ---

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Register(ctx, RegisterRequest{
		Email:     "  Alice@Example.com ",
		Password:  pw,
		FirstName: "Alice",
		Phone:     "+14155550100",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", a.Email)
	assert.Equal(t, models.RoleUser, a.Role)
	assert.False(t, a.IsVerified)
	assert.Equal(t, models.StageOpen, a.Lockout.Stage)
	assert.Equal(t, "plain:"+pw, a.PasswordHash)
	assert.Equal(t, "Alice", a.Profile.FirstName)
	assert.Equal(t, models.SessionNone, a.SessionState())

	token := f.notifier.last(t, notify.KindVerification, "alice@example.com")
	claims, err := f.tokens.Parse(token, auth.PurposeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, a.ID, claims.UserID)
}

func TestRegister_AdminEmailGetsAdminRole(t *testing.T) {
	f := newFixture(t)
	a := f.register(t, "ROOT@example.com")
	assert.Equal(t, models.RoleAdmin, a.Role)
}

func TestRegister_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")

	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "A@X.com", Password: pw})
	require.ErrorIs(t, err, common.ErrDuplicateEmail)
	assert.Equal(t, common.KindAuthorization, common.KindOf(err))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   RegisterRequest
		field string
	}{
		{"missing email", RegisterRequest{Password: pw}, "email"},
		{"bad email", RegisterRequest{Email: "not-an-email", Password: pw}, "email"},
		{"short password", RegisterRequest{Email: "a@x.com", Password: "pw"}, "password"},
		{"bad phone", RegisterRequest{Email: "a@x.com", Password: pw, Phone: "555"}, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Register(context.Background(), tt.req)

			var verr *common.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, common.KindValidation, common.KindOf(err))
		})
	}
}

func TestRegister_NotifierFailureKeepsAccount(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	a, err := f.svc.Register(context.Background(), RegisterRequest{Email: "a@x.com", Password: pw})
	require.NoError(t, err)

	stored := f.stored(t, a.ID)
	assert.False(t, stored.IsVerified)

	// the link can be requested again once delivery works
	f.notifier.err = nil
	require.NoError(t, f.svc.ResendVerification(context.Background(), "a@x.com"))
	assert.Equal(t, 1, f.notifier.count(notify.KindVerification))
}

// --- verify e-mail ---

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@x.com")
	token := f.notifier.last(t, notify.KindVerification, "a@x.com")

	require.NoError(t, f.svc.VerifyEmail(ctx, token))
	assert.True(t, f.stored(t, a.ID).IsVerified)

	err := f.svc.VerifyEmail(ctx, token)
	require.ErrorIs(t, err, common.ErrAlreadyVerified)
}

func TestVerifyEmail_BadTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "a@x.com")

	sessionToken, err := f.tokens.Generate(a.ID, a.Role, auth.PurposeSession, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong purpose", sessionToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.VerifyEmail(ctx, tt.token)
			require.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)
		})
	}
}

func TestVerifyEmail_Expired(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")
	token := f.notifier.last(t, notify.KindVerification, "a@x.com")

	f.clock.Advance(f.cfg.VerificationTokenTTL + time.Second)

	err := f.svc.VerifyEmail(context.Background(), token)
	require.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)
}

func TestVerifyEmail_AccountGone(t *testing.T) {
	f := newFixture(t)
	token, err := f.tokens.Generate(uuid.NewString(), models.RoleUser, auth.PurposeEmailVerification, time.Hour)
	require.NoError(t, err)

	err = f.svc.VerifyEmail(context.Background(), token)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.ResendVerification(ctx, "nobody@x.com"))
	assert.Equal(t, 0, f.notifier.count(notify.KindVerification))

	f.register(t, "a@x.com")
	require.NoError(t, f.svc.ResendVerification(ctx, "a@x.com"))
	assert.Equal(t, 2, f.notifier.count(notify.KindVerification))

	f.verified(t, "b@x.com")
	require.NoError(t, f.svc.ResendVerification(ctx, "b@x.com"))
	assert.Equal(t, 3, f.notifier.count(notify.KindVerification))

	var verr *common.ValidationError
	require.ErrorAs(t, f.svc.ResendVerification(ctx, "nope"), &verr)
}

// --- store failures ---

type accountsRepo = accounts.Repository

type conflictingAccounts struct {
	accountsRepo
	updates atomic.Int64
}

func (c *conflictingAccounts) Update(context.Context, *models.Account) (*models.Account, error) {
	c.updates.Add(1)
	return nil, common.ErrVersionConflict
}

type brokenAccounts struct {
	accountsRepo
}

func (brokenAccounts) GetByEmail(context.Context, string) (*models.Account, error) {
	return nil, errors.New("db error: connection reset")
}

// stubManager serves a custom accounts repository on top of the memory
// manager.
type stubManager struct {
	*repomanager.MemoryRepositoryManager
	accounts accountsRepo
}

func (m *stubManager) Accounts() accountsRepo { return m.accounts }

func (m *stubManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos repomanager.Repositories) error) error {
	return fn(ctx, m)
}

func TestMutate_GivesUpAfterRetryBudget(t *testing.T) {
	mem := repomanager.NewMemoryRepositoryManager()
	cfg := testConfig()
	cfg.MaxUpdateRetries = 4

	seed := newFixtureWith(t, cfg, mem)
	a := seed.verified(t, "a@x.com")

	conflicting := &conflictingAccounts{accountsRepo: mem.Accounts()}
	f := newFixtureWith(t, cfg, &stubManager{MemoryRepositoryManager: mem, accounts: conflicting})

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: a.Email, Password: pw})
	require.ErrorIs(t, err, common.ErrTransient)
	assert.Equal(t, common.KindTransient, common.KindOf(err))
	assert.EqualValues(t, 4, conflicting.updates.Load())
}

func TestStoreFailureIsTransient(t *testing.T) {
	mem := repomanager.NewMemoryRepositoryManager()
	f := newFixtureWith(t, testConfig(), &stubManager{MemoryRepositoryManager: mem, accounts: brokenAccounts{mem.Accounts()}})

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: pw})
	require.ErrorIs(t, err, common.ErrTransient)

	err = f.svc.ForgotPassword(context.Background(), "a@x.com")
	require.ErrorIs(t, err, common.ErrTransient)
}
