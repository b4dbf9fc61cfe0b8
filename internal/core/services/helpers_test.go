package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"aquora-api/internal/adapters/persistence/repositories"
	"aquora-api/internal/config"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/logging"
	"aquora-api/internal/pkg/jwt"
	"aquora-api/internal/testutil"

	"gorm.io/gorm"
)

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) named(name string) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	db     *gorm.DB
	store  *repositories.Store
	cfg    *config.Config
	codec  *jwt.Codec
	events *recordingPublisher
	clock  *testClock
	auth   *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := testutil.DB(t)
	cfg := testutil.Config(t)
	codec, err := jwt.NewCodec(cfg.Auth.AccessTokenSecret, cfg.Auth.AccessTokenTTL)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}

	store := repositories.NewStore(db)
	events := &recordingPublisher{}
	clock := newTestClock()
	logger := logging.Discard()

	resolver := NewAuthorizationResolver(store.Assignments, logger)
	auth := NewAuthService(store.Users, store.RefreshTokens, resolver, testutil.Hasher(t), codec, events, cfg, logger).
		WithClock(clock.Now)

	return &authFixture{
		db:     db,
		store:  store,
		cfg:    cfg,
		codec:  codec,
		events: events,
		clock:  clock,
		auth:   auth,
	}
}

func (f *authFixture) login(t *testing.T, mobile string) *AuthResult {
	t.Helper()
	result, err := f.auth.Login(context.Background(), &LoginInput{MobileNumber: mobile, Password: testutil.Password}, meta())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return result
}

func meta() domain.RequestMeta {
	return domain.RequestMeta{IPAddress: "127.0.0.1", UserAgent: "go-test"}
}
