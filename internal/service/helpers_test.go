package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/internal/repository"
	"github.com/forgo/goodjobs/internal/testing/fixtures"
	"github.com/forgo/goodjobs/internal/testing/testdb"
	"github.com/forgo/goodjobs/pkg/jwt"
)

// serviceEnv wires every service over a fresh in-memory database
type serviceEnv struct {
	ctx      context.Context
	tdb      *testdb.TestDB
	f        *fixtures.Factory
	tokens   *TokenService
	auth     *AuthService
	ledger   *LedgerService
	users    *UserService
	recorder *recordingRecorder
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	tdb := testdb.New(t)

	userRepo := repository.NewUserRepository(tdb.DB)
	goodJobRepo := repository.NewGoodJobRepository(tdb.DB)
	tokens := NewTokenService(TokenServiceConfig{
		JWTService: jwt.NewTestService("service-test-secret", "", 0, nil),
	})
	recorder := &recordingRecorder{}

	return &serviceEnv{
		ctx:    tdb.Ctx(),
		tdb:    tdb,
		f:      fixtures.New(tdb.DB),
		tokens: tokens,
		auth: NewAuthService(AuthServiceConfig{
			UserRepo:     userRepo,
			GoodJobRepo:  goodJobRepo,
			TokenService: tokens,
		}),
		ledger: NewLedgerService(LedgerServiceConfig{
			GoodJobRepo: goodJobRepo,
			UserRepo:    userRepo,
			Recorder:    recorder,
		}),
		users:    NewUserService(UserServiceConfig{UserRepo: userRepo}),
		recorder: recorder,
	}
}

func actorOf(u *model.User) *Actor {
	return &Actor{UserID: u.ID, Name: u.Name, IsAdmin: u.IsAdmin}
}

func ptr[T any](v T) *T { return &v }

// recordingRecorder captures ledger events
type recordingRecorder struct {
	mu        sync.Mutex
	created   int
	deleted   int
	completed int
	rejected  []string
}

func (r *recordingRecorder) GoodJobCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created++
}

func (r *recordingRecorder) GoodJobDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted++
}

func (r *recordingRecorder) TransferCompleted(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recordingRecorder) TransferRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, reason)
}
