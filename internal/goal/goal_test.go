package goal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() (*log.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return log.New(buf, "", 0), buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func fastConfig(retries int) FetcherConfig {
	return FetcherConfig{
		AttemptTimeout:  200 * time.Millisecond,
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
	}
}

// scriptedStore returns errs in order, then goal.
type scriptedStore struct {
	mu    sync.Mutex
	errs  []error
	goal  int
	calls int
}

func (s *scriptedStore) StepGoal(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return 0, err
	}
	return s.goal, nil
}

func (s *scriptedStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestParseGoal(t *testing.T) {
	for raw, want := range map[string]int{"1000": 1000, " 42\n": 42, "0": 0} {
		got, err := parseGoal(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"", "abc", "-5", "1.5"} {
		_, err := parseGoal(raw)
		assert.ErrorIs(t, err, ErrInvalidGoal, raw)
	}
}

func TestStaticStore(t *testing.T) {
	g, err := StaticStore{Goal: 7000}.StepGoal(context.Background(), DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, 7000, g)

	_, err = StaticStore{Goal: -1}.StepGoal(context.Background(), DefaultUserID)
	assert.ErrorIs(t, err, ErrInvalidGoal)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = StaticStore{Goal: 1}.StepGoal(ctx, DefaultUserID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFirebaseStore_StepGoal(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    int
		wantErr error
	}{
		{name: "string value", status: 200, body: `"1000"`, want: 1000},
		{name: "number value", status: 200, body: `2500`, want: 2500},
		{name: "missing", status: 200, body: `null`, wantErr: ErrGoalNotFound},
		{name: "not a number", status: 200, body: `"many"`, wantErr: ErrInvalidGoal},
		{name: "fraction", status: 200, body: `12.5`, wantErr: ErrInvalidGoal},
		{name: "object", status: 200, body: `{"a":1}`, wantErr: ErrInvalidGoal},
		{name: "permission denied", status: 401, body: `{"error":"Permission denied"}`, wantErr: errClientStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.URL.Query().Get("auth")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			s := NewFirebaseStore(srv.URL+"/", "secret", srv.Client())
			got, err := s.StepGoal(context.Background(), "user_123")
			assert.Equal(t, "/step_goals/user_123.json", gotPath)
			assert.Equal(t, "secret", gotAuth)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirebaseStore_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewFirebaseStore(srv.URL, "", nil).StepGoal(context.Background(), "u")
	require.Error(t, err)
	assert.False(t, isPermanent(err))
}

func TestRedisStore_StepGoal(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db)
	ctx := context.Background()

	mock.ExpectGet("step_goals:user_123").SetVal("1000")
	g, err := s.StepGoal(ctx, "user_123")
	require.NoError(t, err)
	assert.Equal(t, 1000, g)

	mock.ExpectGet("step_goals:nobody").SetErr(redis.Nil)
	_, err = s.StepGoal(ctx, "nobody")
	assert.ErrorIs(t, err, ErrGoalNotFound)

	mock.ExpectGet("step_goals:bad").SetVal("lots")
	_, err = s.StepGoal(ctx, "bad")
	assert.ErrorIs(t, err, ErrInvalidGoal)

	mock.ExpectGet("step_goals:down").SetErr(errors.New("connection refused"))
	_, err = s.StepGoal(ctx, "down")
	require.Error(t, err)
	assert.False(t, isPermanent(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisStore_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { NewRedisStore(nil) })
}

func TestFetcher_RetriesTransientErrors(t *testing.T) {
	logger, buf := testLogger()
	store := &scriptedStore{errs: []error{errors.New("timeout"), errors.New("timeout")}, goal: 1000}
	f := NewFetcher(store, fastConfig(3), logger)

	g, err := f.Fetch(context.Background(), DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, 1000, g)
	assert.Equal(t, 3, store.Calls())
	assert.Contains(t, buf.String(), "retrying")
}

func TestFetcher_GivesUpAfterMaxRetries(t *testing.T) {
	logger, _ := testLogger()
	transient := errors.New("unreachable")
	store := &scriptedStore{errs: []error{transient, transient, transient, transient, transient}}
	f := NewFetcher(store, fastConfig(2), logger)

	_, err := f.Fetch(context.Background(), DefaultUserID)
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, store.Calls())
}

func TestFetcher_PermanentErrorsAreNotRetried(t *testing.T) {
	logger, _ := testLogger()
	store := &scriptedStore{errs: []error{ErrGoalNotFound}}
	f := NewFetcher(store, fastConfig(5), logger)

	_, err := f.Fetch(context.Background(), DefaultUserID)
	assert.ErrorIs(t, err, ErrGoalNotFound)
	assert.Equal(t, 1, store.Calls())
}

type blockingStore struct{}

func (blockingStore) StepGoal(ctx context.Context, userID string) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestFetcher_AttemptTimeout(t *testing.T) {
	logger, _ := testLogger()
	cfg := fastConfig(1)
	cfg.AttemptTimeout = 10 * time.Millisecond
	f := NewFetcher(blockingStore{}, cfg, logger)

	start := time.Now()
	_, err := f.Fetch(context.Background(), DefaultUserID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetcher_FetchAsyncDeliversOnce(t *testing.T) {
	logger, _ := testLogger()
	store := &scriptedStore{goal: 1234}
	f := NewFetcher(store, fastConfig(0), logger)

	var calls atomic.Int32
	results := make(chan Result, 2)
	f.FetchAsync(context.Background(), DefaultUserID, func(r Result) {
		calls.Add(1)
		results <- r
	})

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Equal(t, 1234, r.Goal)
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcher_FetchAsyncDeliversErrors(t *testing.T) {
	logger, _ := testLogger()
	f := NewFetcher(&scriptedStore{errs: []error{ErrInvalidGoal}}, fastConfig(0), logger)

	results := make(chan Result, 1)
	f.FetchAsync(context.Background(), DefaultUserID, func(r Result) { results <- r })

	select {
	case r := <-results:
		assert.ErrorIs(t, r.Err, ErrInvalidGoal)
		assert.Zero(t, r.Goal)
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
}

func TestNewFetcher_Validation(t *testing.T) {
	logger, _ := testLogger()
	assert.Panics(t, func() { NewFetcher(nil, DefaultFetcherConfig(), logger) })
	assert.Panics(t, func() { NewFetcher(StaticStore{}, DefaultFetcherConfig(), nil) })

	f := NewFetcher(StaticStore{}, FetcherConfig{MaxRetries: -1}, logger)
	assert.Equal(t, DefaultAttemptTimeout, f.cfg.AttemptTimeout)
	assert.Equal(t, 0, f.cfg.MaxRetries)
	assert.Equal(t, DefaultInitialInterval, f.cfg.InitialInterval)
}
