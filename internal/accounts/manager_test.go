package accounts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/connector"
)

type fakeClient struct {
	account string
}

func countingFactory(calls *atomic.Int32) Factory[*fakeClient] {
	return func(_ context.Context, account string) (*fakeClient, error) {
		calls.Add(1)
		return &fakeClient{account: account}, nil
	}
}

func TestResolveWithoutArgumentReturnsFirstRegistered(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("gmail", countingFactory(&calls))
	ctx := context.Background()

	a, err := m.Register(ctx, "A@example.com")
	require.NoError(t, err)
	_, err = m.Register(ctx, "b@example.com")
	require.NoError(t, err)

	byDefault, err := m.Resolve(ctx, "")
	require.NoError(t, err)
	byName, err := m.Resolve(ctx, "a@example.com")
	require.NoError(t, err)

	assert.Same(t, a, byDefault)
	assert.Same(t, a, byName)
	assert.Equal(t, "a@example.com", m.Default())
	assert.EqualValues(t, 2, calls.Load())
}

func TestResolveNoDefault(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("gmail", countingFactory(&calls))

	_, err := m.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, connector.ErrNoDefaultAccount)
	assert.Zero(t, calls.Load())
}

func TestResolveUnknownAccount(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("gmail", countingFactory(&calls))

	_, err := m.Resolve(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, connector.ErrUnknownAccount)
	assert.Zero(t, calls.Load())
}

func TestSetDefault(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("gmail", countingFactory(&calls))
	ctx := context.Background()

	assert.ErrorIs(t, m.SetDefault("x"), connector.ErrUnknownAccount)

	_, err := m.Register(ctx, "work")
	require.NoError(t, err)
	_, err = m.Register(ctx, "home")
	require.NoError(t, err)
	require.NoError(t, m.SetDefault("HOME"))

	c, err := m.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "home", c.account)
}

func TestConcurrentResolveCreatesOneHandle(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	m := NewManager("gmail", func(_ context.Context, account string) (*fakeClient, error) {
		calls.Add(1)
		<-release
		return &fakeClient{account: account}, nil
	})
	m.Seed([]string{"a"}, "")

	var wg sync.WaitGroup
	results := make([]*fakeClient, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := m.Resolve(context.Background(), "a")
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, c := range results {
		assert.Same(t, results[0], c)
	}
}

func TestFailedCreationIsRetried(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("gmail", func(_ context.Context, account string) (*fakeClient, error) {
		if calls.Add(1) == 1 {
			return nil, connector.NewAuthenticationError("consent denied", nil)
		}
		return &fakeClient{account: account}, nil
	})

	_, err := m.Register(context.Background(), "a")
	assert.ErrorIs(t, err, connector.ErrAuthentication)
	assert.Empty(t, m.List())
	assert.Empty(t, m.Default())

	c, err := m.Register(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", c.account)
	assert.Equal(t, []string{"a"}, m.List())
}

func TestSeed(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("gmail", countingFactory(&calls))
	m.Seed([]string{"b", "a"}, "")
	assert.Equal(t, []string{"a", "b"}, m.List())
	assert.Equal(t, "b", m.Default())
	assert.Zero(t, calls.Load())

	m.Seed(nil, "C")
	assert.Equal(t, "c", m.Default())
	assert.Equal(t, []string{"a", "b", "c"}, m.List())
}

func TestRemove(t *testing.T) {
	var calls atomic.Int32
	var revoked []string
	m := NewManager("gmail", countingFactory(&calls), WithRevoke[*fakeClient](func(_ context.Context, account string) error {
		revoked = append(revoked, account)
		return nil
	}))
	ctx := context.Background()
	_, _ = m.Register(ctx, "a")
	_, _ = m.Register(ctx, "b")

	require.NoError(t, m.Remove(ctx, "a"))
	assert.Equal(t, []string{"a"}, revoked)
	assert.Equal(t, "b", m.Default())
	assert.Equal(t, []string{"b"}, m.List())

	assert.ErrorIs(t, m.Remove(ctx, "a"), connector.ErrUnknownAccount)
}

func TestRemoveRevokeError(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("gmail", countingFactory(&calls), WithRevoke[*fakeClient](func(context.Context, string) error {
		return errors.New("disk full")
	}))
	_, _ = m.Register(context.Background(), "a")
	assert.EqualError(t, m.Remove(context.Background(), "a"), "disk full")
}

func TestRegisterRequiresID(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("gmail", countingFactory(&calls))
	_, err := m.Register(context.Background(), "  ")
	assert.ErrorIs(t, err, connector.ErrMalformedRequest)
}

func TestResolveKnownAccountRegistersImplicitly(t *testing.T) {
	var calls atomic.Int32
	m := NewManager("gmail", countingFactory(&calls), WithKnown[*fakeClient](func(account string) bool {
		return account == "persisted@example.com"
	}))

	c, err := m.Resolve(context.Background(), "Persisted@example.com")
	require.NoError(t, err)
	assert.Equal(t, "persisted@example.com", c.account)
	assert.Equal(t, []string{"persisted@example.com"}, m.List())
	assert.Equal(t, "persisted@example.com", m.Default())

	_, err = m.Resolve(context.Background(), "other@example.com")
	assert.ErrorIs(t, err, connector.ErrUnknownAccount)
}
