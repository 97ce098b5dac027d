package connector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/retry"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestREST(t *testing.T, h http.HandlerFunc, opts ...RESTOption) *REST {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]RESTOption{
		WithHTTPClient(srv.Client()),
		WithRetryPolicy(retry.Default().WithSleep(noSleep)),
		WithLimiter(nil),
	}, opts...)
	r, err := NewREST("test", srv.URL+"/v1", opts...)
	require.NoError(t, err)
	return r
}

func TestREST_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/v1/things", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		body, _ := io.ReadAll(req.Body)
		assert.JSONEq(t, `{"name":"x"}`, string(body))
		_, _ = w.Write([]byte(`{"id":"abc123"}`))
	})

	var out struct {
		ID string `json:"id"`
	}
	err := r.Do(context.Background(), Request{Operation: "things.create", Method: http.MethodPost, Path: "/things", Body: map[string]string{"name": "x"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "abc123", out.ID)
	assert.EqualValues(t, 3, calls.Load())
}

func TestREST_NonRetriableCalledOnce(t *testing.T) {
	var calls atomic.Int32
	r := newTestREST(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","message":"body failed validation"}`))
	})

	err := r.Do(context.Background(), Request{Operation: "things.create", Method: http.MethodPost, Path: "/things"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRequest)
	assert.Contains(t, err.Error(), "body failed validation")
	assert.EqualValues(t, 1, calls.Load())
}

func TestREST_NotFoundAndNoAccess(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/v1/secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"no such thing"}}`))
	})

	err := r.Do(context.Background(), Request{Operation: "things.get", Path: "/missing"}, nil)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindNotFound, e.Kind)
	assert.False(t, e.NoAccess)
	assert.Contains(t, e.Error(), "no such thing")

	err = r.Do(context.Background(), Request{Operation: "things.get", Path: "/secret"}, nil)
	require.ErrorAs(t, err, &e)
	assert.True(t, e.NoAccess)
}

func TestREST_NoContent(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	var out map[string]any
	require.NoError(t, r.Do(context.Background(), Request{Operation: "things.delete", Method: http.MethodDelete, Path: "/things/1"}, &out))
	assert.Nil(t, out)
}

func TestREST_AbsoluteURL(t *testing.T) {
	var path string
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.Path
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	})
	resp, err := r.Raw(context.Background(), Request{Operation: "media.download", URL: r.base.Scheme + "://" + r.base.Host + "/media/abc"})
	require.NoError(t, err)
	assert.Equal(t, "/media/abc", path)
	assert.Equal(t, "image/png", resp.ContentType)
	assert.Equal(t, []byte("png"), resp.Body)

	_, err = r.Raw(context.Background(), Request{Operation: "media.download", URL: "not a url"})
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestREST_MalformedJSON(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})
	var out map[string]any
	err := r.Do(context.Background(), Request{Operation: "things.get", Path: "/things/1"}, &out)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestREST_DecoratorAndHeaders(t *testing.T) {
	var tokens atomic.Int32
	r := newTestREST(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", req.Header.Get("Notion-Version"))
		assert.Equal(t, "1", req.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	},
		WithHeader("Notion-Version", "2022-06-28"),
		WithDecorator(BearerToken(func(context.Context) (string, error) {
			tokens.Add(1)
			return "tok", nil
		})),
	)

	var out map[string]string
	require.NoError(t, r.Do(context.Background(), Request{Operation: "things.list", Path: "/things", Query: map[string][]string{"page": {"1"}}}, &out))
	assert.Equal(t, "yes", out["ok"])
	assert.EqualValues(t, 1, tokens.Load())
}

func TestREST_DecoratorFailureIsReturned(t *testing.T) {
	r := newTestREST(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request must not be sent")
	}, WithDecorator(func(context.Context, *http.Request) error {
		return NewAuthenticationError("no credentials", nil)
	}))

	err := r.Do(context.Background(), Request{Operation: "things.get", Path: "/x"}, nil)
	assert.ErrorIs(t, err, ErrAuthentication)
}

type atomicObserver struct {
	calls, retries atomic.Int32
}

func (o *atomicObserver) ObserveCall(context.Context, string, string, error, time.Duration) {
	o.calls.Add(1)
}

func (o *atomicObserver) ObserveRetry(context.Context, string, string, int) {
	o.retries.Add(1)
}

func TestREST_Observer(t *testing.T) {
	var n atomic.Int32
	obs := &atomicObserver{}
	r := newTestREST(t, func(w http.ResponseWriter, _ *http.Request) {
		if n.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}, WithObserver(obs))

	require.NoError(t, r.Do(context.Background(), Request{Operation: "x", Path: "/x"}, nil))
	assert.EqualValues(t, 1, obs.calls.Load())
	assert.EqualValues(t, 1, obs.retries.Load())
}

func TestNewREST_InvalidBaseURL(t *testing.T) {
	_, err := NewREST("test", "not a url")
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "a", errorMessage([]byte(`{"message":"a"}`)))
	assert.Equal(t, "b", errorMessage([]byte(`{"error":{"message":"b"}}`)))
	assert.Equal(t, "c", errorMessage([]byte(`{"error":"c"}`)))
	assert.Equal(t, "plain text", errorMessage([]byte(`plain text`)))
}
