package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func postOrder(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	calls := 0
	handler := Idempotency(newFakeStore(), 0, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), postOrder(`{}`, ""))
	}
	require.Equal(t, 2, calls)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	calls := 0
	handler := Idempotency(newFakeStore(), time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"o-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postOrder(`{"items":[]}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, postOrder(`{"items":[]}`, "abc"))
	require.Equal(t, http.StatusCreated, replay.Code)
	require.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	require.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	require.JSONEq(t, `{"data":{"id":"o-1"}}`, replay.Body.String())
	require.Equal(t, 1, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	handler := Idempotency(newFakeStore(), time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), postOrder(`{"a":1}`, "xyz"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postOrder(`{"a":2}`, "xyz"))

	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp))
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	var inner http.Handler
	outer := Idempotency(store, time.Hour, nil)
	inner = outer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dup := httptest.NewRecorder()
		inner.ServeHTTP(dup, postOrder(`{}`, "race"))
		require.Equal(t, http.StatusConflict, dup.Code)
		require.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, dup))
		w.WriteHeader(http.StatusCreated)
	}))

	resp := httptest.NewRecorder()
	inner.ServeHTTP(resp, postOrder(`{}`, "race"))
	require.Equal(t, http.StatusCreated, resp.Code)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	status := http.StatusInternalServerError
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), postOrder(`{}`, "retry"))
	require.Empty(t, store.data)

	status = http.StatusCreated
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postOrder(`{}`, "retry"))
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, 2, calls)
}

func TestIdempotencyScopesKeysPerPath(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), postOrder(`{}`, "k"))
	other := httptest.NewRequest(http.MethodPost, "/api/orders/from-cart", strings.NewReader(`{}`))
	other.Header.Set(IdempotencyHeader, "k")
	handler.ServeHTTP(httptest.NewRecorder(), other)
	require.Len(t, store.data, 2)
}
