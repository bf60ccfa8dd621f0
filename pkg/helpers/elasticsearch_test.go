package helpers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type esCall struct {
	Method, Path, Body string
}

// fakeES answers like Elasticsearch; exists controls the HEAD response.
func fakeES(t *testing.T, exists bool) (*httptest.Server, *[]esCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []esCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, esCall{r.Method, r.URL.Path, string(b)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodHead && !exists:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusOK)
		default:
			_, _ = w.Write([]byte(`{"acknowledged":true,"result":"created"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestESEnsureIndex_Creates(t *testing.T) {
	srv, calls := fakeES(t, false)
	es, err := NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)

	created, err := ESEnsureIndex(context.Background(), es, "messages", []byte(`{"mappings":{}}`))
	require.NoError(t, err)
	assert.True(t, created)
	require.Len(t, *calls, 2)
	assert.Equal(t, esCall{http.MethodPut, "/messages", `{"mappings":{}}`}, (*calls)[1])
}

func TestESEnsureIndex_Exists(t *testing.T) {
	srv, calls := fakeES(t, true)
	es, err := NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)

	created, err := ESEnsureIndex(context.Background(), es, "messages", nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, *calls, 1)
}

func TestESIndexJSON(t *testing.T) {
	srv, calls := fakeES(t, true)
	es, err := NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)

	require.NoError(t, ESIndexJSON(context.Background(), es, "messages", "42", map[string]string{"subject": "hi"}))
	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodPut, (*calls)[0].Method)
	assert.Equal(t, "/messages/_doc/42", (*calls)[0].Path)
	assert.JSONEq(t, `{"subject":"hi"}`, (*calls)[0].Body)
}
