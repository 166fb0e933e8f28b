package mirror

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path, auth, body string
}

func server(t *testing.T, status int, reply string) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{r.Method, r.URL.Path, r.Header.Get("Authorization"), string(b)})
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/", "secret", srv.Client())
	require.NoError(t, err)
	return c, &calls
}

func TestCreate(t *testing.T) {
	c, calls := server(t, http.StatusCreated, `{"id":"r-42"}`)
	id, err := c.Create(t.Context(), json.RawMessage(`{"title":"Pay rent"}`))
	require.NoError(t, err)
	assert.Equal(t, "r-42", id)
	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, recorded{"POST", "/api/tasks", "Bearer secret", `{"title":"Pay rent"}`}, got)
}

func TestCreateWithoutID(t *testing.T) {
	c, _ := server(t, http.StatusOK, `{}`)
	_, err := c.Create(t.Context(), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestUpdateCompleteDelete(t *testing.T) {
	c, calls := server(t, http.StatusNoContent, "")
	require.NoError(t, c.Update(t.Context(), "r 1", json.RawMessage(`{"priority":4}`)))
	require.NoError(t, c.Complete(t.Context(), "r-2"))
	require.NoError(t, c.Delete(t.Context(), "r-3"))

	require.Len(t, *calls, 3)
	assert.Equal(t, "PATCH", (*calls)[0].method)
	assert.Equal(t, "/api/tasks/r 1", (*calls)[0].path)
	assert.Equal(t, "/api/tasks/r-2/close", (*calls)[1].path)
	assert.Equal(t, "DELETE", (*calls)[2].method)
}

func TestStatusError(t *testing.T) {
	c, _ := server(t, http.StatusNotFound, "gone")
	err := c.Delete(t.Context(), "r-9")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.StatusCode())
	assert.Equal(t, "gone", se.Body)
	assert.Contains(t, err.Error(), "status 404")
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New("  ", "", nil)
	assert.ErrorIs(t, err, ErrNoBaseURL)
}
