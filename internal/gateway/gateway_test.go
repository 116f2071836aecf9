package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/playroom-app/playroom-client/internal/session"
)

type recordedCall struct {
	reducer string
	auth    string
	ident   string
	args    []any
}

func newReducerServer(t *testing.T, status int, body string, rotate bool) (*httptest.Server, chan recordedCall) {
	t.Helper()
	calls := make(chan recordedCall, 4)
	r := chi.NewRouter()
	r.Post("/call/{reducer}", func(w http.ResponseWriter, req *http.Request) {
		data, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		var args []any
		require.NoError(t, json.Unmarshal(data, &args))
		calls <- recordedCall{
			reducer: chi.URLParam(req, "reducer"),
			auth:    req.Header.Get("Authorization"),
			ident:   req.Header.Get(HeaderIdentity),
			args:    args,
		}
		if rotate {
			w.Header().Set(HeaderIdentity, "0xCD34")
			w.Header().Set(HeaderToken, "tok-2")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestCall_SendsCredentialsAndArgs(t *testing.T) {
	srv, calls := newReducerServer(t, http.StatusOK, `{"joined":true}`, false)
	sess := session.New(nil, zap.NewNop())
	sess.Rotate("ab12", "tok-1")

	g := New(srv.URL, sess, zap.NewNop())
	res, err := g.Call(context.Background(), "join_room", "VWXYZ")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Equal(t, http.StatusOK, res.Status)
	require.JSONEq(t, `{"joined":true}`, string(res.Payload))

	call := <-calls
	require.Equal(t, "join_room", call.reducer)
	require.Equal(t, "Bearer tok-1", call.auth)
	require.Equal(t, "ab12", call.ident)
	require.Equal(t, []any{"VWXYZ"}, call.args)
}

func TestCall_NoArgsSendsEmptyArray(t *testing.T) {
	srv, calls := newReducerServer(t, http.StatusOK, "", false)
	g := New(srv.URL, session.New(nil, zap.NewNop()), zap.NewNop())

	res, err := g.Call(context.Background(), "leave_room")
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Nil(t, res.Payload)

	call := <-calls
	require.Empty(t, call.args)
	require.Empty(t, call.auth) // no stored token yet
}

func TestCall_ServerRejectionIsResultNotError(t *testing.T) {
	srv, _ := newReducerServer(t, http.StatusConflict, "room is closed", false)
	g := New(srv.URL, session.New(nil, zap.NewNop()), zap.NewNop())

	res, err := g.Call(context.Background(), "join_room", "VWXYZ")
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, http.StatusConflict, res.Status)
	require.Equal(t, "room is closed", res.Error)
}

func TestCall_RotatedHeadersPersistToSession(t *testing.T) {
	srv, _ := newReducerServer(t, http.StatusOK, "", true)
	sess := session.New(nil, zap.NewNop())
	sess.Rotate("ab12", "tok-1")

	g := New(srv.URL, sess, zap.NewNop())
	_, err := g.Call(context.Background(), "join_room", "VWXYZ")
	require.NoError(t, err)

	identity, token := sess.Credentials()
	require.Equal(t, "cd34", identity) // canonicalized from the header
	require.Equal(t, "tok-2", token)
}

func TestCall_TransportFailureIsError(t *testing.T) {
	srv, _ := newReducerServer(t, http.StatusOK, "", false)
	srv.Close()
	g := New(srv.URL, session.New(nil, zap.NewNop()), zap.NewNop())

	_, err := g.Call(context.Background(), "join_room", "VWXYZ")
	require.Error(t, err)
}
