package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWaitsForInFlightRequests(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		io.WriteString(w, "ok")
	})}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hookCalled := make(chan struct{})
	served := make(chan error, 1)
	go func() {
		served <- serve(ctx, srv, ln, func() { close(hookCalled) })
	}()

	type result struct {
		status int
		body   string
		err    error
	}
	got := make(chan result, 1)
	go func() {
		res, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			got <- result{err: err}
			return
		}
		defer res.Body.Close()
		b, _ := io.ReadAll(res.Body)
		got <- result{status: res.StatusCode, body: string(b)}
	}()

	<-entered
	cancel()
	<-hookCalled
	select {
	case err := <-served:
		t.Fatalf("serve returned before the request finished: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	r := <-got
	require.NoError(t, r.err)
	assert.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "ok", r.body)
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after drain")
	}
}

func TestJWTSecretReadsPrefixedEnv(t *testing.T) {
	initConfig()
	t.Setenv("ZENFLOW_JWT_SECRET", "from-env")
	secret, generated, err := jwtSecret()
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, "from-env", secret)

	t.Setenv("ZENFLOW_JWT_SECRET", "")
	secret, generated, err = jwtSecret()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, secret, 64)
}
