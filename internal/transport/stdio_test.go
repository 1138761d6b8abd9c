package transport

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingServer struct {
	started chan struct{}
	release chan struct{}
}

func (s *blockingServer) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	close(s.started)
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil
}

func TestStdioContainerRejectsSecondRegistration(t *testing.T) {
	c := NewStdioContainer(&bytes.Buffer{}, &bytes.Buffer{})
	first := &blockingServer{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, c.Register(context.Background(), "first", first))
	<-first.started
	defer close(first.release)

	second := &blockingServer{started: make(chan struct{}), release: make(chan struct{})}
	defer close(second.release)
	err := c.Register(context.Background(), "second", second)
	assert.Error(t, err)
}

func TestStdioContainerReleaseAllowsReRegistration(t *testing.T) {
	c := NewStdioContainer(&bytes.Buffer{}, &bytes.Buffer{})
	first := &blockingServer{started: make(chan struct{}), release: make(chan struct{})}
	require.NoError(t, c.Register(context.Background(), "first", first))
	<-first.started
	close(first.release)
	c.Release()

	assert.False(t, c.IsRegistered())
	second := &blockingServer{started: make(chan struct{}), release: make(chan struct{})}
	defer close(second.release)
	require.NoError(t, c.Register(context.Background(), "second", second))
	select {
	case <-second.started:
	case <-time.After(time.Second):
		t.Fatal("second server never started")
	}
}
