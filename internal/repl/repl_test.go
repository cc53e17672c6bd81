package repl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(seen *[]string) Handler {
	return func(_ context.Context, line string) (string, error) {
		*seen = append(*seen, line)
		return "echo " + line, nil
	}
}

func TestRun_ExitKeyword(t *testing.T) {
	var seen []string
	var out bytes.Buffer
	err := Run(context.Background(), strings.NewReader("hello\n  QUIT \nnever\n"), &out, echo(&seen))
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, seen)
	assert.Equal(t, "User: AI: echo hello\nUser: ", out.String())
}

func TestRun_EOF(t *testing.T) {
	var seen []string
	var out bytes.Buffer
	err := Run(context.Background(), strings.NewReader("one\ntwo"), &out, echo(&seen))
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, seen)
	assert.Equal(t, "User: AI: echo one\nUser: AI: echo two\n", out.String())
}

func TestRun_EmptyInput(t *testing.T) {
	var seen []string
	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), strings.NewReader(""), &out, echo(&seen)))
	assert.Empty(t, seen)
	assert.Equal(t, "User: \n", out.String())
}

func TestRun_BlankLinesSkipped(t *testing.T) {
	var seen []string
	err := Run(context.Background(), strings.NewReader("\n   \r\nhi\nexit\n"), &bytes.Buffer{}, echo(&seen))
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, seen)
}

func TestRun_CustomKeywords(t *testing.T) {
	var seen []string
	err := Run(context.Background(), strings.NewReader("exit\nBye\nlater\n"), &bytes.Buffer{}, echo(&seen), "bye")
	require.NoError(t, err)
	assert.Equal(t, []string{"exit"}, seen)
}

func TestRun_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	h := func(context.Context, string) (string, error) {
		calls++
		return "", boom
	}
	err := Run(context.Background(), strings.NewReader("a\nb\n"), &bytes.Buffer{}, h)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var seen []string
	err := Run(ctx, strings.NewReader("hi\n"), &bytes.Buffer{}, echo(&seen))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, seen)
}

func TestRun_CancelWhileWaitingForInput(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	var out bytes.Buffer
	go func() {
		errc <- Run(ctx, pr, &out, func(context.Context, string) (string, error) {
			t.Error("handler must not run")
			return "", nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the context was cancelled")
	}
}

func TestRun_CancelBetweenLines(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	answered := make(chan struct{})
	go func() {
		errc <- Run(ctx, pr, io.Discard, func(context.Context, string) (string, error) {
			close(answered)
			return "ok", nil
		})
	}()

	_, err := io.WriteString(pw, "first\n")
	require.NoError(t, err)
	<-answered
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the context was cancelled")
	}
}
