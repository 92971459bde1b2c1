package translate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

func TestNewTranslateCommand(t *testing.T) {
	cmd := NewTranslateCommand()

	require.NotNil(t, cmd)

	assert.Equal(t, "translate", cmd.Use)
	assert.Equal(t, "Translate text with the configured provider", cmd.Short)
	assert.True(t, cmd.HasExample())
	assert.False(t, cmd.HasSubCommands())
	assert.NotNil(t, cmd.RunE)

	for _, name := range []string{"message", "to", "from", "provider", "model", "debug"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "English", cmd.Flags().Lookup("to").DefValue)
	assert.Equal(t, "m", cmd.Flags().Lookup("message").Shorthand)
}

type fakeTranslator struct {
	calls []string
	err   error
}

func (f *fakeTranslator) Translate(_ context.Context, _, dest, text string) (string, error) {
	f.calls = append(f.calls, dest+"|"+text)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("[%s] %s", dest, text), nil
}

func newSession(tr Translator) (*session, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &session{translator: tr, to: "English", out: out}, out
}

func TestSessionHandle(t *testing.T) {
	tr := &fakeTranslator{}
	s, out := newSession(tr)
	ctx := context.Background()

	assert.False(t, s.handle(ctx, "   "))
	assert.Empty(t, tr.calls)

	assert.False(t, s.handle(ctx, "hola"))
	assert.Contains(t, out.String(), "[English] hola")

	assert.False(t, s.handle(ctx, "/to ja"))
	assert.Equal(t, "ja", s.to)
	assert.Contains(t, out.String(), "Now translating into Japanese")

	assert.False(t, s.handle(ctx, "/to"))
	assert.Equal(t, "ja", s.to)

	// Not a command: no space after /to.
	assert.False(t, s.handle(ctx, "/today"))
	assert.Equal(t, []string{"English|hola", "ja|/today"}, tr.calls)

	assert.True(t, s.handle(ctx, "quit"))
	assert.True(t, s.handle(ctx, " exit "))
}

func TestSessionHandle_Errors(t *testing.T) {
	tr := &fakeTranslator{err: translate.ErrModerationRejected}
	s, out := newSession(tr)

	assert.False(t, s.handle(context.Background(), "bad words"))
	assert.Contains(t, out.String(), "rejected by moderation")

	tr.err = fmt.Errorf("%w: boom", translate.ErrTranslationUnavailable)
	out.Reset()
	s.handle(context.Background(), "hello")
	assert.Contains(t, out.String(), "Error: error translating")

	_, err := s.translate(context.Background(), "hello")
	assert.True(t, errors.Is(err, translate.ErrTranslationUnavailable))
}

func TestSimpleInteractiveMode(t *testing.T) {
	tr := &fakeTranslator{}
	s, out := newSession(tr)

	simpleInteractiveMode(s, strings.NewReader("bonjour\n/to es\nhello\nexit\nignored\n"))

	assert.Equal(t, []string{"English|bonjour", "es|hello"}, tr.calls)
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestSimpleInteractiveMode_EOFWithoutNewline(t *testing.T) {
	tr := &fakeTranslator{}
	s, out := newSession(tr)

	simpleInteractiveMode(s, strings.NewReader("last line"))

	assert.Equal(t, []string{"English|last line"}, tr.calls)
	assert.Contains(t, out.String(), "Goodbye!")
}
