package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	params []*tg.SendMessageParams
	err    error
}

func (r *recordingSender) SendMessage(_ context.Context, p *tg.SendMessageParams) (*models.Message, error) {
	r.params = append(r.params, p)
	if r.err != nil {
		return nil, r.err
	}
	return &models.Message{}, nil
}

func TestNotifierSendsHTMLWithoutPreview(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier(s, -100123)

	require.NoError(t, n.Notify(context.Background(), "<b>alert</b>"))
	require.Len(t, s.params, 1)

	p := s.params[0]
	assert.Equal(t, int64(-100123), p.ChatID)
	assert.Equal(t, "<b>alert</b>", p.Text)
	assert.Equal(t, models.ParseModeHTML, p.ParseMode)
	require.NotNil(t, p.LinkPreviewOptions)
	require.NotNil(t, p.LinkPreviewOptions.IsDisabled)
	assert.True(t, *p.LinkPreviewOptions.IsDisabled)
}

func TestNotifierWrapsError(t *testing.T) {
	boom := errors.New("forbidden")
	n := NewNotifier(&recordingSender{err: boom}, 42)

	err := n.Notify(context.Background(), "x")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "notify chat 42")
}

func TestFromAdmin(t *testing.T) {
	h := &Handler{adminID: 7}
	assert.False(t, h.fromAdmin(&models.Update{}))
	assert.False(t, h.fromAdmin(&models.Update{Message: &models.Message{Chat: models.Chat{ID: 8}}}))
	assert.True(t, h.fromAdmin(&models.Update{Message: &models.Message{Chat: models.Chat{ID: 7}}}))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 100))

	blocks := []string{strings.Repeat("a", 40), strings.Repeat("b", 40), strings.Repeat("c", 40)}
	parts := splitMessage(strings.Join(blocks, "\n\n"), 90)
	require.Len(t, parts, 2)
	assert.Equal(t, blocks[0]+"\n\n"+blocks[1], parts[0])
	assert.Equal(t, blocks[2], parts[1])

	long := strings.Repeat("x", 30) + "\n" + strings.Repeat("y", 30) + "\n" + strings.Repeat("z", 30)
	parts = splitMessage(long, 70)
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 70)
	}
	assert.Equal(t, long, strings.Join(parts, "\n"))
}
