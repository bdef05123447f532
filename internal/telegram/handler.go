package telegram

import (
	"context"
	"fmt"
	"strings"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

// maxMessageLen stays under Telegram's 4096 character limit.
const maxMessageLen = 4000

// Sender is the part of the bot API used to deliver messages.
type Sender interface {
	SendMessage(ctx context.Context, params *tg.SendMessageParams) (*models.Message, error)
}

// Handler coordinates Telegram <-> commands.
type Handler struct {
	bot     *tg.Bot
	adminID int64
	cmds    *Commands
	log     zerolog.Logger
}

// New constructs the Telegram Handler. Only messages from adminID are
// answered.
func New(bot *tg.Bot, cmds *Commands, adminID int64, log zerolog.Logger) *Handler {
	return &Handler{
		bot:     bot,
		adminID: adminID,
		cmds:    cmds,
		log:     log.With().Str("component", "telegram").Logger(),
	}
}

// Run starts long-polling and handles updates until ctx is done.
func (h *Handler) Run(ctx context.Context) {
	h.bot.RegisterHandler(tg.HandlerTypeMessageText, "/", tg.MatchTypePrefix, func(c context.Context, b *tg.Bot, u *models.Update) {
		if !h.fromAdmin(u) {
			return
		}
		h.log.Debug().Str("text", u.Message.Text).Msg("command")
		reply := h.cmds.Dispatch(c, u.Message.Text)
		for _, part := range splitMessage(reply, maxMessageLen) {
			if err := sendHTML(c, h.bot, u.Message.Chat.ID, part); err != nil {
				h.log.Error().Err(err).Msg("send error")
			}
		}
	})
	h.bot.Start(ctx)
}

func (h *Handler) fromAdmin(u *models.Update) bool {
	if u.Message == nil {
		return false
	}
	if u.Message.Chat.ID != h.adminID {
		h.log.Debug().Int64("chat_id", u.Message.Chat.ID).Msg("ignoring message from non-admin chat")
		return false
	}
	return true
}

// Notifier delivers alert messages to a fixed chat.
type Notifier struct {
	sender Sender
	chatID int64
}

// NewNotifier returns a Notifier posting to chatID.
func NewNotifier(sender Sender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

// Notify sends one HTML message to the alert chat.
func (n *Notifier) Notify(ctx context.Context, html string) error {
	if err := sendHTML(ctx, n.sender, n.chatID, html); err != nil {
		return fmt.Errorf("notify chat %d: %w", n.chatID, err)
	}
	return nil
}

func sendHTML(ctx context.Context, s Sender, chatID int64, html string) error {
	disable := true
	_, err := s.SendMessage(ctx, &tg.SendMessageParams{
		ChatID:    chatID,
		Text:      html,
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disable,
		},
	})
	return err
}

// splitMessage cuts text on blank-line boundaries so each part fits in limit.
// A single block longer than limit is cut on line boundaries instead.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	add := func(piece, sep string) {
		if cur.Len() > 0 && cur.Len()+len(sep)+len(piece) > limit {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(piece)
	}

	for _, block := range strings.Split(text, "\n\n") {
		if len(block) <= limit {
			add(block, "\n\n")
			continue
		}
		flush()
		for _, line := range strings.Split(block, "\n") {
			add(line, "\n")
		}
		flush()
	}
	flush()
	return parts
}
