// Package telegram wraps the Telegram Bot API transport for Streako.
//
// It registers the bot commands, renders the action menu as an inline
// keyboard, and routes inbound events (commands, free text, callbacks) to
// the dialog engine. The bot also implements messaging.Notifier so
// scheduled reminders are delivered over the same connection.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/streako/streako/internal/flow"
	"github.com/streako/streako/internal/models"
)

const helpMessage = "View, add or delete a habit"

// DefaultPollTimeout is the long-poll timeout used when none is configured.
const DefaultPollTimeout = 10 * time.Second

// Opts holds configuration options for the Telegram bot.
type Opts struct {
	Token       string
	PollTimeout time.Duration
}

// Option defines a configuration option for the Telegram bot.
type Option func(*Opts)

// WithToken sets the bot API token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithPollTimeout sets the long-poll timeout.
func WithPollTimeout(d time.Duration) Option {
	return func(o *Opts) { o.PollTimeout = d }
}

// Bot is the Telegram-facing surface of Streako.
type Bot struct {
	bot    *tele.Bot
	engine *flow.Engine
}

// NewBot creates the bot, registers its command set, and wires all inbound
// handlers to the dialog engine.
func NewBot(engine *flow.Engine, opts ...Option) (*Bot, error) {
	cfg := Opts{PollTimeout: DefaultPollTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token must be provided")
	}

	tb, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	b := &Bot{bot: tb, engine: engine}
	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", func(c tele.Context) error {
		return b.engine.HandleStart(context.Background(), chatID(c), senderID(c))
	})

	b.bot.Handle("/help", func(c tele.Context) error {
		return c.Send(helpMessage, actionMenu())
	})

	b.bot.Handle("/clear", func(c tele.Context) error {
		return b.engine.StartFlow(context.Background(), chatID(c), senderID(c), models.FlowClearAll)
	})

	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		handled, err := b.engine.HandleInput(context.Background(), chatID(c), senderID(c), c.Text())
		if err != nil {
			slog.Error("Session input handling failed", "chatID", chatID(c), "error", err)
			return err
		}
		if !handled {
			slog.Debug("Ignoring text outside any flow", "chatID", chatID(c))
		}
		return nil
	})

	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		// Acknowledge the callback so the client stops its spinner.
		if err := c.Respond(); err != nil {
			slog.Debug("Callback acknowledgement failed", "error", err)
		}
		data := strings.TrimSpace(strings.TrimPrefix(c.Callback().Data, "\f"))
		return b.engine.HandleAction(context.Background(), chatID(c), senderID(c), data)
	})
}

// actionMenu builds the inline keyboard with one action per row.
func actionMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(models.Actions()))
	for _, a := range models.Actions() {
		rows = append(rows, menu.Row(menu.Data(a.Label(), string(a))))
	}
	menu.Inline(rows...)
	return menu
}

// Start registers the command list and begins long polling. Blocks until
// Stop is called.
func (b *Bot) Start() error {
	commands := []tele.Command{
		{Text: "start", Description: "Starts the bot"},
		{Text: "help", Description: "Get list of commands"},
		{Text: "clear", Description: "Clears all habits"},
	}
	if err := b.bot.SetCommands(commands); err != nil {
		return fmt.Errorf("failed to register bot commands: %w", err)
	}
	slog.Info("Telegram bot running")
	b.bot.Start()
	return nil
}

// Stop halts long polling.
func (b *Bot) Stop() {
	b.bot.Stop()
}

// Send delivers a text payload to a chat or user target. Implements
// messaging.Notifier for scheduled reminders and flow replies.
func (b *Bot) Send(ctx context.Context, target string, text string) error {
	id, err := parseTarget(target)
	if err != nil {
		return err
	}
	if _, err := b.bot.Send(tele.ChatID(id), text); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", target, err)
	}
	return nil
}

// parseTarget converts a chat/user identifier string to a Telegram chat ID.
func parseTarget(target string) (int64, error) {
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat target %q: %w", target, err)
	}
	return id, nil
}

func chatID(c tele.Context) string {
	return strconv.FormatInt(c.Chat().ID, 10)
}

func senderID(c tele.Context) string {
	return strconv.FormatInt(c.Sender().ID, 10)
}
