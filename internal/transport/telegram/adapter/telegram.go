package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"jobalert/internal/notifier"
	rtsup "jobalert/internal/runtime/supervisor"
	"jobalert/internal/transport"
	logx "jobalert/pkg/logx"
)

// Adapter wraps a telebot bot. It implements notifier.Notifier for outbound
// messages and, in polling mode, feeds incoming updates to a transport.Handler.
type Adapter struct {
	cfg Config
	log logx.Logger

	bot *tele.Bot

	runMu   sync.Mutex
	running bool
	handler transport.Handler
	// sup owns the poll loop; created on StartPolling and cancelled on Stop.
	sup *rtsup.Supervisor
}

var _ notifier.Notifier = (*Adapter)(nil)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	// The long-poll request must outlive the server-side poll timeout.
	clientTimeout := sendTimeout
	if timeout+5*time.Second > clientTimeout {
		clientTimeout = timeout + 5*time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.URL,
		Token:   cfg.Token,
		Poller:  &tele.LongPoller{Timeout: timeout},
		Client:  &http.Client{Timeout: clientTimeout},
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg.SendTimeout = sendTimeout
	a := &Adapter{cfg: cfg, log: log, bot: b}
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) registerHandlers() {
	forward := func(c tele.Context) error {
		a.runMu.Lock()
		h := a.handler
		sup := a.sup
		a.runMu.Unlock()
		if h == nil || sup == nil {
			return nil
		}
		up := FromTele(c.Update())
		if err := h.Handle(sup.Context(), up); err != nil {
			a.log.Warn("update handling failed", logx.Int("update_id", up.ID), logx.Err(err))
		}
		return nil
	}
	// Telebot falls through to OnText for any slash command without its own handler.
	a.bot.Handle(tele.OnText, forward)
	a.bot.Handle(tele.OnEdited, forward)
}

// FromTele converts a telebot update into the transport shape.
// Edited messages are surfaced as messages with Edited set.
func FromTele(u tele.Update) transport.Update {
	up := transport.Update{ID: u.ID}
	m, edited := u.Message, false
	if m == nil && u.EditedMessage != nil {
		m, edited = u.EditedMessage, true
	}
	if m == nil {
		return up
	}
	msg := &transport.Message{ID: m.ID, Text: m.Text, Edited: edited}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}
	if m.Sender != nil {
		msg.FromID = m.Sender.ID
		msg.FromFirstName = m.Sender.FirstName
	}
	up.Message = msg
	return up
}

// StartPolling removes any registered webhook and starts long polling.
// Each update is handled synchronously in telebot's handler goroutine.
func (a *Adapter) StartPolling(ctx context.Context, h transport.Handler) error {
	if h == nil {
		return errors.New("telegram: nil handler")
	}
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	if err := a.bot.RemoveWebhook(); err != nil {
		a.runMu.Unlock()
		return err
	}
	a.running = true
	a.handler = h
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "telegram.adapter"))),
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})
	// Start blocks until Stop; restart it if it returns on its own.
	sup.GoRestart("telebot.poll", func(c context.Context) error {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
		return nil
	}, 500*time.Millisecond, 10*time.Second)
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	wasRunning := a.running
	a.sup = nil
	a.running = false
	a.handler = nil
	a.runMu.Unlock()

	if !wasRunning || sup == nil {
		return nil
	}
	sup.Cancel()

	// Keep shutdown snappy even if getUpdates is still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	wctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		a.log.Warn("telegram stop incomplete", logx.Err(err))
	}
	return nil
}

// SetWebhook registers url with Telegram. A non-empty secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (a *Adapter) SetWebhook(ctx context.Context, url, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(url) == "" {
		return errors.New("telegram: webhook url is empty")
	}
	return a.bot.SetWebhook(&tele.Webhook{
		Endpoint:       &tele.WebhookEndpoint{PublicURL: url},
		SecretToken:    secret,
		AllowedUpdates: []string{"message", "edited_message"},
	})
}

func (a *Adapter) RemoveWebhook(ctx context.Context, dropPending bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.bot.RemoveWebhook(dropPending)
}

// Send implements notifier.Notifier. formatted selects HTML parse mode.
func (a *Adapter) Send(ctx context.Context, chatID int64, text string, formatted bool) error {
	opt := &transport.SendOptions{DisablePreview: true}
	if formatted {
		opt.ParseMode = transport.ParseModeHTML
	}
	return a.SendText(ctx, chatID, text, opt)
}

// SendText sends text to chatID, split into chunks below the Telegram limit.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string, opt *transport.SendOptions) error {
	if chatID == 0 {
		return notifier.ErrNoRecipient
	}
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	chunks := splitTelegramText(text, telegramTextLimit, opt.ParseMode)
	chat := &tele.Chat{ID: chatID}
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		sendOpt := &tele.SendOptions{
			ParseMode:             tele.ParseMode(opt.ParseMode),
			DisableWebPagePreview: opt.DisablePreview,
		}
		if _, err := a.bot.Send(chat, chunk, sendOpt); err != nil {
			return err
		}
	}
	return nil
}
