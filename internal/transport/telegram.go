package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"shadowbot/internal/bot"
)

// Telegram adapts the Telegram Bot API to the bot.Transport contract and
// feeds inbound updates into the dispatcher. Identities and conversation IDs
// are the numeric Telegram IDs rendered as strings.
//
// DryRun skips the network entirely: sends are logged, roles resolve to none.
type Telegram struct {
	api    *tgbotapi.BotAPI
	dryRun bool
	log    *zap.Logger
	http   *http.Client
}

func NewTelegram(token string, dryRun bool, log *zap.Logger) (*Telegram, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Telegram{
		dryRun: dryRun,
		log:    log,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
	if dryRun {
		return t, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram session: %w", err)
	}
	t.api = api
	log.Info("telegram session up", zap.String("username", api.Self.UserName))
	return t, nil
}

// Run pumps updates into sink until the context ends. Enqueue failures
// (dispatcher shut down, queue full) drop the update with a log line; the
// next poll continues regardless.
func (t *Telegram) Run(ctx context.Context, sink func(bot.Event) error) {
	if t.dryRun {
		t.log.Info("dry run, no update pump")
		<-ctx.Done()
		return
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := t.api.GetUpdatesChan(cfg)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := t.toEvent(update)
			if !ok {
				continue
			}
			if err := sink(ev); err != nil {
				t.log.Warn("event dropped",
					zap.String("event_id", ev.ID), zap.Error(err))
			}
		}
	}
}

func (t *Telegram) toEvent(update tgbotapi.Update) (bot.Event, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return bot.Event{}, false
	}

	ev := bot.Event{
		ID:             strconv.Itoa(update.UpdateID),
		Kind:           bot.KindMessage,
		Identity:       strconv.FormatInt(msg.From.ID, 10),
		ConversationID: strconv.FormatInt(msg.Chat.ID, 10),
		GroupName:      msg.Chat.Title,
		IsGroup:        msg.Chat.IsGroup() || msg.Chat.IsSuperGroup(),
		FromSelf:       t.api != nil && msg.From.ID == t.api.Self.ID,
		Text:           msg.Text,
	}
	if ev.Text == "" {
		ev.Text = msg.Caption
	}

	if len(msg.NewChatMembers) > 0 {
		ev.Kind = bot.KindJoin
		for _, u := range msg.NewChatMembers {
			if t.api != nil && u.ID == t.api.Self.ID {
				continue
			}
			ev.Joined = append(ev.Joined, strconv.FormatInt(u.ID, 10))
		}
		if len(ev.Joined) == 0 {
			return bot.Event{}, false
		}
		return ev, true
	}

	if len(msg.Photo) > 0 {
		largest := msg.Photo[len(msg.Photo)-1]
		data, err := t.download(largest.FileID)
		if err != nil {
			t.log.Warn("photo download failed",
				zap.String("file_id", largest.FileID), zap.Error(err))
		} else {
			ev.Media = data
			ev.MediaMIME = "image/jpeg"
		}
	}
	return ev, true
}

func (t *Telegram) download(fileID string) ([]byte, error) {
	url, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	resp, err := t.http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file fetch: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (t *Telegram) Send(ctx context.Context, conversationID string, out bot.Outgoing) error {
	if t.dryRun {
		t.log.Info("dry-run send",
			zap.String("conversation_id", conversationID),
			zap.String("text", out.Text),
			zap.Bool("has_media", out.Media != nil))
		return nil
	}
	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad conversation id %q: %w", conversationID, err)
	}

	if out.Media != nil {
		file := tgbotapi.FileBytes{Name: out.Media.Filename, Bytes: out.Media.Data}
		var msg tgbotapi.Chattable
		switch {
		case out.Media.MIME == "image/jpeg" || out.Media.MIME == "image/png":
			photo := tgbotapi.NewPhoto(chatID, file)
			photo.Caption = out.Text
			msg = photo
		case out.Media.MIME == "audio/mpeg":
			audio := tgbotapi.NewAudio(chatID, file)
			audio.Caption = out.Text
			msg = audio
		default:
			doc := tgbotapi.NewDocument(chatID, file)
			doc.Caption = out.Text
			msg = doc
		}
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("send media: %w", err)
		}
		return nil
	}

	if out.Text == "" {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, out.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (t *Telegram) ConversationRole(ctx context.Context, conversationID, identity string) (bot.Role, error) {
	if t.dryRun {
		return bot.RoleNone, nil
	}
	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		return bot.RoleNone, fmt.Errorf("bad conversation id %q: %w", conversationID, err)
	}
	userID, err := strconv.ParseInt(identity, 10, 64)
	if err != nil {
		return bot.RoleNone, fmt.Errorf("bad identity %q: %w", identity, err)
	}

	member, err := t.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return bot.RoleNone, fmt.Errorf("chat member lookup: %w", err)
	}
	switch member.Status {
	case "creator", "administrator":
		return bot.RoleModerator, nil
	case "member", "restricted":
		return bot.RoleMember, nil
	}
	return bot.RoleNone, nil
}

// SetConversationRole promotes or demotes a chat member. Satisfies the
// optional role-change capability used by group admin commands.
func (t *Telegram) SetConversationRole(ctx context.Context, conversationID, identity string, promote bool) error {
	if t.dryRun {
		t.log.Info("dry-run role change",
			zap.String("conversation_id", conversationID),
			zap.String("identity", identity),
			zap.Bool("promote", promote))
		return nil
	}
	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad conversation id %q: %w", conversationID, err)
	}
	userID, err := strconv.ParseInt(identity, 10, 64)
	if err != nil {
		return fmt.Errorf("bad identity %q: %w", identity, err)
	}

	cfg := tgbotapi.PromoteChatMemberConfig{
		ChatMemberConfig:   tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		CanDeleteMessages:  promote,
		CanInviteUsers:     promote,
		CanRestrictMembers: promote,
		CanPinMessages:     promote,
	}
	if _, err := t.api.Request(cfg); err != nil {
		return fmt.Errorf("role change: %w", err)
	}
	return nil
}
