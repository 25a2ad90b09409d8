// Package bot runs the Telegram front end over the session machine.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/obscurecore/eduscan/internal/institution"
	"github.com/obscurecore/eduscan/internal/session"
)

// maxMessageLen is the Telegram hard limit minus headroom; longer texts
// are sent in chunks.
const maxMessageLen = 4000

// districtsPerRow controls the district keyboard layout.
const districtsPerRow = 3

// Bot relays Telegram updates into the session machine and renders its
// replies back to chats.
type Bot struct {
	api     *tgbotapi.BotAPI
	machine *session.Machine
	logger  *zap.Logger
	client  *http.Client
}

// New connects to the Telegram API with the given token.
func New(token string, machine *session.Machine, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return &Bot{
		api:     api,
		machine: machine,
		logger:  logger,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	ev := session.Event{Text: msg.Text}
	if msg.Document != nil {
		data, err := b.downloadDocument(msg.Document.FileID)
		if err != nil {
			b.logger.Warn("document download failed",
				zap.String("file", msg.Document.FileName),
				zap.Error(err),
			)
			b.sendText(msg.Chat.ID, "Ошибка при загрузке файла: "+err.Error(), session.KeyboardNone, nil)
			return
		}
		ev.Document = &session.Document{
			Name: msg.Document.FileName,
			Mime: msg.Document.MimeType,
			Data: data,
		}
	}

	for _, reply := range b.machine.Handle(ctx, msg.Chat.ID, ev) {
		b.send(msg.Chat.ID, reply)
	}
}

func (b *Bot) send(chatID int64, reply session.Reply) {
	if reply.File != nil {
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  reply.File.Name,
			Bytes: reply.File.Data,
		})
		doc.Caption = reply.File.Caption
		if _, err := b.api.Send(doc); err != nil {
			b.logger.Error("send document failed", zap.String("file", reply.File.Name), zap.Error(err))
		}
		return
	}
	b.sendText(chatID, reply.Text, reply.Keyboard, reply.Selected)
}

func (b *Bot) sendText(chatID int64, text string, keyboard session.Keyboard, selected []string) {
	chunks := splitMessage(text, maxMessageLen)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		// The keyboard rides on the last chunk only.
		if i == len(chunks)-1 {
			if markup, ok := replyKeyboard(keyboard, selected); ok {
				msg.ReplyMarkup = markup
			}
		}
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("send message failed", zap.Error(err))
			return
		}
	}
}

func (b *Bot) downloadDocument(fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	resp, err := b.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// replyKeyboard maps a keyboard tag onto a Telegram reply markup.
func replyKeyboard(kb session.Keyboard, selected []string) (tgbotapi.ReplyKeyboardMarkup, bool) {
	switch kb {
	case session.KeyboardMain:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("📊 Скрапить учреждения")),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("📥 Загрузить Excel LandPlot")),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("🖼 Извлечь PDF изображения")),
		), true
	case session.KeyboardFormat:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Текст"),
				tgbotapi.NewKeyboardButton("Excel"),
			),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("🏠 Главное меню")),
		), true
	case session.KeyboardDistricts:
		return districtKeyboard(selected), true
	case session.KeyboardBackToMenu:
		return tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("🏠 Главное меню")),
		), true
	default:
		return tgbotapi.ReplyKeyboardMarkup{}, false
	}
}

// districtKeyboard lays out the district codes with check marks on the
// currently selected ones.
func districtKeyboard(selected []string) tgbotapi.ReplyKeyboardMarkup {
	marked := make(map[string]bool, len(selected))
	for _, code := range selected {
		marked[code] = true
	}

	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, d := range institution.Districts {
		label := d.Code
		if marked[d.Code] {
			label = "✔️ " + d.Code
		}
		row = append(row, tgbotapi.NewKeyboardButton(label))
		if len(row) == districtsPerRow {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("Готово"),
		tgbotapi.NewKeyboardButton("🏠 Главное меню"),
	))
	return tgbotapi.NewReplyKeyboard(rows...)
}

// splitMessage cuts text into chunks no longer than limit, preferring
// line boundaries.
func splitMessage(text string, limit int) []string {
	if text == "" {
		return []string{""}
	}
	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= limit {
			chunks = append(chunks, string(runes))
			break
		}
		cut := limit
		for i := limit; i > 0; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	return chunks
}
