package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"aster_bot/internal/models"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// PositionLister отдаёт открытые позиции для команды /positions.
type PositionLister interface {
	List(ctx context.Context) ([]models.PositionView, error)
}

// BalanceReader отдаёт балансы для команды /balance.
type BalanceReader interface {
	Balance(ctx context.Context, useCache bool) ([]models.BalanceView, error)
}

// Telegram — пассивный нотифайер + обработка команд /positions и /balance.
// Все методы безопасны на nil-приёмнике.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64

	positions PositionLister
	balances  BalanceReader
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

// SetSources подключает источники для команд. Вызывается после сборки
// графа зависимостей, чтобы не создавать цикл в конструкторах.
func (t *Telegram) SetSources(positions PositionLister, balances BalanceReader) {
	if t == nil {
		return
	}
	t.positions = positions
	t.balances = balances
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) handlePositions(ctx context.Context) {
	if t.positions == nil {
		return
	}
	positions, err := t.positions.List(ctx)
	if err != nil {
		t.Sendf("❗️ Ошибка получения позиций: %v", err)
		return
	}
	if len(positions) == 0 {
		t.Send("📭 Открытых позиций нет")
		return
	}

	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s amt=%s entry=%s mark=%s lev=%dx pnl=%s\n",
			p.Symbol, p.PositionAmt, p.EntryPrice, p.MarkPrice, p.Leverage, p.UnrealizedProfit)
	}
	t.Send(b.String())
}

func (t *Telegram) handleBalance(ctx context.Context) {
	if t.balances == nil {
		return
	}
	balances, err := t.balances.Balance(ctx, true)
	if err != nil {
		t.Sendf("❗️ Ошибка получения баланса: %v", err)
		return
	}

	var b strings.Builder
	b.WriteString("💰 Баланс:\n")
	for _, bal := range balances {
		if bal.Balance.IsZero() && bal.AvailableBalance.IsZero() {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s (доступно %s)\n", bal.Asset, bal.Balance, bal.AvailableBalance)
	}
	t.Send(b.String())
}

// Start: long-polling для команд. Возврат сразу, обработка в горутине.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "positions":
					go t.handlePositions(ctx)
				case "balance":
					go t.handleBalance(ctx)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	if t == nil || t.bot == nil {
		return
	}
	t.bot.StopReceivingUpdates()
}

// Stdout — заглушка, всё пишет в лог.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { log.Println(msg) }
func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }
