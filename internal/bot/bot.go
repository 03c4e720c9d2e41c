package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"ton_miner/internal/domain"
	"ton_miner/internal/logger"
	"ton_miner/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot serves /start for players and the withdrawal desk for admins.
type Bot struct {
	api       API
	svc       *service.Services
	adminIDs  []int64
	webAppURL string
	stopCh    chan struct{}
	wg        sync.WaitGroup
	log       *slog.Logger
}

// NewBotAPI authorizes the token against Telegram.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info("bot authorized", "username", api.Self.UserName)
	return api, nil
}

func New(api API, svc *service.Services, adminIDs []int64, webAppURL string) *Bot {
	return &Bot{
		api:       api,
		svc:       svc,
		adminIDs:  adminIDs,
		webAppURL: webAppURL,
		stopCh:    make(chan struct{}),
		log:       logger.With("component", "bot"),
	}
}

// Start runs the update loop until Stop is called.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() || update.Message.From == nil {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.log.Info("stopping bot...")
	close(b.stopCh)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply := b.reply(ctx, msg)
	if _, err := b.api.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

// reply builds the answer to a single command.
func (b *Bot) reply(ctx context.Context, msg *tgbotapi.Message) tgbotapi.MessageConfig {
	from := msg.From
	args := strings.TrimSpace(msg.CommandArguments())

	var response string
	switch cmd := msg.Command(); {
	case cmd == "start":
		out := tgbotapi.NewMessage(msg.Chat.ID, b.handleStart(ctx, from, args))
		out.ParseMode = "HTML"
		if b.webAppURL != "" {
			out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("⛏ Open the mine", b.webAppURL)),
			)
		}
		return out
	case cmd == "balance":
		response = b.handleBalance(ctx, from.ID)
	case cmd == "help":
		response = b.helpMessage(b.isAdmin(from.ID))
	case !b.isAdmin(from.ID):
		response = "Unknown command. Use /help."
	case cmd == "stats":
		response = b.handleStats(ctx)
	case cmd == "grant":
		response = b.handleGrant(ctx, from.ID, args)
	case cmd == "withdrawals":
		response = b.handleWithdrawals(ctx)
	case cmd == "approve":
		response = b.handleApprove(ctx, from.ID, args)
	case cmd == "reject":
		response = b.handleReject(ctx, from.ID, args)
	default:
		response = "❌ Неизвестная команда. Используйте /help для списка команд."
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, response)
	out.ParseMode = "HTML"
	out.ReplyToMessageID = msg.MessageID
	return out
}

func (b *Bot) helpMessage(admin bool) string {
	text := `<b>⛏ TON Miner</b>

/start - open the mine
/balance - balance and floors`
	if !admin {
		return text
	}
	return text + `

<b>🤖 Команды администратора</b>
/stats - Статистика экономики
/grant &lt;tg_id&gt; &lt;алмазы&gt; - Начислить алмазы
/withdrawals - Ожидающие выводы
/approve &lt;id&gt; - Одобрить вывод
/reject &lt;id&gt; [причина] - Отклонить вывод`
}

// parseReferrer accepts the deep-link payload as "123" or "ref_123".
func parseReferrer(args string) *int64 {
	args = strings.TrimPrefix(strings.TrimSpace(args), "ref_")
	if args == "" {
		return nil
	}
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func (b *Bot) handleStart(ctx context.Context, from *tgbotapi.User, args string) string {
	name := service.DisplayName(from.ID, from.UserName, from.FirstName)
	_, created, err := b.svc.Accounts.Register(ctx, from.ID, name, parseReferrer(args))
	if err != nil {
		b.log.Error("register failed", "tg_id", from.ID, "error", err)
		return domain.Message(err)
	}
	if created {
		return fmt.Sprintf("Welcome, %s! Your first floor is already mining TON.", name)
	}
	return fmt.Sprintf("Welcome back, %s!", name)
}

func (b *Bot) handleBalance(ctx context.Context, id int64) string {
	view, err := b.svc.Accounts.View(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "Use /start first."
		}
		return domain.Message(err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b> · level %d\n", view.Username, view.Level))
	sb.WriteString(fmt.Sprintf("💰 %s TON\n💎 %d\n⚡ %s TON/s\n\n", view.Balance.String(), view.Diamonds, view.AggregateRate.String()))
	for _, f := range view.Floors {
		if !f.Unlocked {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: +%s (%s)\n", f.Name, f.Earnings.String(), f.Timer))
	}
	return sb.String()
}

func (b *Bot) handleStats(ctx context.Context) string {
	st, err := b.svc.Accounts.Stats(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}
	return fmt.Sprintf(`<b>📊 Статистика</b>

• Аккаунтов: %d
• TON на балансах: %s
• Алмазов: %d
• Ожидает вывода: %d`,
		st.Accounts, st.TotalBalance.String(), st.TotalDiamonds, st.PendingWithdrawals)
}

func (b *Bot) handleGrant(ctx context.Context, adminID int64, args string) string {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "❌ Использование: /grant <tg_id> <алмазы>"
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "❌ Неверный ID пользователя"
	}
	amount, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || amount <= 0 {
		return "❌ Неверная сумма"
	}

	if err := b.svc.Wallet.GrantDiamonds(ctx, adminID, userID, amount); err != nil {
		return fmt.Sprintf("❌ Ошибка: %s", domain.Message(err))
	}
	return fmt.Sprintf("✅ Начислено %d 💎 пользователю %d", amount, userID)
}

func (b *Bot) handleWithdrawals(ctx context.Context) string {
	list, err := b.svc.Wallet.PendingWithdrawals(ctx, 20)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}
	if len(list) == 0 {
		return "✅ Нет ожидающих выводов"
	}

	var sb strings.Builder
	sb.WriteString("<b>💸 Ожидающие выводы</b>\n\n")
	for _, w := range list {
		sb.WriteString(fmt.Sprintf("🆔 <code>%s</code>\n", w.ID))
		sb.WriteString(fmt.Sprintf("👤 %d | 💰 %s TON | 💎 %d\n", w.UserID, w.Amount.String(), w.FeeDiamonds))
		sb.WriteString(fmt.Sprintf("📅 %s\n\n", w.CreatedAt.Format("02.01.2006 15:04")))
	}
	sb.WriteString("/approve <id> — одобрить\n/reject <id> [причина] — отклонить")
	return sb.String()
}

func (b *Bot) handleApprove(ctx context.Context, adminID int64, args string) string {
	id, err := uuid.Parse(strings.TrimSpace(args))
	if err != nil {
		return "❌ Использование: /approve <id>"
	}
	if _, err := b.svc.Wallet.ApproveWithdrawal(ctx, adminID, id); err != nil {
		return fmt.Sprintf("❌ Ошибка: %s", domain.Message(err))
	}
	return fmt.Sprintf("✅ Вывод %s одобрен", id)
}

func (b *Bot) handleReject(ctx context.Context, adminID int64, args string) string {
	parts := strings.SplitN(args, " ", 2)
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return "❌ Использование: /reject <id> [причина]"
	}
	reason := ""
	if len(parts) == 2 {
		reason = strings.TrimSpace(parts[1])
	}
	if _, err := b.svc.Wallet.RejectWithdrawal(ctx, adminID, id, reason); err != nil {
		return fmt.Sprintf("❌ Ошибка: %s", domain.Message(err))
	}
	return fmt.Sprintf("❌ Вывод %s отклонён. Средства возвращены.", id)
}

// NotifyAdmins sends the message to every admin chat.
func (b *Bot) NotifyAdmins(_ context.Context, message string) {
	for _, adminID := range b.adminIDs {
		msg := tgbotapi.NewMessage(adminID, message)
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("failed to notify admin", "admin_id", adminID, "error", err)
		}
	}
}
