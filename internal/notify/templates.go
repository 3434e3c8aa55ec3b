package notify

import (
	"context"
	"fmt"
	"strconv"
)

const welcomeText = "👋 Привет! Добро пожаловать в SoulMine!\n\n" +
	"Мы рады, что вы с нами. Вот что вы можете сделать:\n" +
	"• 📱 Откройте приложение и настройте профиль\n" +
	"• 🤝 Начните знакомства с другими пользователями\n" +
	"• 💰 Получайте $LOVE токены за активность\n" +
	"• 🎁 Получайте награды и достижения\n\n" +
	"Удачи в поиске пары!"

const matchText = "💖 У вас есть новый матч!\n\n" +
	"Кто-то из пользователей отметил вас как интересного собеседника.\n" +
	"Посмотрите профиль и начните общение!"

// WelcomeText greets a newly registered user.
func WelcomeText() string { return welcomeText }

// MatchText announces a new match.
func MatchText() string { return matchText }

// RewardText announces a reward of amount units of kind.
func RewardText(amount float64, kind string) string {
	return fmt.Sprintf("🎉 Поздравляем! Вы получили %s %s!\n\n"+
		"Спасибо за вашу активность на платформе.\n"+
		"Продолжайте в том же духе!", strconv.FormatFloat(amount, 'f', -1, 64), kind)
}

// SendWelcome delivers the greeting sent after registration.
func (n *Notifier) SendWelcome(ctx context.Context, chatID string) bool {
	return n.SendOne(ctx, chatID, WelcomeText(), ModePlain)
}

// SendReward announces a reward to chatID.
func (n *Notifier) SendReward(ctx context.Context, chatID string, amount float64, kind string) bool {
	return n.SendOne(ctx, chatID, RewardText(amount, kind), ModePlain)
}

// SendMatch tells chatID about a new match.
func (n *Notifier) SendMatch(ctx context.Context, chatID string) bool {
	return n.SendOne(ctx, chatID, MatchText(), ModePlain)
}
