package bot

import (
	"fmt"
	"strings"

	"soulmine-bot/internal/format"
	"soulmine-bot/internal/repo"
	"soulmine-bot/internal/users"
)

// Links holds the external addresses rendered into menus.
type Links struct {
	WebAppURL       string
	MiniAppURL      string
	WalletURL       string
	BotUsername     string
	SupportUsername string
	SupportEmail    string
	SupportPhone    string
}

// Reply keyboard labels double as routing endpoints.
const (
	BtnApp     = "📱 Приложение"
	BtnSupport = "🤝 Поддержка"
	BtnNews    = "📰 Новости"
)

const (
	textRegisterFirst = "Пожалуйста, сначала зарегистрируйтесь, используя команду /start"
	textTryAgain      = "Произошла ошибка. Попробуйте снова."
	textRetryLater    = "⚠️ Сервис временно недоступен. Попробуйте позже."
	textAdminOnly     = "⛔ Команда доступна только администраторам."
	textChooseAction  = "Выберите действие из меню ниже:"
	textMainMenu      = "🏠 *Главное меню*"
	textBroadcastHelp = "Использование: /broadcast <текст сообщения>"
)

func startText(firstName string) string {
	if strings.TrimSpace(firstName) == "" {
		firstName = "друг"
	}
	return fmt.Sprintf("👋 Привет, %s!\n\n"+
		"Добро пожаловать в SoulMine — платформу Web3 знакомств с майнингом $LOVE токенов!\n\n"+
		textChooseAction, firstName)
}

const textApp = "📱 *Приложение SoulMine*\n\n" +
	"Выберите, как вы хотите использовать приложение:\n\n" +
	"• 🌐 Веб-приложение — полная версия на сайте\n" +
	"• 📱 Mini App — лёгкая версия в Telegram\n" +
	"• 🔗 Привязать кошелёк — для работы с токенами $LOVE\n\n" +
	"Что вы хотите сделать?"

const textSupport = "🤝 *Поддержка SoulMine*\n\n" +
	"Мы здесь, чтобы помочь вам! Выберите способ связи с поддержкой:\n\n" +
	"• 💬 Написать в поддержку - быстрый ответ в Telegram\n" +
	"• 📧 Отправить письмо - подробный ответ по email\n" +
	"• 📞 Звонок в поддержку - если нужно срочно\n\n" +
	"Какой способ вам удобнее?"

const textNews = "📰 *Новости SoulMine*\n\n" +
	"Оставайтесь в курсе последних событий:\n\n" +
	"• 📢 Последние новости - важные обновления\n" +
	"• 🔔 Включить уведомления - получайте оповещения\n" +
	"• 🔕 Выключить уведомления - отключите нотификации\n\n" +
	"Что вы хотите сделать?"

const textLatestNews = "📢 *Последние новости*\n\n" +
	"🎉 *Объявляем запуск нового сезона!* (20.10.2024)\n\n" +
	"Сегодня мы запускаем новый сезон с увеличенными наградами и новыми функциями:\n" +
	"• Увеличена награда за майнинг $LOVE токенов на 20%\n" +
	"• Добавлены новые NFT коллекции\n" +
	"• Улучшен алгоритм подбора пар\n" +
	"• Добавлена возможность видеозвонков\n\n" +
	"Спасибо, что вы с нами! 🎉"

const textNotificationsOn = "🔔 *Уведомления включены*\n\n" +
	"Теперь вы будете получать уведомления о:\n" +
	"• Новых сообщениях\n" +
	"• Новых матчах\n" +
	"• Наградах за активность\n" +
	"• Акциях и событиях\n\n" +
	"Вы всегда можете отключить уведомления, нажав соответствующую кнопку."

const textNotificationsOff = "🔕 *Уведомления отключены*\n\n" +
	"Вы больше не будете получать уведомления.\n\n" +
	"Вы всегда можете включить их обратно, нажав соответствующую кнопку."

const textHelp = "ℹ️ *Помощь SoulMine*\n\n" +
	"/start — главное меню\n" +
	"/profile — ваш профиль и реферальный код\n" +
	"/help — эта справка\n\n" +
	"Используйте кнопки меню, чтобы открыть приложение, связаться с поддержкой или читать новости."

func walletText(l Links) string {
	return "🔗 *Привязка кошелька*\n\n" +
		"Чтобы подключить TON-кошелёк:\n" +
		"1. Откройте приложение SoulMine.\n" +
		"2. Перейдите в раздел «Кошелёк».\n" +
		"3. Следуйте инструкциям на экране или используйте ссылку ниже.\n\n" +
		fmt.Sprintf("👉 [Привязать кошелёк](%s)\n\n", l.WalletURL) +
		"После привязки вы сможете управлять токенами $LOVE и получать награды."
}

func webAppText(l Links) string {
	return "🌐 *Веб-приложение SoulMine*\n\n" +
		"Полная версия доступна в браузере и поддерживает все функции платформы:\n" +
		"• Расширенный профиль\n" +
		"• Продвинутый поиск\n" +
		"• Управление наградами и кошельком\n\n" +
		fmt.Sprintf("👉 [Открыть веб-приложение](%s)", l.WebAppURL)
}

func miniAppText(l Links) string {
	return "📱 *Mini App SoulMine*\n\n" +
		"Используйте лёгкую версию приложения прямо в Telegram:\n\n" +
		fmt.Sprintf("👉 [Открыть Mini App](https://t.me/%s?startapp=mini_app)\n\n", l.BotUsername) +
		"Mini App позволяет:\n" +
		"• Быстро общаться с пользователями\n" +
		"• Получать базовые награды\n" +
		"• Просматривать профили\n" +
		"• Участвовать в чатах\n\n" +
		"Идеально для быстрого использования!"
}

func emailText(l Links, telegramID int64) string {
	return "📧 *Отправить письмо в поддержку*\n\n" +
		"Для отправки письма в поддержку:\n" +
		"1. Напишите ваш вопрос или проблему\n" +
		fmt.Sprintf("2. Укажите ваш Telegram ID: `%d`\n", telegramID) +
		fmt.Sprintf("3. Отправьте письмо на адрес: %s\n\n", l.SupportEmail) +
		"Мы ответим вам в течение 24 часов.\n\n" +
		"Также вы можете использовать другие способы связи, перечисленные выше."
}

func callText(l Links) string {
	return "📞 *Звонок в поддержку*\n\n" +
		"Для срочной помощи вы можете позвонить в поддержку:\n\n" +
		fmt.Sprintf("☎️ Телефон: %s\n", l.SupportPhone) +
		"🕒 Рабочее время: 9:00-21:00 (UTC+3)\n\n" +
		"Если вы не можете дозвониться, оставьте сообщение и мы перезвоним вам в течение 30 минут.\n\n" +
		"Также доступны другие способы связи, перечисленные выше."
}

func contactText(l Links) string {
	return "💬 *Написать в поддержку*\n\n" +
		"Вы можете написать в поддержку прямо сейчас:\n\n" +
		fmt.Sprintf("👉 [Написать в поддержку](tg://resolve?domain=%s)\n\n", l.SupportUsername) +
		"Наши операторы ответят вам в течение 15 минут.\n\n" +
		"Также доступны другие способы связи, перечисленные выше."
}

func profileText(l Links, u *repo.User) string {
	var b strings.Builder
	b.WriteString("👤 *Ваш профиль*\n\n")
	if u.Username != nil && format.ValidUsername(*u.Username) {
		fmt.Fprintf(&b, "🆔 `@%s`\n", *u.Username)
	}
	fmt.Fprintf(&b, "🏅 Уровень: %d (%s)\n", u.LoyaltyLevel, format.LevelName(u.LoyaltyLevel))
	fmt.Fprintf(&b, "💰 Баланс: %s\n", format.Points(u.TotalPoints))

	sub := "Бесплатная"
	if u.SubscriptionStatus == repo.SubscriptionPremium {
		sub = "Премиум"
		if u.SubscriptionEndDate != nil {
			sub += " до " + u.SubscriptionEndDate.Format("02.01.2006")
		}
	}
	fmt.Fprintf(&b, "⭐ Подписка: %s\n", sub)

	wallet := "не привязан"
	if u.WalletAddress != nil && format.ValidWallet(*u.WalletAddress) {
		wallet = "`" + *u.WalletAddress + "`"
	}
	fmt.Fprintf(&b, "👛 Кошелёк: %s\n", wallet)

	notifications := "выключены"
	if u.NotificationsEnabled {
		notifications = "включены"
	}
	fmt.Fprintf(&b, "🔔 Уведомления: %s\n", notifications)

	if u.HasReferralCode() {
		fmt.Fprintf(&b, "\n🎁 Реферальный код: `%s`\n", *u.ReferralCode)
		fmt.Fprintf(&b, "Пригласите друзей по ссылке:\n`https://t.me/%s?start=%s%s`", l.BotUsername, referralPayloadPrefix, *u.ReferralCode)
	}
	return b.String()
}

func statsText(st users.Stats) string {
	var b strings.Builder
	b.WriteString("📊 *Статистика пользователей*\n\n")
	fmt.Fprintf(&b, "Всего: %d\n", st.TotalUsers)
	fmt.Fprintf(&b, "Активных: %d\n\n", st.ActiveUsers)
	for level := 1; level <= 5; level++ {
		fmt.Fprintf(&b, "%s: %d\n", format.LevelName(level), st.UsersByLevel[level])
	}
	return b.String()
}

func broadcastReportText(total, success, failed int) string {
	return fmt.Sprintf("📣 Рассылка завершена\n\nВсего: %d\nДоставлено: %d\nОшибок: %d", total, success, failed)
}
