package bot

import tele "gopkg.in/telebot.v3"

// MainKeyboard is the persistent reply keyboard.
func MainKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}
	menu.Reply(
		menu.Row(menu.Text(BtnApp)),
		menu.Row(menu.Text(BtnSupport)),
		menu.Row(menu.Text(BtnNews)),
	)
	return menu
}

func mainMenuButton(menu *tele.ReplyMarkup) tele.Btn {
	return menu.Data("🏠 Главное меню", string(KindMainMenu))
}

// AppKeyboard lists the ways to reach the application. The launch row is
// only shown when a mini app URL is configured.
func AppKeyboard(l Links) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	rows := []tele.Row{
		menu.Row(menu.Data("🌐 Открыть веб-приложение", string(KindOpenWebApp))),
		menu.Row(menu.Data("📱 Открыть Mini App", string(KindOpenMiniApp))),
		menu.Row(menu.Data("🔗 Привязать кошелёк", string(KindLinkWallet))),
	}
	if l.MiniAppURL != "" {
		rows = append(rows, menu.Row(menu.WebApp("🚀 Запустить Mini App", &tele.WebApp{URL: l.MiniAppURL})))
	}
	rows = append(rows, menu.Row(mainMenuButton(menu)))
	menu.Inline(rows...)
	return menu
}

// SupportKeyboard lists the support channels.
func SupportKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("💬 Написать в поддержку", string(KindContactSupport))),
		menu.Row(menu.Data("📧 Отправить письмо", string(KindSendEmail))),
		menu.Row(menu.Data("📞 Звонок в поддержку", string(KindCallSupport))),
		menu.Row(mainMenuButton(menu)),
	)
	return menu
}

// NewsKeyboard offers news and the notification toggles.
func NewsKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(menu.Data("📢 Последние новости", string(KindLatestNews))),
		menu.Row(menu.Data("🔔 Включить уведомления", string(KindEnableNotifications))),
		menu.Row(menu.Data("🔕 Выключить уведомления", string(KindDisableNotifications))),
		menu.Row(mainMenuButton(menu)),
	)
	return menu
}

// BackKeyboard returns to the main menu.
func BackKeyboard() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(mainMenuButton(menu)))
	return menu
}
