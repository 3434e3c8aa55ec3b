package bot

// Kind enumerates every inbound event the bot reacts to.
type Kind string

// Commands.
const (
	KindStart     Kind = "start"
	KindHelp      Kind = "help"
	KindProfile   Kind = "profile"
	KindStats     Kind = "stats"
	KindBroadcast Kind = "broadcast"
)

// Reply keyboard buttons.
const (
	KindApp     Kind = "app"
	KindSupport Kind = "support"
	KindNews    Kind = "news"
)

// Inline callbacks.
const (
	KindLinkWallet           Kind = "link_wallet"
	KindOpenWebApp           Kind = "open_web_app"
	KindOpenMiniApp          Kind = "open_mini_app"
	KindMainMenu             Kind = "main_menu"
	KindSendEmail            Kind = "send_email"
	KindCallSupport          Kind = "call_support"
	KindContactSupport       Kind = "contact_support"
	KindLatestNews           Kind = "latest_news"
	KindEnableNotifications  Kind = "enable_notifications"
	KindDisableNotifications Kind = "disable_notifications"
)

// AllKinds lists the closed set of kinds a Router must cover.
func AllKinds() []Kind {
	return []Kind{
		KindStart, KindHelp, KindProfile, KindStats, KindBroadcast,
		KindApp, KindSupport, KindNews,
		KindLinkWallet, KindOpenWebApp, KindOpenMiniApp, KindMainMenu,
		KindSendEmail, KindCallSupport, KindContactSupport,
		KindLatestNews, KindEnableNotifications, KindDisableNotifications,
	}
}

// AdminOnly reports whether the kind is restricted to administrators.
func (k Kind) AdminOnly() bool {
	return k == KindStats || k == KindBroadcast
}

// IsCallback reports whether the kind is triggered by an inline button.
func (k Kind) IsCallback() bool {
	switch k {
	case KindLinkWallet, KindOpenWebApp, KindOpenMiniApp, KindMainMenu,
		KindSendEmail, KindCallSupport, KindContactSupport,
		KindLatestNews, KindEnableNotifications, KindDisableNotifications:
		return true
	}
	return false
}
