package bot

import (
	tele "gopkg.in/telebot.v3"
)

type outgoing struct {
	text     string
	markup   *tele.ReplyMarkup
	mode     tele.ParseMode
	isEdit   bool
	afterAck bool
}

// fakeContext records replies. Methods not overridden panic through the nil
// embedded interface, which flags unexpected calls in tests.
type fakeContext struct {
	tele.Context
	sender    *tele.User
	message   *tele.Message
	callback  *tele.Callback
	responded bool
	out       []outgoing
}

func newMessageContext(userID int64, text, payload string) *fakeContext {
	return &fakeContext{
		sender:  &tele.User{ID: userID, FirstName: "Ann", Username: "ann_w", LanguageCode: "ru"},
		message: &tele.Message{Text: text, Payload: payload},
	}
}

func newCallbackContext(userID int64, unique string) *fakeContext {
	return &fakeContext{
		sender:   &tele.User{ID: userID, FirstName: "Ann"},
		message:  &tele.Message{ID: 1},
		callback: &tele.Callback{Data: "\f" + unique},
	}
}

func (f *fakeContext) Sender() *tele.User       { return f.sender }
func (f *fakeContext) Message() *tele.Message   { return f.message }
func (f *fakeContext) Callback() *tele.Callback { return f.callback }

func (f *fakeContext) Text() string {
	if f.message == nil {
		return ""
	}
	return f.message.Text
}

func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responded = true
	return nil
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.record(what, false, opts)
	return nil
}

func (f *fakeContext) Edit(what interface{}, opts ...interface{}) error {
	f.record(what, true, opts)
	return nil
}

func (f *fakeContext) record(what interface{}, isEdit bool, opts []interface{}) {
	o := outgoing{isEdit: isEdit, afterAck: f.responded}
	o.text, _ = what.(string)
	for _, opt := range opts {
		switch v := opt.(type) {
		case *tele.ReplyMarkup:
			o.markup = v
		case tele.ParseMode:
			o.mode = v
		}
	}
	f.out = append(f.out, o)
}

func (f *fakeContext) last() outgoing {
	if len(f.out) == 0 {
		return outgoing{}
	}
	return f.out[len(f.out)-1]
}
