package chat

import (
	"time"

	"paychat/pkg/events"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in the conversation. Once appended it never changes,
// except that Action goes from set to nil when the user acts on it.
type Message struct {
	ID     string
	Role   Role
	Text   string
	Action Action
	Time   time.Time
}

// Action is the inline widget attached to at most one assistant message:
// a recipient list, a card list, or an OTP prompt.
type Action interface {
	ActionKind() string
}

const (
	KindRecipientChoice = "recipient_choice"
	KindCardChoice      = "card_choice"
	KindOTPPrompt       = "otp_prompt"
)

type RecipientChoice struct {
	SessionID string
	Amount    float64
	Items     []events.RecipientItem
}

func (*RecipientChoice) ActionKind() string { return KindRecipientChoice }

type CardChoice struct {
	SessionID string
	Amount    float64
	Items     []events.CardItem
}

func (*CardChoice) ActionKind() string { return KindCardChoice }

// OTPPrompt counts down once per second from the server-sent expiry. At zero
// the prompt can no longer be submitted.
type OTPPrompt struct {
	PaymentID string
	ExpiresIn int
}

func (*OTPPrompt) ActionKind() string { return KindOTPPrompt }

func (p *OTPPrompt) Expired() bool { return p.ExpiresIn <= 0 }
