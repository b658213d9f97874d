package events

// Wire event type discriminants pushed by the backend over the socket.
const (
	TypeRecipientChoices = "RECIPIENT_CHOICES"
	TypeCardChoices      = "CARD_CHOICES"
	TypeCodeRequired     = "CODE_REQUIRED"
)

// Event is anything delivered on the inbound queue: decoded wire events plus
// connectivity transitions synthesized by the transport.
type Event interface {
	EventType() string
}

type RecipientItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Masked   string `json:"masked"`
	PanLast4 string `json:"pan_last4,omitempty"`
}

type CardItem struct {
	ID       string   `json:"id"`
	Holder   string   `json:"holder"`
	Bank     string   `json:"bank,omitempty"`
	Masked   string   `json:"masked"`
	Main     bool     `json:"main,omitempty"`
	Balance  *float64 `json:"balance,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// RecipientChoices asks the user to pick a transfer recipient for a pending
// transaction scoped by SessionID.
type RecipientChoices struct {
	SessionID string          `json:"session_id"`
	Amount    float64         `json:"amount"`
	List      []RecipientItem `json:"list"`
}

func (RecipientChoices) EventType() string { return TypeRecipientChoices }

// CardChoices asks the user to pick the paying card.
type CardChoices struct {
	SessionID string     `json:"session_id"`
	Amount    float64    `json:"amount"`
	List      []CardItem `json:"list"`
}

func (CardChoices) EventType() string { return TypeCardChoices }

// CodeRequired asks the user for the OTP code confirming a pending payment.
type CodeRequired struct {
	PaymentID string `json:"payment_id"`
	ExpiresIn int    `json:"expires_in"`
}

func (CodeRequired) EventType() string { return TypeCodeRequired }

// Connected and Disconnected are local to the client; they never appear on
// the wire.
type Connected struct{}

func (Connected) EventType() string { return "CONNECTED" }

type Disconnected struct {
	Code   int
	Reason string
}

func (Disconnected) EventType() string { return "DISCONNECTED" }
