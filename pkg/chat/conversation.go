// PayChat - client core for the Sello Pay assistant widget
// License: MIT
//
// Copyright (c) 2026 PayChat contributors

package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"paychat/pkg/actions"
	"paychat/pkg/events"
	"paychat/pkg/logger"
)

// RFC 6455 close code for an abnormal closure (no close frame received).
const abnormalClosureCode = 1006

// Conversation is the state machine reconciling the linear message history
// with server-pushed events, HTTP responses and user actions. All mutations
// go through its lock, so the history is strictly append-only and ordered by
// completion time.
type Conversation struct {
	dispatcher    *actions.Dispatcher
	minCodeDigits int
	onAppend      func(Message)

	mu            sync.Mutex
	history       []Message
	busy          bool
	connected     bool
	chatSessionID string
}

type Option func(*Conversation)

// WithMinCodeDigits overrides the minimum OTP code length (default 4).
func WithMinCodeDigits(n int) Option {
	return func(c *Conversation) {
		if n > 0 {
			c.minCodeDigits = n
		}
	}
}

// WithOnAppend registers a hook invoked for every appended message. The hook
// runs under the conversation lock and must not call back into it.
func WithOnAppend(fn func(Message)) Option {
	return func(c *Conversation) {
		c.onAppend = fn
	}
}

func NewConversation(dispatcher *actions.Dispatcher, opts ...Option) *Conversation {
	c := &Conversation{
		dispatcher:    dispatcher,
		minCodeDigits: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// History returns a snapshot of the message sequence.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := make([]Message, len(c.history))
	copy(history, c.history)
	return history
}

// Busy reports whether a free-text query is in flight.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Conversation) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// SendQuery submits one free-text query. Blank input, or a query already in
// flight, makes it a no-op. The busy flag is released on every exit path.
func (c *Conversation) SendQuery(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		logger.DebugC("chat", "Query ignored, another one is in flight")
		return
	}
	c.busy = true
	history := c.historyPayloadLocked()
	c.appendLocked(RoleUser, text, nil)
	c.mu.Unlock()

	reply, err := c.dispatcher.Chat(ctx, text, history)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if err != nil {
		c.appendLocked(RoleAssistant, describeFailure("Your question could not be sent", err), nil)
		return
	}

	c.chatSessionID = reply.SessionID
	c.appendLocked(RoleAssistant, reply.Answer, nil)
}

// ChatSessionID is the backend session identifier of the latest answered
// chat turn.
func (c *Conversation) ChatSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatSessionID
}

// HandleEvent folds one inbound event into the history. Repeated prompts for
// the same session each get their own message; the server resending a prompt
// is rendered as a resend.
func (c *Conversation) HandleEvent(evt events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e := evt.(type) {
	case events.RecipientChoices:
		text := fmt.Sprintf("Please choose a recipient for the transfer of %s:", formatAmount(e.Amount))
		c.appendLocked(RoleAssistant, text, &RecipientChoice{
			SessionID: e.SessionID,
			Amount:    e.Amount,
			Items:     e.List,
		})
	case events.CardChoices:
		text := fmt.Sprintf("Please choose a card to pay %s from:", formatAmount(e.Amount))
		c.appendLocked(RoleAssistant, text, &CardChoice{
			SessionID: e.SessionID,
			Amount:    e.Amount,
			Items:     e.List,
		})
	case events.CodeRequired:
		expires := e.ExpiresIn
		if expires < 0 {
			expires = 0
		}
		c.appendLocked(RoleAssistant, "Please enter the confirmation code sent to your phone.", &OTPPrompt{
			PaymentID: e.PaymentID,
			ExpiresIn: expires,
		})
	case events.Connected:
		c.connected = true
	case events.Disconnected:
		c.connected = false
		text := "Connection to the assistant was closed."
		if e.Code == abnormalClosureCode {
			text = "Connection to the assistant was lost unexpectedly. Please check your network."
		}
		// One notice per outage; back-to-back closures must not spam.
		if last, ok := c.lastLocked(); ok && last.Role == RoleAssistant && last.Text == text {
			return
		}
		c.appendLocked(RoleAssistant, text, nil)
	default:
		logger.WarnCF("chat", "Unhandled event", map[string]interface{}{
			logger.FieldEventType: evt.EventType(),
		})
	}
}

// ChooseRecipient resolves the recipient-choice action on the given message.
// The action is cleared as soon as the user acts, whether or not the
// confirmation call succeeds.
func (c *Conversation) ChooseRecipient(ctx context.Context, messageID, recipientID string) {
	if !c.dispatcher.Authenticated() {
		c.appendError("Cannot select a recipient: you are not signed in.")
		return
	}

	c.mu.Lock()
	msg := c.findLocked(messageID)
	if msg == nil || msg.Action == nil {
		c.mu.Unlock()
		return
	}
	choice, ok := msg.Action.(*RecipientChoice)
	if !ok {
		c.mu.Unlock()
		return
	}

	name := recipientID
	for _, item := range choice.Items {
		if item.ID == recipientID {
			name = item.Name
			break
		}
	}
	sessionID := choice.SessionID
	msg.Action = nil
	c.appendLocked(RoleUser, "Selected recipient/card: "+name, nil)
	c.mu.Unlock()

	if err := c.dispatcher.ChooseRecipient(ctx, sessionID, recipientID); err != nil {
		c.appendError(describeFailure("Recipient selection failed", err))
	}
}

// ChooseCard resolves the card-choice action on the given message.
func (c *Conversation) ChooseCard(ctx context.Context, messageID, cardID string) {
	if !c.dispatcher.Authenticated() {
		c.appendError("Cannot select a card: you are not signed in.")
		return
	}

	c.mu.Lock()
	msg := c.findLocked(messageID)
	if msg == nil || msg.Action == nil {
		c.mu.Unlock()
		return
	}
	choice, ok := msg.Action.(*CardChoice)
	if !ok {
		c.mu.Unlock()
		return
	}

	name := cardID
	for _, item := range choice.Items {
		if item.ID == cardID {
			name = item.Holder
			break
		}
	}
	sessionID := choice.SessionID
	msg.Action = nil
	c.appendLocked(RoleUser, "Selected recipient/card: "+name, nil)
	c.mu.Unlock()

	if err := c.dispatcher.ChooseCard(ctx, sessionID, cardID); err != nil {
		c.appendError(describeFailure("Card selection failed", err))
	}
}

// SubmitCode resolves the OTP prompt on the given message. An expired prompt
// is a no-op; expiry disables submission.
func (c *Conversation) SubmitCode(ctx context.Context, messageID, code string) {
	if !c.dispatcher.Authenticated() {
		c.appendError("Cannot confirm the payment: you are not signed in.")
		return
	}

	c.mu.Lock()
	msg := c.findLocked(messageID)
	if msg == nil || msg.Action == nil {
		c.mu.Unlock()
		return
	}
	prompt, ok := msg.Action.(*OTPPrompt)
	if !ok || prompt.Expired() {
		c.mu.Unlock()
		return
	}

	paymentID := prompt.PaymentID
	msg.Action = nil
	c.appendLocked(RoleUser, "Submitted confirmation code.", nil)
	c.mu.Unlock()

	if err := c.dispatcher.SubmitCode(ctx, paymentID, code); err != nil {
		c.appendError(describeFailure("Payment confirmation failed", err))
	}
}

// MinCodeDigits is the minimum accepted OTP code length.
func (c *Conversation) MinCodeDigits() int {
	return c.minCodeDigits
}

// ValidCode reports whether the code meets the prompt's minimum length and
// is all digits. The cmd layer uses it to disable the submit control.
func (c *Conversation) ValidCode(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) < c.minCodeDigits {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// TickCountdowns decrements every live OTP countdown by one second. Driven
// by a one-second ticker for the life of the session; independent of busy.
// Returns the number of countdowns still running.
func (c *Conversation) TickCountdowns() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := 0
	for i := range c.history {
		prompt, ok := c.history[i].Action.(*OTPPrompt)
		if !ok {
			continue
		}
		if prompt.ExpiresIn > 0 {
			prompt.ExpiresIn--
		}
		if prompt.ExpiresIn > 0 {
			live++
		}
	}
	return live
}

func (c *Conversation) appendError(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(RoleAssistant, text, nil)
}

func (c *Conversation) appendLocked(role Role, text string, action Action) {
	msg := Message{
		ID:     uuid.NewString(),
		Role:   role,
		Text:   text,
		Action: action,
		Time:   time.Now(),
	}
	c.history = append(c.history, msg)
	if c.onAppend != nil {
		c.onAppend(msg)
	}
}

func (c *Conversation) findLocked(messageID string) *Message {
	for i := range c.history {
		if c.history[i].ID == messageID {
			return &c.history[i]
		}
	}
	return nil
}

func (c *Conversation) lastLocked() (Message, bool) {
	if len(c.history) == 0 {
		return Message{}, false
	}
	return c.history[len(c.history)-1], true
}

func (c *Conversation) historyPayloadLocked() []actions.HistoryEntry {
	payload := make([]actions.HistoryEntry, 0, len(c.history))
	for _, msg := range c.history {
		payload = append(payload, actions.HistoryEntry{
			Role:  string(msg.Role),
			Query: msg.Text,
		})
	}
	return payload
}

func describeFailure(prefix string, err error) string {
	if errors.Is(err, actions.ErrAuthRequired) {
		return prefix + ": you are not signed in."
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
