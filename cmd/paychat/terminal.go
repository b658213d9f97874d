package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"paychat/pkg/chat"
)

// terminal is the stand-in presentation layer: it prints appended messages
// and maps slash commands onto the latest inline action of each kind.
type terminal struct {
	mu  sync.Mutex
	out io.Writer

	recipientMsgID string
	cardMsgID      string
	otpMsgID       string
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out}
}

func (t *terminal) banner(version, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "paychat v%s — user %s\n", version, userID)
	fmt.Fprintln(t.out, "Type a question, or /recipient <id>, /card <id>, /otp <code>, /quit")
}

// render runs under the conversation lock; it only prints and records the
// message IDs carrying live actions.
func (t *terminal) render(msg chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "[%s] %s\n", msg.Role, msg.Text)

	switch action := msg.Action.(type) {
	case *chat.RecipientChoice:
		t.recipientMsgID = msg.ID
		for _, item := range action.Items {
			fmt.Fprintf(t.out, "    %s  %s (%s)\n", item.ID, item.Name, item.Masked)
		}
	case *chat.CardChoice:
		t.cardMsgID = msg.ID
		for _, item := range action.Items {
			label := item.Holder
			if item.Bank != "" {
				label += " — " + item.Bank
			}
			if item.Main {
				label += " (default)"
			}
			fmt.Fprintf(t.out, "    %s  %s (%s)\n", item.ID, label, item.Masked)
		}
	case *chat.OTPPrompt:
		t.otpMsgID = msg.ID
		fmt.Fprintf(t.out, "    code expires in %ds\n", action.ExpiresIn)
	}
}

func (t *terminal) readInput(ctx context.Context, conv *chat.Conversation) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/recipient "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/recipient "))
			go conv.ChooseRecipient(ctx, t.pendingRecipient(), id)
		case strings.HasPrefix(line, "/card "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/card "))
			go conv.ChooseCard(ctx, t.pendingCard(), id)
		case strings.HasPrefix(line, "/otp "):
			code := strings.TrimSpace(strings.TrimPrefix(line, "/otp "))
			if !conv.ValidCode(code) {
				fmt.Fprintf(t.out, "The code must be numeric, at least %d digits.\n", conv.MinCodeDigits())
				continue
			}
			go conv.SubmitCode(ctx, t.pendingOTP(), code)
		default:
			if conv.Busy() {
				fmt.Fprintln(t.out, "Still waiting for the previous answer…")
				continue
			}
			go conv.SendQuery(ctx, line)
		}
	}
	return scanner.Err()
}

func (t *terminal) pendingRecipient() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recipientMsgID
}

func (t *terminal) pendingCard() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cardMsgID
}

func (t *terminal) pendingOTP() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.otpMsgID
}
