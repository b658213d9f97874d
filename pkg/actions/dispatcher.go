// PayChat - client core for the Sello Pay assistant widget
// License: MIT
//
// Copyright (c) 2026 PayChat contributors

package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"paychat/pkg/logger"
	"paychat/pkg/session"
)

// ErrAuthRequired is returned before any network call when the session
// context carries no usable credentials.
var ErrAuthRequired = errors.New("not authenticated")

// Requester is the authenticated POST helper the transport client provides.
type Requester interface {
	Request(ctx context.Context, path string, body interface{}) (json.RawMessage, error)
}

// HistoryEntry is one prior chat turn in the shape the chat endpoint expects.
type HistoryEntry struct {
	Role  string `json:"role"`
	Query string `json:"query"`
}

// ChatReply is the chat endpoint's answer. SessionID scopes any follow-up
// prompts the backend pushes for this turn.
type ChatReply struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// Dispatcher turns user decisions into confirmation calls against the
// transaction API. Every method fails fast with ErrAuthRequired when the
// session has no credentials; nothing goes on the wire in that case.
type Dispatcher struct {
	api  Requester
	sess *session.Context
}

func NewDispatcher(api Requester, sess *session.Context) *Dispatcher {
	return &Dispatcher{
		api:  api,
		sess: sess,
	}
}

func (d *Dispatcher) Authenticated() bool {
	return d.sess.Authenticated()
}

// Chat sends one free-text query together with the prior turns and returns
// the assistant's answer.
func (d *Dispatcher) Chat(ctx context.Context, query string, history []HistoryEntry) (*ChatReply, error) {
	if !d.sess.Authenticated() {
		return nil, ErrAuthRequired
	}

	if history == nil {
		history = []HistoryEntry{}
	}
	body := map[string]interface{}{
		"query":   query,
		"history": history,
	}

	raw, err := d.api.Request(ctx, "/v1/"+d.sess.UserID+"/chat", body)
	if err != nil {
		return nil, err
	}

	var reply ChatReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat reply: %w", err)
	}

	logger.DebugCF("actions", "Chat answered", map[string]interface{}{
		logger.FieldSessionID: reply.SessionID,
	})
	return &reply, nil
}

// ChooseRecipient confirms the recipient picked for the pending transaction.
func (d *Dispatcher) ChooseRecipient(ctx context.Context, sessionID, recipientID string) error {
	return d.choose(ctx, sessionID, "recipient_id", recipientID)
}

// ChooseCard confirms the paying card picked for the pending transaction.
func (d *Dispatcher) ChooseCard(ctx context.Context, sessionID, cardID string) error {
	return d.choose(ctx, sessionID, "card_id", cardID)
}

func (d *Dispatcher) choose(ctx context.Context, sessionID, field, id string) error {
	if !d.sess.Authenticated() {
		return ErrAuthRequired
	}

	sessionID = strings.TrimSpace(sessionID)
	id = strings.TrimSpace(id)
	if sessionID == "" || id == "" {
		return fmt.Errorf("missing %s selection", field)
	}

	_, err := d.api.Request(ctx, "/v1/transactions/choose/"+sessionID, map[string]string{field: id})
	if err != nil {
		logger.WarnCF("actions", "Selection failed", map[string]interface{}{
			logger.FieldSessionID: sessionID,
			logger.FieldError:     err.Error(),
		})
		return err
	}

	logger.InfoCF("actions", "Selection confirmed", map[string]interface{}{
		logger.FieldSessionID: sessionID,
	})
	return nil
}

// SubmitCode confirms a pending payment with the OTP code the user entered.
// Code format and countdown expiry are enforced upstream by the prompt.
func (d *Dispatcher) SubmitCode(ctx context.Context, paymentID, code string) error {
	if !d.sess.Authenticated() {
		return ErrAuthRequired
	}

	paymentID = strings.TrimSpace(paymentID)
	code = strings.TrimSpace(code)
	if paymentID == "" || code == "" {
		return errors.New("missing payment id or code")
	}

	_, err := d.api.Request(ctx, "/v1/transactions/"+paymentID+"/confirm", map[string]string{"code": code})
	if err != nil {
		logger.WarnCF("actions", "Code confirmation failed", map[string]interface{}{
			logger.FieldPaymentID: paymentID,
			logger.FieldError:     err.Error(),
		})
		return err
	}

	logger.InfoCF("actions", "Payment confirmed", map[string]interface{}{
		logger.FieldPaymentID: paymentID,
	})
	return nil
}
