package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType marks a well-formed frame whose type discriminant this
// client does not handle. Callers drop these without surfacing anything to
// the user.
var ErrUnknownType = errors.New("unknown event type")

// Decode parses one raw socket frame into a typed event. A JSON parse error
// or an unrecognized discriminant is an error for the caller to log and
// swallow; Decode itself never panics on hostile input.
func Decode(raw []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("malformed event frame: %w", err)
	}

	switch envelope.Type {
	case TypeRecipientChoices:
		var evt RecipientChoices
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", TypeRecipientChoices, err)
		}
		return evt, nil
	case TypeCardChoices:
		var evt CardChoices
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", TypeCardChoices, err)
		}
		return evt, nil
	case TypeCodeRequired:
		var evt CodeRequired
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("malformed %s payload: %w", TypeCodeRequired, err)
		}
		return evt, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}
}
