package logger

const (
	FieldSessionID = "session_id"
	FieldPaymentID = "payment_id"
	FieldUserID    = "user_id"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldEventType = "event_type"
	FieldCloseCode = "close_code"
	FieldPreview   = "preview"
)
