package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserID        = "user_id"
	FieldPeriod        = "period"
	FieldReportID      = "report_id"
	FieldMessageID     = "message_id"
	FieldTransactionID = "transaction_id"
	FieldQueue         = "queue"
	FieldAttempt       = "attempt"
)

// Components defines standard component names
const (
	ComponentAPI     = "api"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentRecalc  = "recalculation"
)
