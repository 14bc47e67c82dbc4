package observability

const (
	MUsecaseRequests     MetricKey = "usecase_requests_total"
	MUsecaseDuration     MetricKey = "usecase_duration_seconds"
	MConfirmAttempts     MetricKey = "order_confirm_attempts_total"
	MAuditRecordsDropped MetricKey = "audit_records_dropped_total"
)
