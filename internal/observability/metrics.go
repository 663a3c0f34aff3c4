package observability

// Instrument keys registered by infrastructure/observability.NewWithRegistry.
// Label sets are fixed per key.
const (
	// use_case, outcome (success | rejected | error | ignored)
	MUsecaseRequests MetricKey = "usecase_requests_total"
	// use_case
	MUsecaseDuration MetricKey = "usecase_duration_seconds"

	// method, route, status
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"

	// peer (catalog_store | cart_store | outbox), endpoint, outcome
	MExternalRequests MetricKey = "external_requests_total"
	// peer, endpoint
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"

	// product_id, movement (reserved | released | sold)
	MStockUnits MetricKey = "stock_units_total"
)
