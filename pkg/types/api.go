package types

import "encoding/json"

// Envelope is the request body accepted on every generation endpoint.
type Envelope struct {
	// Handler-specific payload.
	Payload json.RawMessage `json:"payload" swaggertype:"object"`
	// Authorization context issued by the autoscaler, typically
	// {signature, cost, endpoint, reqnum, url}. The worker never interprets it
	// and forwards the bytes unchanged with the request's telemetry record.
	AuthData json.RawMessage `json:"auth_data,omitempty" swaggertype:"object"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
