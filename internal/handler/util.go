package handler

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// jsonResponse marshals payload into an API Gateway response.
func jsonResponse(status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"success":false,"error":"failed to encode response"}`,
			Headers:    map[string]string{"Content-Type": "application/json"},
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// errorResponse builds the outbound failure envelope.
func errorResponse(status int, message, details string) events.APIGatewayProxyResponse {
	return jsonResponse(status, struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Details string `json:"details,omitempty"`
	}{Success: false, Error: message, Details: details})
}
