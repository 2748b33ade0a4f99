package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/app"
	"github.com/aws/aws-lambda-go/events"
)

// Local development server: wraps the Lambda handler in a plain HTTP server
// so the ingestion endpoint can be exercised without API Gateway.
func main() {
	application := app.NewApp(context.Background())

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		headers := make(map[string]string)
		for k, v := range r.Header {
			headers[k] = v[0]
		}

		req := events.APIGatewayProxyRequest{
			Path:       r.URL.Path,
			HTTPMethod: r.Method,
			Headers:    headers,
			Body:       string(body),
		}

		resp, err := application.HandleRequest(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})

	fmt.Println("Starting local server on :8080")
	log.Fatal(http.ListenAndServe(":8080", nil))
}
