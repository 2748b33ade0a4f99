// Package app wires the ingestion service's dependencies and routes API
// Gateway requests. Configuration problems are fatal here, at startup — the
// service refuses to come up rather than failing every request one by one.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/audit"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/crypto"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/googleauth"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/handler"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/ingest"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/secret"
	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/sheets"
)

// externalCallTimeout bounds every call to the Sheets API so a hung upstream
// surfaces as an error instead of a stuck request.
const externalCallTimeout = 10 * time.Second

// App holds the dependencies for the Lambda function.
type App struct {
	ingestHandler    *handler.IngestHandler
	apiGatewaySecret string
}

// NewApp initializes the application dependencies. Missing or malformed
// credential configuration panics: this is the fail-fast boundary.
func NewApp(ctx context.Context) *App {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}

	devMode := os.Getenv("DEV_MODE") == "true"

	var resolver secret.Resolver
	if devMode {
		resolver = secret.NewEnvResolver()
		fmt.Println("Using EnvResolver (DEV_MODE=true)")
	} else {
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
		fmt.Println("Using SSMResolver (SSM Parameter Store)")
	}

	credentialParam := envDefault("SHEETS_CREDENTIALS_PARAM", "/atmfranchise/sheets-credentials")
	credentialBlob, err := resolver.GetSecret(ctx, credentialParam)
	if err != nil {
		panic(fmt.Sprintf("service account credential is not configured: %v", err))
	}

	// The credential blob may be stored as KMS ciphertext rather than as an
	// SSM SecureString; in that case decrypt it before parsing.
	if os.Getenv("SHEETS_CREDENTIALS_ENCRYPTED") == "true" {
		var encryptor crypto.Encryptor
		if devMode {
			encryptor = crypto.NewMockEncryptor()
		} else {
			keyID := envDefault("KMS_KEY_ID", "alias/atmfranchise-sheets-key")
			encryptor = crypto.NewKMSService(kms.NewFromConfig(cfg), keyID)
		}
		credentialBlob, err = encryptor.Decrypt(ctx, credentialBlob)
		if err != nil {
			panic(fmt.Sprintf("unable to decrypt service account credential: %v", err))
		}
	}

	credential, err := googleauth.ParseCredential([]byte(credentialBlob))
	if err != nil {
		panic(fmt.Sprintf("invalid service account credential: %v", err))
	}

	spreadsheetParam := envDefault("SPREADSHEET_ID_PARAM", "/atmfranchise/spreadsheet-id")
	spreadsheetID, err := resolver.GetSecret(ctx, spreadsheetParam)
	if err != nil {
		panic(fmt.Sprintf("spreadsheet id is not configured: %v", err))
	}

	tokens := googleauth.NewTokenProvider(credential)
	httpClient := oauth2.NewClient(ctx, tokens)
	httpClient.Timeout = externalCallTimeout

	service, err := sheetsapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		panic(fmt.Sprintf("unable to create Sheets client: %v", err))
	}
	sheetsClient := sheets.NewClient(service, spreadsheetID)

	// Audit trail. In dev mode the logger keeps entries in memory so no
	// DynamoDB table is required locally.
	var auditLogger *audit.Logger
	syncLogTable := envDefault("SYNC_LOG_TABLE", "SheetSyncLog")
	if devMode {
		auditLogger = audit.NewLogger(nil, syncLogTable)
		fmt.Println("Using in-memory sync log (DEV_MODE=true)")
	} else {
		auditLogger = audit.NewLogger(dynamodb.NewFromConfig(cfg), syncLogTable)
	}

	ingestService := ingest.NewService(sheetsClient, auditLogger)

	apiGatewaySecretParam := envDefault("API_GATEWAY_SECRET_PARAM", "/atmfranchise/api-gateway-secret")
	apiGatewaySecret, err := resolver.GetSecret(ctx, apiGatewaySecretParam)
	if err != nil {
		log.Printf("WARNING: failed to resolve API_GATEWAY_SECRET: %v", err)
	}

	return &App{
		ingestHandler:    handler.NewIngestHandler(ingestService),
		apiGatewaySecret: apiGatewaySecret,
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	fmt.Printf("Request: %s %s\n", method, path)

	// CORS Preflight
	if method == "OPTIONS" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Security: only requests proxied through CloudFront carry the shared
	// origin-verify header. Skipped in DEV_MODE.
	if os.Getenv("DEV_MODE") != "true" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			fmt.Printf("Security Block: Missing or invalid X-Origin-Verify header\n")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying)
	if strings.HasPrefix(path, "/api") {
		path = strings.TrimPrefix(path, "/api")
	}

	if path == "/ingest" && method == "POST" {
		return corsResponse(must(app.ingestHandler.Ingest(ctx, req))), nil
	}

	if path == "/healthz" && method == "GET" {
		return corsResponse(events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Body:       `{"status":"ok"}`,
			Headers:    map[string]string{"Content-Type": "application/json"},
		}), nil
	}

	return corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = os.Getenv("FRONTEND_URL")
	if resp.Headers["Access-Control-Allow-Origin"] == "" {
		resp.Headers["Access-Control-Allow-Origin"] = "http://localhost:3000"
	}
	resp.Headers["Access-Control-Allow-Methods"] = "POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,X-Origin-Verify"
	return resp
}

// must unwraps a handler response, converting an unexpected error into a 500.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		fmt.Printf("Handler error: %v\n", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}

func envDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
