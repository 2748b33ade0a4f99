package main

import (
	"context"

	"github.com/arunvkumar99/atmfranchiseindia-sub001/internal/app"
	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	application := app.NewApp(context.Background())
	lambda.Start(application.HandleRequest)
}
