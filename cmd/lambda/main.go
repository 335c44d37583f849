// Command lambda serves crawl requests behind an API Gateway HTTP API.
package main

import (
	"context"

	"github.com/amp-labs/statecrawler/config"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	ctx := logger.WithSubsystem(context.Background(), "statecrawler-lambda")
	logger.ConfigureLogging(ctx, "statecrawler-lambda")

	settings, err := config.Load(ctx)
	if err != nil {
		logger.Fatal("Invalid settings", "error", err)
	}

	lambda.Start(NewHandler(settings).Crawl)
}
