package main

import (
	"context"
	"log"
	"time"

	"tablegrid/infrastructure/config"
	"tablegrid/infrastructure/di"
	"tablegrid/interfaces/http/rest"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container
	coldStart = true
)

// init runs during cold start. Session snapshots live in this instance's
// memory, so a session is bound to the instance that loaded it.
func init() {
	start := time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.IsLambda = true
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// The container lives as long as the execution environment; its cleanup never runs.
	container, _, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	mux, ok := rest.NewRouter(container).Setup().(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(mux)

	container.Logger.Info("Lambda cold start completed", zap.Duration("duration", time.Since(start)))
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if coldStart {
		container.Logger.Info("First invocation", zap.String("requestID", req.RequestContext.RequestID))
		coldStart = false
	}

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	// Datapoints are shipped before the environment can be frozen
	if container.CloudWatch != nil {
		if ferr := container.CloudWatch.Flush(ctx); ferr != nil {
			container.Logger.Warn("Metrics flush failed", zap.Error(ferr))
		}
	}
	return resp, err
}

func main() {
	lambda.Start(Handler)
}
