// Package handler adapts Lambda events to the streaming, parsing and partitioning tasks.
// Every invocation reloads the definitions of the invoked account.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws/arn"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/definition"
	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/stream"
)

// DefinitionLoader loads the definition model of an account.
type DefinitionLoader interface {
	Load(ctx context.Context, account string) (*definition.Definition, error)
}

// invokedOrigin returns the account and region of the running function.
func invokedOrigin(ctx context.Context) (stream.Origin, error) {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok {
		return stream.Origin{}, errors.New("lambda context is missing")
	}

	a, err := arn.Parse(lc.InvokedFunctionArn)
	if err != nil {
		return stream.Origin{}, fmt.Errorf("cannot parse invoked function arn: %w", err)
	}

	return stream.Origin{AccountID: a.AccountID, Region: a.Region}, nil
}
