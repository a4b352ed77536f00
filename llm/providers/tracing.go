package providers

import (
	"context"

	clc "github.com/cloudwego/eino-ext/callbacks/cozeloop"
	"github.com/cloudwego/eino/callbacks"
	"github.com/coze-dev/cozeloop-go"
)

// SetupTracing registers a cozeloop callback handler for every eino component
// when both credentials are set. The returned func flushes and closes the
// client; it is a no-op when tracing is disabled.
func SetupTracing(apiToken, workspaceID string) (func(ctx context.Context), error) {
	if apiToken == "" || workspaceID == "" {
		return func(context.Context) {}, nil
	}

	client, err := cozeloop.NewClient(
		cozeloop.WithAPIToken(apiToken),
		cozeloop.WithWorkspaceID(workspaceID),
	)
	if err != nil {
		return nil, err
	}
	callbacks.AppendGlobalHandlers(clc.NewLoopHandler(client))

	return func(ctx context.Context) { client.Close(ctx) }, nil
}
