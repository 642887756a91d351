package api

import (
	"context"

	"github.com/daemonp/webasto-monitor/internal/controller"
	"github.com/daemonp/webasto-monitor/internal/monitor"
)

// StateSource serves the latest monitor snapshot.
type StateSource interface {
	Snapshot() monitor.Snapshot
	SetFilter(direction, search string) error
}

// Commands are the operator intents exposed over HTTP.
type Commands interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Refresh(ctx context.Context) error
	StartMode(ctx context.Context, mode string, minutes int) error
	ControlPump(ctx context.Context, enable bool) error
	Shutdown(ctx context.Context, confirm controller.Confirmer) error
	ClearErrors(ctx context.Context) error
	TestComponent(ctx context.Context, component string, params controller.TestParams) error
	ClearMessages(ctx context.Context, confirm controller.Confirmer) error
}
