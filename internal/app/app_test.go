package app

import (
	"testing"

	"github.com/szhang829/badgerscholar/internal/config"
	"github.com/szhang829/badgerscholar/internal/log"
)

func TestApp_Close(t *testing.T) {
	tests := []struct {
		name     string
		setupApp func() *App
	}{
		{
			name: "close with no resources",
			setupApp: func() *App {
				return &App{Config: &config.Config{}, Logger: log.NewNop()}
			},
		},
		{
			name: "close runs cleanup hooks",
			setupApp: func() *App {
				return &App{
					Logger:      log.NewNop(),
					dbCleanup:   func() {},
					otelCleanup: func() {},
				}
			},
		},
		{
			name: "close with nil logger",
			setupApp: func() *App {
				return &App{}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.setupApp()
			if err := a.Close(); err != nil {
				t.Errorf("Close() = %v, want nil", err)
			}
		})
	}
}

func TestApp_CloseOrdersCleanup(t *testing.T) {
	var order []string
	a := &App{
		Logger:      log.NewNop(),
		dbCleanup:   func() { order = append(order, "db") },
		otelCleanup: func() { order = append(order, "otel") },
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}

	// Database first, tracing last so shutdown spans still export.
	if len(order) != 2 || order[0] != "db" || order[1] != "otel" {
		t.Errorf("cleanup order = %v, want [db otel]", order)
	}
}
