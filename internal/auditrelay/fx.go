package auditrelay

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultInterval = 5 * time.Second

var Module = fx.Module("audit.relay",
	fx.Provide(NewRelay),
	fx.Invoke(runRelay),
)

func runRelay(lc fx.Lifecycle, relay *Relay) {
	interval := relay.interval
	if interval <= 0 {
		interval = defaultInterval
	}
	stop := make(chan struct{})
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					if _, err := relay.ProcessPending(context.Background()); err != nil {
						relay.log.Error("audit relay poll failed", zap.Error(err))
					}
					select {
					case <-stop:
						return
					case <-ticker.C:
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}
