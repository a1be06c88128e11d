package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/event"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/history"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/logging"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/output"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-resolve a configuration whenever a file in its chain changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Delay before re-resolving after a change")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	r := newRenderer(cmd.OutOrStdout())
	store := historyStore()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.Component("watch")
	unsubscribe := a.bus.Subscribe(event.ConfigChanged, func(e event.Event) {
		if data, ok := e.Data.(event.ChangedData); ok {
			log.Info().Str("file", data.Path).Msg("change detected")
		}
	})
	defer unsubscribe()

	// --json reports the bus events themselves, including the initial
	// resolution, so the streams must exist before watch.New resolves.
	if jsonOut {
		if err := streamEvents(ctx, a.bus, r); err != nil {
			return err
		}
	}

	w, err := watch.New(a.resolver, args[0], watch.Options{
		Bus:      a.bus,
		Logger:   &log,
		Debounce: watchDebounce,
		OnResult: func(res *resolver.Result, err error) {
			if !jsonOut {
				r.Changed(res, err)
			}
			if err == nil {
				record(cmd, store, args[0], res)
			}
		},
	})
	if err != nil {
		return err
	}
	if !jsonOut {
		r.Chain(args[0], w.Current())
	}
	record(cmd, store, args[0], w.Current())
	w.Start()

	<-ctx.Done()
	return w.Stop()
}

// streamEvents writes every change and resolution event published on bus
// until ctx is done.
func streamEvents(ctx context.Context, bus *event.Bus, r *output.Renderer) error {
	for _, t := range []event.EventType{event.ConfigChanged, event.ConfigResolved, event.ConfigResolveFailed} {
		msgs, err := bus.Stream(ctx, t)
		if err != nil {
			return fmt.Errorf("stream %s: %w", t, err)
		}
		go func() {
			for msg := range msgs {
				r.Event(msg.Payload)
				msg.Ack()
			}
		}()
	}
	return nil
}

func record(cmd *cobra.Command, store *history.Store, source string, res *resolver.Result) {
	if err := store.Put(cmd.Context(), history.NewRecord(source, res)); err != nil {
		logging.Warn().Err(err).Str("id", res.ID).Msg("failed to record resolution")
	}
}
