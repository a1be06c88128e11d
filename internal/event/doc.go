/*
Package event provides the pub/sub and command bus that connects the resolver
to a host application.

# Notifications

Resolutions and file watchers publish notifications:

  - config.resolved: a configuration resolved successfully (ResolvedData)
  - config.resolve.failed: a resolution failed (ResolveFailedData)
  - config.changed: a file in a watched extends chain changed (ChangedData)

Subscribing:

	unsubscribe := bus.Subscribe(event.ConfigResolved, func(e event.Event) {
		data := e.Data.(event.ResolvedData)
		log.Info().Strs("chain", data.Chain).Msg("resolved")
	})
	defer unsubscribe()

Publish calls each subscriber in its own goroutine, so delivery order
between subscribers is not defined.

Every event is also encoded as JSON and published to the watermill topic
named after its type. Stream subscribes to that topic:

	msgs, err := bus.Stream(ctx, event.ConfigChanged)
	for msg := range msgs {
		handle(msg.Payload)
		msg.Ack()
	}

# Commands

Handle binds a function to a trigger name and Trigger invokes it, so a host
can call into the resolver without holding a reference to it:

	unregister, err := bus.Handle("resolve", handler)
	result, err := bus.Trigger(ctx, "resolve", cfg)

A name can only be bound once (ErrHandlerExists); triggering an unbound name
fails with ErrNoHandler.

# Testing

Use NewBus for isolated instances; Global is shared by the whole process.
*/
package event
