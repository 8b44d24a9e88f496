// Package bus implements an in-process publish/subscribe event bus.
//
// Components register interest in event types and receive delivery on a
// chosen thread mode without holding references to the publisher:
//   - Current: inline on the goroutine that posts the event
//   - Main: on a single designated goroutine (see workers.Loop)
//   - Background: on a fixed-size worker pool (see workers.Pool)
//
// The dispatch key is the dynamic type of the posted value. A subscription
// registered for type T receives every event whose dynamic type is T or is
// assignable to T, so a subscription for an interface type receives all of
// its implementations and a subscription for any receives everything.
//
// Subscriptions report the liveness of their owner through Target(). Once
// Target() is empty the bus drops the subscription, either on the next
// delivery attempt or during the periodic sweep triggered every
// CleanupCount posts. NewSubscription builds subscriptions that hold their
// owner through a weak pointer, so an owner that is garbage collected is
// reclaimed without an explicit Unregister.
//
// Sticky events are cached per concrete type and replayed to matching
// subscriptions when they register.
//
// Example usage:
//
//	b, err := bus.New(bus.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close(context.Background())
//
//	sub := bus.NewSubscription(screen, bus.Main, func(s *Screen, e UserLoggedIn) bool {
//	    s.ShowGreeting(e.Name)
//	    return true
//	})
//	if err := b.Register(sub); err != nil {
//	    log.Fatal(err)
//	}
//
//	_ = b.Post(UserLoggedIn{Name: "ada"})
package bus
