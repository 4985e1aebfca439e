// Package runner hosts the server clock for live sessions.
//
// A Runner steps every live, running session by a fixed delta of
// 1/TickRate seconds on each tick of a wall-clock ticker and hands each
// resulting frame to a Publisher, normally the websocket hub. The fixed delta
// keeps a live run reproducible from its seed no matter how late a tick
// fires. A second loop in the same errgroup expires sessions that have been
// idle longer than SessionMaxAge.
//
//	r, err := runner.New(gameService, hub, sessionManager, runner.Options{TickRate: 30})
//	if err != nil {
//		log.Fatal(err)
//	}
//	go r.Run(ctx)
package runner
