// Package engine binds the speech-to-text backends behind one handle.
//
// This package manages:
//   - Backend selection (Vosk offline recognition, or a simulated engine)
//   - Recogniser lifecycle: init, per-unit execution, abort, shutdown
//   - Session identity (a fresh session ID per successful init)
//
// # Architecture
//
// The supervisor never talks to a backend directly. It drives a Handle,
// whose RunUnit blocks until one full sentence has been finalised - the
// same unit of work the watchdog timeout is measured against. Aborting a
// handle interrupts the in-flight unit without tearing the backend down;
// Shutdown releases the backend entirely so a recovery can rebuild it.
//
// The blocking nature is deliberate: a recogniser listening to silence
// simply does not return. Timeout policy lives in the supervisor, not
// here.
//
// # Usage
//
//	factory, err := engine.FactoryFor(cfg.Engine.Backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handle := engine.NewHandle(engineCfg, src, factory)
//	if err := handle.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	err = handle.RunUnit(func(text string) {
//	    fmt.Println(text)
//	})
package engine
