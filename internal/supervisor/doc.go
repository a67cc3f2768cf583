// Package supervisor keeps a blocking transcription engine alive.
//
// The engine is opaque: a unit of work is one blocking call that may
// emit sentences through a callback before returning, and the engine
// may hang, fail or degrade without warning. The supervisor owns the
// only loop allowed to drive it and makes the liveness decisions —
// wait, abandon, or rebuild — without ever deadlocking the host.
//
// # Architecture
//
//	┌────────────────────────────────────────────────┐
//	│                 Supervisor Loop                 │
//	│  STARTING → RUNNING ⇄ RECOVERING → STOPPED/FAILED │
//	└──────┬──────────────┬──────────────┬───────────┘
//	       │              │              │
//	   worker pool    health monitor   recovery
//	  (deadline per   (periodic stall  (abort → drain →
//	   unit, slot      + failure-rate   shutdown → re-init
//	   semaphore)      backstop)        with retry budget)
//
// Each cycle the loop submits one unit of work to the pool under a
// wall-clock deadline. Success resets the consecutive-failure counter;
// a timeout or error increments it. At the threshold the loop runs the
// recovery sequence, which replaces the engine instance entirely. A
// recovery that exhausts its init retries ends the loop in FAILED; the
// host process decides what to do next — the loop itself never crashes
// it.
//
// Timeouts are not cooperative. An abandoned unit keeps running on its
// pool goroutine until the engine lets go; the pool's second slot
// exists so one straggler never blocks the next submission, and the
// next recovery's abort/drain is what finally reels it in.
//
// # Usage
//
//	sup, err := supervisor.New(supervisor.Config{
//	    Engine:   handle,
//	    Consumer: pipeline,
//	})
//	if err != nil {
//	    return err
//	}
//	sup.SetLogger(log)
//
//	if err := sup.Start(ctx); err != nil {
//	    return err
//	}
//	defer sup.Stop()
//
//	<-sup.Done()
//	if sup.State() == supervisor.StateFailed {
//	    // unrecoverable; surface a non-zero exit
//	}
package supervisor
