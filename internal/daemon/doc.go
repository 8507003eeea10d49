// Package daemon provides the main orchestration for popschedd.
// It runs the scheduler on a single main loop and wires it to the event
// journal, the shared state file, priority chimes, display timeouts,
// configuration hot-reload and the D-Bus services.
package daemon
