// Package dbus exposes the popsched scheduler on the session bus.
//
// It provides the io.github.jmylchreest.Popsched control service used by the
// popsched CLI, a client for that service, and two optional sources that
// feed org.freedesktop.Notifications traffic into the scheduler: a server
// that owns the notification name and a passive monitor that observes
// another daemon's traffic.
package dbus
