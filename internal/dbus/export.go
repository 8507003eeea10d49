package dbus

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// objectSpec describes an object popschedd publishes on the session bus.
type objectSpec struct {
	path    dbus.ObjectPath
	iface   string
	busName string
	flags   dbus.RequestNameFlags
	methods []introspect.Method
	signals []introspect.Signal
}

// export publishes obj and its introspection data, then claims the bus name.
func (o objectSpec) export(conn *dbus.Conn, obj any) error {
	if err := conn.Export(obj, o.path, o.iface); err != nil {
		return fmt.Errorf("failed to export %s: %w", o.iface, err)
	}

	node := &introspect.Node{
		Name: string(o.path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{Name: o.iface, Methods: o.methods, Signals: o.signals},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), o.path,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection for %s: %w", o.iface, err)
	}

	reply, err := conn.RequestName(o.busName, o.flags|dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name %s: %w", o.busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", o.busName)
	}
	return nil
}

// release gives up the bus name and withdraws the object.
func (o objectSpec) release(conn *dbus.Conn, logger *slog.Logger) {
	if _, err := conn.ReleaseName(o.busName); err != nil {
		logger.Warn("failed to release bus name", "name", o.busName, "error", err)
	}
	_ = conn.Export(nil, o.path, o.iface)
	_ = conn.Export(nil, o.path, "org.freedesktop.DBus.Introspectable")
}

// emit sends a signal from the object.
func (o objectSpec) emit(conn *dbus.Conn, name string, args ...any) error {
	if conn == nil {
		return ErrNotConnected
	}
	if err := conn.Emit(o.path, o.iface+"."+name, args...); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", name, err)
	}
	return nil
}

func method(name string, args ...introspect.Arg) introspect.Method {
	return introspect.Method{Name: name, Args: args}
}

func signal(name string, args ...introspect.Arg) introspect.Signal {
	return introspect.Signal{Name: name, Args: args}
}

func in(name, typ string) introspect.Arg {
	return introspect.Arg{Name: name, Type: typ, Direction: "in"}
}

func out(name, typ string) introspect.Arg {
	return introspect.Arg{Name: name, Type: typ, Direction: "out"}
}

// arg is a signal argument; signals carry no direction.
func arg(name, typ string) introspect.Arg {
	return introspect.Arg{Name: name, Type: typ}
}

func failed(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	return dbus.MakeFailedError(err)
}
