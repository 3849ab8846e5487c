// SPDX-License-Identifier: MIT

package dbusapi

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Connect opens a private connection to the system or session bus.
func Connect(ctx context.Context, bus string) (*dbus.Conn, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch bus {
	case "system":
		conn, err = dbus.ConnectSystemBus(dbus.WithContext(ctx))
	case "session":
		conn, err = dbus.ConnectSessionBus(dbus.WithContext(ctx))
	default:
		return nil, fmt.Errorf("unknown bus %q (want system or session)", bus)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s bus: %w", bus, err)
	}
	return conn, nil
}

var _ Conn = (*dbus.Conn)(nil)
