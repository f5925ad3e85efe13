// Package external declares the interface seams for collaborators that
// spec.md §1 places out of this repository's scope: UPnP port forwarding,
// the periodic update check, and the desktop configuration UI. TinyOPDS's
// core never implements any of them; main.go wires a no-op by default and
// an external process may supply a real implementation through these
// interfaces without the core depending on it.
package external

import "context"

// UPnPPortForwarder opens (and, on shutdown, closes) a port mapping on the
// local gateway for the configured server port. Config.UseUPnP/OpenNATPort
// select whether a real implementation is consulted at all.
type UPnPPortForwarder interface {
	Forward(ctx context.Context, port int) error
	Unforward(ctx context.Context, port int) error
}

// UpdateChecker reports whether a newer TinyOPDS release is available,
// polled at the cadence named by Config.UpdatesCheck.
type UpdateChecker interface {
	CheckForUpdate(ctx context.Context) (available bool, version string, err error)
}

// NoopUPnP and NoopUpdateChecker are the defaults main.go wires when no
// external collaborator is configured.
type NoopUPnP struct{}

func (NoopUPnP) Forward(context.Context, int) error   { return nil }
func (NoopUPnP) Unforward(context.Context, int) error { return nil }

type NoopUpdateChecker struct{}

func (NoopUpdateChecker) CheckForUpdate(context.Context) (bool, string, error) {
	return false, "", nil
}
