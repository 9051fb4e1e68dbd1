package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/Saakihegde12345/LunchboxMonitoring/calibration"
)

const (
	dbusName = "org.lunchbox.Monitor"
	dbusPath = "/org/lunchbox/Monitor"
)

// snapshotHolder is the loop's published view of the calibration state,
// safe for the dbus service to read from other goroutines.
type snapshotHolder struct {
	mu   sync.Mutex
	snap calibration.Snapshot
}

func (h *snapshotHolder) set(snap calibration.Snapshot) {
	h.mu.Lock()
	h.snap = snap
	h.mu.Unlock()
}

func (h *snapshotHolder) get() calibration.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}

func formatSnapshot(snap calibration.Snapshot) string {
	switch snap.State {
	case calibration.Locked:
		source := "learned this session"
		if snap.UsedPersisted {
			source = "loaded from persisted record"
		}
		return fmt.Sprintf("locked: range %.1f to %.1f (%s)", snap.RawMin, snap.RawMax, source)
	case calibration.LearningMax:
		return fmt.Sprintf("learning max: baseline %.1f, tracked max %.1f, stable %d cycles",
			snap.RawMin, snap.RawMax, snap.StableCount)
	default:
		return "learning min baseline"
	}
}

type service struct {
	commands chan<- Command
	snapshot *snapshotHolder
}

func startService(commands chan<- Command, snapshot *snapshotHolder) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		commands: commands,
		snapshot: snapshot,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

func (s service) queue(cmd Command) *dbus.Error {
	select {
	case s.commands <- cmd:
		return nil
	default:
		return makeDbusError(".CommandQueueFull", errors.New("a command is already pending"))
	}
}

// ShowCalibration returns a description of the current calibration
// state. It is a read-only observer and changes nothing.
func (s service) ShowCalibration() (string, *dbus.Error) {
	return formatSnapshot(s.snapshot.get()), nil
}

// SoftReset restarts the daemon, keeping the persisted calibration.
func (s service) SoftReset() *dbus.Error {
	return s.queue(CommandSoftReset)
}

// ClearCalibration erases the persisted calibration record and
// restarts the daemon, forcing a fresh calibration.
func (s service) ClearCalibration() *dbus.Error {
	return s.queue(CommandClearAndReset)
}

// Recalibrate restarts into a fresh calibration without destroying the
// persisted record until a new one is learned.
func (s service) Recalibrate() *dbus.Error {
	return s.queue(CommandForceRecalAndReset)
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + name,
		Body: []interface{}{err.Error()},
	}
}
