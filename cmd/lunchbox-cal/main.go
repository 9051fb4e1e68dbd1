/*
lunchbox-cal - inspect and reset the lunchbox gas calibration
Copyright (C) 2026, Lunchbox Monitoring

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package main

import (
	"errors"
	"fmt"
	"os"

	arg "github.com/alexflint/go-arg"
	"github.com/godbus/dbus"
	"github.com/sirupsen/logrus"
)

const (
	dbusName = "org.lunchbox.Monitor"
	dbusPath = "/org/lunchbox/Monitor"
)

var version = "No version provided"

var log = logrus.New()

type ShowCmd struct{}

type ResetCmd struct{}

type ClearCmd struct{}

type RecalCmd struct{}

type argSpec struct {
	Show  *ShowCmd  `arg:"subcommand:show" help:"print the current calibration state"`
	Reset *ResetCmd `arg:"subcommand:reset" help:"restart the monitor, keeping calibration"`
	Clear *ClearCmd `arg:"subcommand:clear" help:"delete the persisted calibration and restart"`
	Recal *RecalCmd `arg:"subcommand:recal" help:"relearn calibration from scratch on restart"`
}

func (argSpec) Version() string {
	return version
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err.Error())
	}
}

func runMain() error {
	var args argSpec
	p := arg.MustParse(&args)

	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	obj := conn.Object(dbusName, dbusPath)

	switch {
	case args.Show != nil:
		var state string
		if err := obj.Call(dbusName+".ShowCalibration", 0).Store(&state); err != nil {
			return monitorErr(err)
		}
		fmt.Println(state)
	case args.Reset != nil:
		if err := obj.Call(dbusName+".SoftReset", 0).Err; err != nil {
			return monitorErr(err)
		}
		fmt.Println("reset requested")
	case args.Clear != nil:
		if err := obj.Call(dbusName+".ClearCalibration", 0).Err; err != nil {
			return monitorErr(err)
		}
		fmt.Println("calibration will be cleared on restart")
	case args.Recal != nil:
		if err := obj.Call(dbusName+".Recalibrate", 0).Err; err != nil {
			return monitorErr(err)
		}
		fmt.Println("recalibration will start on restart")
	default:
		p.WriteHelp(os.Stdout)
		return errors.New("no command given")
	}
	return nil
}

func monitorErr(err error) error {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && dbusErr.Name == "org.freedesktop.DBus.Error.ServiceUnknown" {
		return errors.New("lunchbox-monitor is not running")
	}
	return err
}
