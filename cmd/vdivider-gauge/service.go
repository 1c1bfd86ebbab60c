/*
vdivider-gauge - Battery gauge for voltage-divider measurement rigs
Copyright (C) 2024, Korimako Electronics

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"errors"

	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"

	"github.com/korimako-electronics/vdivider-gauge/gauge"
)

const (
	dbusName = "org.korimako.BatteryGauge"
	dbusPath = "/org/korimako/BatteryGauge"
)

type service struct {
	gauge *gauge.Gauge
}

func startService(g *gauge.Gauge) error {
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
		gauge: g,
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

// Sample triggers one measurement transaction.
func (s service) Sample() *dbus.Error {
	if err := s.gauge.Sample(gauge.ChannelAll); err != nil {
		return makeDbusError(".Sample", err)
	}
	return nil
}

// Voltage returns the last sampled battery voltage as whole volts and
// microvolts.
func (s service) Voltage() (int32, int32, *dbus.Error) {
	v, err := s.gauge.Get(gauge.ChannelVoltage)
	if err != nil {
		return 0, 0, makeDbusError(".Voltage", err)
	}
	return v.Whole, v.Micro, nil
}

// StateOfCharge returns the last sampled remaining charge percentage.
func (s service) StateOfCharge() (int32, *dbus.Error) {
	v, err := s.gauge.Get(gauge.ChannelStateOfCharge)
	if err != nil {
		return 0, makeDbusError(".StateOfCharge", err)
	}
	return v.Whole, nil
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + name,
		Body: []interface{}{err.Error()},
	}
}
