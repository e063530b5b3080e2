// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// NOTE: This file is intended to house the RPC commands that are supported by
// a bloom filter server.

package types

import (
	"github.com/decred/dcrd/dcrjson/v4"
)

// AddItemsCmd defines the additems JSON-RPC command.
type AddItemsCmd struct {
	Name   string
	Items  []string
	Create *bool `jsonrpcdefault:"true"`
}

// NewAddItemsCmd returns a new instance which can be used to issue an additems
// JSON-RPC command.
//
// The parameters which are pointers indicate they are optional.  Passing nil
// for optional parameters will use the default value.
func NewAddItemsCmd(name string, items []string, create *bool) *AddItemsCmd {
	return &AddItemsCmd{
		Name:   name,
		Items:  items,
		Create: create,
	}
}

// CreateFilterCmd defines the createfilter JSON-RPC command.
type CreateFilterCmd struct {
	Name     string
	FPRate   *float64
	Capacity *uint64
	Fixed    *bool `jsonrpcdefault:"false"`
	Items    *[]string
}

// NewCreateFilterCmd returns a new instance which can be used to issue a
// createfilter JSON-RPC command.
//
// The parameters which are pointers indicate they are optional.  Passing nil
// for optional parameters will use the default value.
func NewCreateFilterCmd(name string, fpRate *float64, capacity *uint64, fixed *bool, items *[]string) *CreateFilterCmd {
	return &CreateFilterCmd{
		Name:     name,
		FPRate:   fpRate,
		Capacity: capacity,
		Fixed:    fixed,
		Items:    items,
	}
}

// DebugLevelCmd defines the debuglevel JSON-RPC command.
type DebugLevelCmd struct {
	LevelSpec string
}

// NewDebugLevelCmd returns a new DebugLevelCmd which can be used to issue a
// debuglevel JSON-RPC command.
func NewDebugLevelCmd(levelSpec string) *DebugLevelCmd {
	return &DebugLevelCmd{
		LevelSpec: levelSpec,
	}
}

// DropFilterCmd defines the dropfilter JSON-RPC command.
type DropFilterCmd struct {
	Name string
}

// NewDropFilterCmd returns a new instance which can be used to issue a
// dropfilter JSON-RPC command.
func NewDropFilterCmd(name string) *DropFilterCmd {
	return &DropFilterCmd{
		Name: name,
	}
}

// FilterInfoCmd defines the filterinfo JSON-RPC command.
type FilterInfoCmd struct {
	Name string
}

// NewFilterInfoCmd returns a new instance which can be used to issue a
// filterinfo JSON-RPC command.
func NewFilterInfoCmd(name string) *FilterInfoCmd {
	return &FilterInfoCmd{
		Name: name,
	}
}

// HasItemCmd defines the hasitem JSON-RPC command.
type HasItemCmd struct {
	Name string
	Item string
}

// NewHasItemCmd returns a new instance which can be used to issue a hasitem
// JSON-RPC command.
func NewHasItemCmd(name, item string) *HasItemCmd {
	return &HasItemCmd{
		Name: name,
		Item: item,
	}
}

// HelpCmd defines the help JSON-RPC command.
type HelpCmd struct {
	Command *string
}

// NewHelpCmd returns a new instance which can be used to issue a help JSON-RPC
// command.
//
// The parameters which are pointers indicate they are optional.  Passing nil
// for optional parameters will use the default value.
func NewHelpCmd(command *string) *HelpCmd {
	return &HelpCmd{
		Command: command,
	}
}

// ListFiltersCmd defines the listfilters JSON-RPC command.
type ListFiltersCmd struct{}

// NewListFiltersCmd returns a new instance which can be used to issue a
// listfilters JSON-RPC command.
func NewListFiltersCmd() *ListFiltersCmd {
	return &ListFiltersCmd{}
}

// PingCmd defines the ping JSON-RPC command.
type PingCmd struct{}

// NewPingCmd returns a new instance which can be used to issue a ping JSON-RPC
// command.
func NewPingCmd() *PingCmd {
	return &PingCmd{}
}

// StopCmd defines the stop JSON-RPC command.
type StopCmd struct{}

// NewStopCmd returns a new instance which can be used to issue a stop JSON-RPC
// command.
func NewStopCmd() *StopCmd {
	return &StopCmd{}
}

// VersionCmd defines the version JSON-RPC command.
type VersionCmd struct{}

// NewVersionCmd returns a new instance which can be used to issue a JSON-RPC
// version command.
func NewVersionCmd() *VersionCmd { return new(VersionCmd) }

func init() {
	// No special flags for commands in this file.
	flags := dcrjson.UsageFlag(0)

	dcrjson.MustRegister(Method("additems"), (*AddItemsCmd)(nil), flags)
	dcrjson.MustRegister(Method("createfilter"), (*CreateFilterCmd)(nil), flags)
	dcrjson.MustRegister(Method("debuglevel"), (*DebugLevelCmd)(nil), flags)
	dcrjson.MustRegister(Method("dropfilter"), (*DropFilterCmd)(nil), flags)
	dcrjson.MustRegister(Method("filterinfo"), (*FilterInfoCmd)(nil), flags)
	dcrjson.MustRegister(Method("hasitem"), (*HasItemCmd)(nil), flags)
	dcrjson.MustRegister(Method("help"), (*HelpCmd)(nil), flags)
	dcrjson.MustRegister(Method("listfilters"), (*ListFiltersCmd)(nil), flags)
	dcrjson.MustRegister(Method("ping"), (*PingCmd)(nil), flags)
	dcrjson.MustRegister(Method("stop"), (*StopCmd)(nil), flags)
	dcrjson.MustRegister(Method("version"), (*VersionCmd)(nil), flags)
}
