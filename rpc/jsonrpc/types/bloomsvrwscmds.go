// Copyright (c) 2014-2017 The btcsuite developers
// Copyright (c) 2015-2020 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// NOTE: This file is intended to house the RPC commands that are supported by
// a bloom filter server, but are only available via websockets.

package types

import "github.com/decred/dcrd/dcrjson/v4"

// AuthenticateCmd defines the authenticate JSON-RPC command.
type AuthenticateCmd struct {
	Username   string
	Passphrase string
}

// NewAuthenticateCmd returns a new instance which can be used to issue an
// authenticate JSON-RPC command.
func NewAuthenticateCmd(username, passphrase string) *AuthenticateCmd {
	return &AuthenticateCmd{
		Username:   username,
		Passphrase: passphrase,
	}
}

// NotifyGrowthCmd defines the notifygrowth JSON-RPC command.
type NotifyGrowthCmd struct{}

// NewNotifyGrowthCmd returns a new instance which can be used to issue a
// notifygrowth JSON-RPC command.
func NewNotifyGrowthCmd() *NotifyGrowthCmd {
	return &NotifyGrowthCmd{}
}

// SessionCmd defines the session JSON-RPC command.
type SessionCmd struct{}

// NewSessionCmd returns a new SessionCmd instance.
func NewSessionCmd() *SessionCmd {
	return &SessionCmd{}
}

// StopNotifyGrowthCmd defines the stopnotifygrowth JSON-RPC command.
type StopNotifyGrowthCmd struct{}

// NewStopNotifyGrowthCmd returns a new instance which can be used to issue a
// stopnotifygrowth JSON-RPC command.
func NewStopNotifyGrowthCmd() *StopNotifyGrowthCmd {
	return &StopNotifyGrowthCmd{}
}

func init() {
	// The commands in this file are only usable by websockets.
	flags := dcrjson.UFWebsocketOnly

	dcrjson.MustRegister(Method("authenticate"), (*AuthenticateCmd)(nil), flags)
	dcrjson.MustRegister(Method("notifygrowth"), (*NotifyGrowthCmd)(nil), flags)
	dcrjson.MustRegister(Method("session"), (*SessionCmd)(nil), flags)
	dcrjson.MustRegister(Method("stopnotifygrowth"), (*StopNotifyGrowthCmd)(nil), flags)
}
