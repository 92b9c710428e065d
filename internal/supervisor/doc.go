// MangaPulse - Manga Catalogue and Realtime Reading Notifications
// Copyright 2026 MangaPulse Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mangapulse/mangapulse

/*
Package supervisor provides process supervision for MangaPulse using suture v4.

The supervisor tree organizes long-running services into two layers:

	RootSupervisor ("mangapulse")
	├── RealtimeSupervisor ("realtime-layer")
	│   ├── HubService
	│   ├── BridgeService
	│   └── NATS transport (build tag: nats, when enabled)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

This hierarchy ensures that a crash in the realtime layer doesn't affect
the HTTP API and that each layer restarts independently with its own
failure counting and backoff.

Services follow suture's Service contract: Serve(ctx) blocks until the
context is canceled or the service fails; returning an error triggers a
supervised restart. Supervision events are logged through slog via the
sutureslog adapter, bridged back to zerolog by the logging package.
*/
package supervisor
