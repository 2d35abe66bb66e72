// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// Package registry is the fleet-wide store of node records that clusterkey
// uses to coordinate the shared cluster secret.
//
// Interfaces
//   - `Searcher` answers filter queries (environment, cluster, has-authkey)
//     and returns matches in insertion order.
//   - `NodeStore` loads and saves the current node's own record. Records are
//     only ever written by the node they describe.
//   - `Store` combines both with listing, known SSH host keys and Close.
//
// Implementations
//   - `BunStore` persists records through Bun on SQLite (modernc), PostgreSQL
//     (pgx) or MySQL. Schema changes live in embedded per-dialect migrations.
//   - `FakeRegistry` is an ordered in-memory store for tests. It records the
//     filters it was queried with and the number of saves.
//
// Testing notes
//   - Prefer `NewStoreFromDSN("sqlite", ":memory:")` in tests that need real
//     SQL semantics; `FakeRegistry` everywhere else.
package registry
