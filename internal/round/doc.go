// Package round defines the shared domain model for cartridge lifecycle
// engines: player identifiers, the read-only roster snapshot, the closed
// event union delivered to engines, the fact records engines emit, and the
// outcome types returned when an engine reaches its terminal phase.
//
// Everything in this package is plain data. Engines in internal/arcade,
// internal/decision and internal/games consume and produce these types;
// the actor runtime in internal/engine stamps facts with sequence numbers
// and timestamps before they leave the process.
package round
