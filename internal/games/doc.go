// Package games contains the concrete cartridges shipped with the engine
// library.
//
// The bidding, duels and vault-cracker cartridges are thin policy structs
// plugged into the generic engines in internal/decision and
// internal/arcade. The holdout and trivia cartridges are hand-built
// machines: live elimination-by-attrition and globally clocked question
// rounds do not fit either generic lifecycle, so they implement
// engine.Machine directly under the same discipline: server-authoritative
// time, idempotent event handling, one terminal transition that computes
// rewards exactly once.
package games
