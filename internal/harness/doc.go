// Package harness executes YAML-defined cartridge scenarios under a
// simulated clock. A scenario names a manifest, a flow of player events
// and clock advances, and assertions over the resulting fact trace and
// outcome. Because the driver is fully deterministic, a scenario's trace
// is stable down to the byte and can be pinned with golden files.
package harness
