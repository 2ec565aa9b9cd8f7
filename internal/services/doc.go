// Package services defines the error taxonomy and run context shared by every
// pipeline stage.
//
// Key responsibilities:
//   - Sentinel markers separating fatal failures (archive, configuration,
//     preflight) from item-level ones that only exclude or degrade one item.
//   - The Wrap helper that adds stage and operation detail while keeping the
//     marker matchable with errors.Is.
//   - Context helpers that stamp item IDs, stage names, and run IDs for logging.
package services
