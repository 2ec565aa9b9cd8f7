// Package preflight provides readiness checks for the filesystem paths and
// remote endpoints a build depends on.
//
// These checks run in two contexts:
//   - The build pipeline calls RunAll before unpacking anything. A failed
//     required check aborts the run with services.ErrPreflight so a long build
//     never dies halfway on a read-only site directory.
//   - The CLI "flashbulb check" command prints every result as a table.
//
// Advisory results (free space, profile endpoint reachability) are reported
// but never block a build. Each check is gated by its config toggle.
package preflight
