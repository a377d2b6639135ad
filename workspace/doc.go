// Package workspace provides the sandboxed surface the agent acts
// through: path confinement under a single root, directory listing with
// a fixed ignore set, segment reads, parent-creating writes, shell
// execution with independent output caps and process-group timeouts, and
// ripgrep-preferred text search with a pure-Go fallback.
//
// Every user-supplied path enters through Sandbox.Resolve; an escape is
// an error on that operation only, never a crash.
package workspace
