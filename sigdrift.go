// Package sigdrift tracks function definitions and call sites across a
// source tree, detects signature changes and renames when a file is edited,
// and proposes per-call-site edits so dependent code keeps up.
package sigdrift
