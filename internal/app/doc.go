// Package app wires the application together: it owns the logger, loads the
// configuration model through a pluggable loader, registers runner modules,
// and drives graph construction and execution for a single run.
package app
