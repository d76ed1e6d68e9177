// Package registry maps runner types to their Go handlers. A runner is
// declared twice: once in an HCL manifest (its inputs, outputs, and lifecycle)
// and once in Go (the handler implementation). The registry holds both halves
// and validates at startup that they agree.
package registry
