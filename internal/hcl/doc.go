// Package hcl implements the HCL front end: discovery and parsing of plan
// files and runner manifests, translation into the config model, and the
// converter that decodes argument expressions into runner input structs at
// execution time.
package hcl
