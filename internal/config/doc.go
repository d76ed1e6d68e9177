// Package config defines the format-agnostic configuration model consumed by
// the graph builder and executor. Keeping the model independent of HCL means
// the orchestration core never needs to know which file format a plan was
// written in.
package config
