// Package dag builds and executes the dependency graph of a provisioning
// plan. Graph construction is a three-pass process (create nodes, link
// dependencies, seed counters) followed by cycle detection; execution is a
// bounded worker pool fed by a ready queue of nodes whose dependencies have
// all succeeded.
package dag
