// Package orchestrator runs an ordered sequence of simulation windows
// against a single simulator session. Each window's terminal battery
// accumulator seeds the next window, so windows always run one after the
// other in index order.
package orchestrator
