// Package simulation defines the boundary to the external microgrid
// simulator: the parameters handed to it, the typed signal traces it must
// return, and the Session that owns a simulator for the duration of a run.
package simulation
