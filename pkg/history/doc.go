// Package history manages the journal of completed readings: listing,
// appending, deleting, retention pruning, local statistics and the gated
// pattern analysis.
//
// All mutating operations go through one critical section so read-modify-write
// stores (a JSON file, for example) never interleave an append with a prune.
// When several processes share a backing store, a ports.DistributedLocker
// extends that critical section across them.
package history
