// Package points maintains the durable score ledger that decides which catalog
// items belong in a curated collection and in what priority order.
//
// The Store maps score keys (stable server rating keys, external database ids,
// or normalized-title fallbacks) to Entry values. A scoring pass boosts every
// item suggested in the current run and decays everything else; entries that
// reach zero are evicted. TieredOrder turns surviving entries into the display
// order applied to the live collection.
//
// The ledger file is read once at the start of a scoring pass and written back
// atomically at the end. Concurrent passes for the same domain are not
// supported; callers hold the domain run lock.
package points
