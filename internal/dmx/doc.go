// Package dmx holds the authoritative lighting channel table.
//
// The table has 64 universes (IDs 1..64), each with 512 channels (0..511)
// holding levels 0..255. Every universe carries priority 100 and start
// code 0.
//
// # Write rules
//
//   - A write to a universe or channel that does not exist is ignored.
//     No error, no event.
//   - Values outside 0..255 are clamped, never rejected.
//   - SetBulk writes what fits: SetBulk(1, 510, []int{10, 20, 30}) sets
//     channels 510 and 511 and drops the third value.
//
// # Notifications
//
// Each write publishes one typed event (ChannelUpdate, BulkUpdate,
// UniverseCleared, AllUniversesCleared) and then calls the affected
// universe's subscribers with a copy of its slots. Both happen before the
// write method returns.
//
// # Ownership
//
// The store is single-writer. In the running service it belongs to the
// event loop; the network adapter, the show scheduler, and API handlers
// all reach it through that loop.
package dmx
