// Package configwatch reloads the relay's multicast settings when the
// configuration file changes on disk.
//
// Only the network.multicast block is hot-reloadable. Edits to any other
// section take effect on the next restart.
package configwatch
