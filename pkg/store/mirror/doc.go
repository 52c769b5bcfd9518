// Package mirror implements the store contract against synchronized
// local clones, one per repository, under a configured root path.
//
// Every read synchronizes the mirror first: clone on first contact,
// fetch plus fast-forward merge afterwards. The design assumes the
// mirror is only ever written through this package and that remote
// history is a strict extension of local history; a non-fast-forward
// remote fails the operation loudly instead of being merged.
//
// The on-disk mirror is shared, single-writer state. Callers must keep
// at most one operation in flight per repository; concurrent
// synchronization and mutation of the same mirror is not serialized
// here.
package mirror
