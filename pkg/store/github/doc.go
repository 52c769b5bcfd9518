// Package github implements the store contract directly against a Git
// hosting API, with no local working copy.
//
// All calls are scoped to a single organization and authenticated with a
// bearer token. Reads are single content-at-ref or commit-list requests.
// Bootstrap uses the low-level object protocol: create a tree with inline
// blob content, create a parentless commit referencing it, then
// force-update the primary branch reference. A failure mid-protocol
// leaves earlier objects unreferenced on the hosting side; they are
// unreachable garbage and are not cleaned up.
package github
