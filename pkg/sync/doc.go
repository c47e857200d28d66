// Package sync implements foldersync's mirroring algorithm. It keeps a
// replica directory tree identical to a source directory tree, one way. The
// source tree is the ground truth and is only ever read. The replica tree is
// created, updated and pruned so that after a pass it contains exactly the
// files and directories of the source.
//
// A pass runs in two phases. Reconcile walks the source tree. Every source
// directory gets a replica directory before anything is copied into it, and
// every source file is copied if it's missing from the replica, or
// overwritten if its contents differ. Prune then walks the replica tree and
// removes every file and directory that has no counterpart in the source.
// Removed directories are dropped as a whole and never descended into.
//
// Contents are compared with a streamed cryptographic digest so that large
// files are never loaded into memory. Copies preserve the permission bits and
// modification time of the source file.
//
// Both walks use an explicit stack rather than recursion, so deep trees don't
// grow the call stack.
package sync
