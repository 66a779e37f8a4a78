// Package fs abstracts the filesystem calls made by the local container
// backend so that tests can inject write, sync and rename failures.
//
// Production code uses [Default]; crash-safety tests wrap it in a [FaultyFS].
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("CURRENT", fs.Fault{FailOnRename: true})
//
// Calls take no context: local syscalls cannot be interrupted midway.
package fs
