// Package lockfile snapshots a hybrid module resolution session as
// deterministic JSON (hybridmod.lock).
//
// The lockfile records, for every resolved module, what it reads, what it
// passes on to its readers, what it exports, and a digest of its descriptor,
// so that a later resolution can be checked against it.
//
// # Usage
//
// Create a lockfile from a resolver:
//
//	app, _ := r.Resolve(ctx, "app", version.Parse("1.0"))
//	lf := lockfile.FromModules([]*hybridmod.Module{app}, r.Modules())
//	if err := lf.WriteFile(lockfile.DefaultPath("")); err != nil {
//	    log.Fatal(err)
//	}
//
// Check an existing lockfile:
//
//	old, err := lockfile.ReadFile("hybridmod.lock")
//	diff := lockfile.Compare(old, lf)
//	if !diff.IsEmpty() {
//	    fmt.Print(diff)
//	}
package lockfile
