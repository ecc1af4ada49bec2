// Package storetest provides a conformance test suite for drive store implementations.
//
// All drive store backends (memory, badger, postgres) should pass these tests.
// The suite verifies that every store implementation satisfies the drive.Store
// behavioral contract, catching regressions when store code changes.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) drive.Store {
//	        return memory.NewMemoryDriveStore()
//	    })
//	}
//
// The factory function receives *testing.T so it can call t.TempDir() for
// stores that need filesystem paths (e.g., BadgerDB) and t.Cleanup for teardown.
package storetest
