// Package lifecycle drives plugins through discovery, validation,
// activation and deactivation.
//
// A Manager owns the set of plugin instances built from the latest scan.
// Activation runs a fixed gate sequence (compatibility, construction,
// configuration) before any host side effect happens; once side effects
// begin, a failure rolls every one of them back. All mutating operations
// are serialized on one lifecycle lock, while listing reads only take a
// short read lock over committed state.
package lifecycle
