// Package registry provides typed views over the manager's store: the
// blacklist of plugins kept from starting automatically, the persisted
// plugin configurations, and the installed repositories. Each view reads
// and writes one store key.
package registry
