// Package platform provides the filesystem operations whose behavior differs
// between operating systems: permission changes and atomic file
// replacement. On Unix systems it uses chmod and rename directly; on Windows
// permission bits are not applied.
package platform
