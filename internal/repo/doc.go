// Package repo installs plugin repositories into the plugin directory,
// either by cloning them with git or by extracting a .tar.gz archive, and
// resolves short aliases through the table of known public repositories.
package repo
