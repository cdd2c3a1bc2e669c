// Package builtin is the loader for plugins compiled into the binary.
// Each plugin is a factory registered under its manifest's module name;
// the manifests themselves ship embedded and are written to the core
// plugin directory so the locator discovers them like any other plugin.
package builtin
