// Package deps checks and installs the flat list of packages a plugin
// declares in requirements.txt. It does not resolve transitive
// dependencies: a requirement is either present or missing.
package deps
