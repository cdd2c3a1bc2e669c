// Package manifest parses and validates plugin.yaml, the file that marks a
// directory as a plugin. Manifests are checked against an embedded JSON
// Schema before they are turned into plugin descriptors.
package manifest
