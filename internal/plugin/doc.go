// Package plugin defines the vocabulary shared by the plugin manager: the
// immutable Descriptor produced by a scan, the Plugin contract every
// extension implements, the host collaborator interfaces, the error
// taxonomy, and the two pure gates run before activation (compatibility and
// configuration validation).
package plugin
