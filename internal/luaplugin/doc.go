// Package luaplugin loads plugins written in Lua.
//
// A Lua plugin is a module file (<module>.lua in the plugin directory)
// that may define the global functions configure(config), activate() and
// deactivate(), and a global commands table mapping command names to
// function(args) returning a string. Before configure runs, a global host
// table exposes host.name, host.version, host.data_dir and host.log(level,
// message). Each plugin instance owns its own interpreter; plugin roots
// found by the locator are prepended to package.path so a plugin can
// require sibling modules.
package luaplugin
