// Package scaffold generates new plugins from embedded templates. It powers
// the "plugkeep plugin new" command, producing a manifest and a Lua entry
// file with every lifecycle hook stubbed out.
package scaffold
