// Package host provides the manager's collaborators on the bot side: the
// command router that dispatches chat commands to activated plugins, the
// template path registry, and the per-plugin host context.
package host
