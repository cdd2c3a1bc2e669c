// Package cli defines the Cobra command tree for the plugkeep CLI. Each file
// registers one command group with the root command. Commands build a
// lifecycle manager from the user's settings and only handle flag parsing,
// I/O formatting, and the interactive console.
package cli
