// Package terminal implements the interactive command-line mode.
//
// Each line typed at the "Query:" prompt is answered as a separate query
// with its own history; nothing carries over between lines except the
// background text.
//
// # Usage
//
//	term := terminal.New(a, os.Stdin, os.Stdout)
//	term.Verbosity = terminal.VerbosityAll
//	err := term.Run(ctx, initialQuery)
//
// # Commands
//
//   - /background <text>: set the background used by later queries
//   - /quit, /exit: end the session (EOF does too)
//
// # Verbosity Levels
//
//   - none: only answers and failures are printed
//   - info: plan steps are printed as they are proposed
//   - all: plan steps and API responses are printed
package terminal
