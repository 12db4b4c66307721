package shell

// Context describes the live shell state the engine completes against.
// The host updates it on edit-buffer and process-change events; the engine
// only ever reads it.
type Context struct {
	// CurrentWorkingDirectory is the directory file templates and script
	// generators run against.
	CurrentWorkingDirectory string

	// CurrentProcess is the foreground process name, used by the history
	// provider to scope its suggestions.
	CurrentProcess string

	// Environment holds the shell's exported variables.
	Environment map[string]string

	// Aliases is the shell's alias table.
	Aliases map[string]string

	// SSHPrefix is non-empty when the session runs through an ssh wrapper.
	SSHPrefix string

	// ShellPath is the path of the running shell binary.
	ShellPath string
}

// ContextProvider supplies the current shell context on demand.
type ContextProvider interface {
	ShellContext() Context
}

// StaticContextProvider wraps a fixed Context. Useful for tests and for
// one-shot CLI invocations where the context cannot change mid-parse.
type StaticContextProvider struct {
	Context Context
}

// ShellContext implements ContextProvider.
func (p StaticContextProvider) ShellContext() Context {
	return p.Context
}
