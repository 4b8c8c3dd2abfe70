package logger

import "sync"

// components holds loggers registered per package name, so an application
// can route e.g. "httpclient" output to its own sink or level.
var components sync.Map // map[string]*Logger

// Register routes Get(name) to l. A nil l removes the override.
func Register(name string, l *Logger) {
	if l == nil {
		components.Delete(name)
		return
	}
	components.Store(name, l)
}

// Get returns the logger registered for name, or the global logger
// tagged with component=name.
func Get(name string) *Logger {
	if l, ok := components.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}
