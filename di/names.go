package di

// Names lists the keys under which built-in components are registered.
// Applications can embed it in their own name sets.
type Names struct {
	Transport  string
	Serializer string
	Tracing    string
	Auth       string
	Config     string
}

// Builtin contains the keys used by config.Client when it populates a
// container.
var Builtin = Names{
	Transport:  "transport",
	Serializer: "serializer",
	Tracing:    "tracing",
	Auth:       "auth",
	Config:     "config",
}
