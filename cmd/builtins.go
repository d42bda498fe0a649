package cmd

import (
	"gauntlet/internal/platform"
	"gauntlet/internal/platform/kubernetes"
	"gauntlet/internal/platform/localhost"
)

// builtins maps every shipped platform name to its controller factory.
// The registry is assembled here, once, so the platform package itself
// never imports the controller implementations.
var builtins = platform.NewRegistry(map[string]platform.Factory{
	localhost.Name:  localhost.New,
	kubernetes.Name: kubernetes.New,
})
