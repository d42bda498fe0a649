package testdef

import "time"

// Case defines a single test case.
type Case struct {
	// Name is the unique identifier for the case
	Name string `yaml:"name"`
	// Description provides a human-readable explanation
	Description string `yaml:"description,omitempty"`
	// Category groups cases by test kind (functional, stress, community)
	Category string `yaml:"category"`
	// Area groups cases by subsystem under test (storage, network, boot)
	Area string `yaml:"area"`
	// Tags for additional ad-hoc selection
	Tags []string `yaml:"tags,omitempty"`
	// Priority orders cases by importance, 0 being the most critical
	Priority int `yaml:"priority,omitempty"`
	// Command is the shell command executing the case. It may contain
	// template references to run facts and custom parameters.
	Command string `yaml:"command"`
	// Timeout bounds a single execution of the case
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Skip marks the case as defined but not runnable
	Skip bool `yaml:"skip,omitempty"`
	// Env is extra environment for the case process
	Env map[string]string `yaml:"env,omitempty"`
}

// Suite is one definition file: a named group of cases.
type Suite struct {
	// Suite is the group name, defaulting to the file basename
	Suite string `yaml:"suite"`
	// Cases are the definitions in this file
	Cases []Case `yaml:"cases"`
}

// MaxPriority is the lowest recognized case priority.
const MaxPriority = 4
