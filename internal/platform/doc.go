// Package platform defines the capability interface every backend
// controller implements and the registry that binds platform names to
// controller constructors.
//
// A controller is a black box from the driver's point of view: it validates
// the parameters it owns, prepares whatever environment it tests against,
// loads and executes cases, and writes one JUnit-style report artifact.
// The registry is the complete, explicit list of platforms this binary can
// drive; selecting a name outside it fails before any controller code runs.
package platform
