// Package testdef loads and validates test case definitions.
//
// Definitions are YAML files, one suite per file, living in the run's
// workspace. Controllers load them during their load phase, after the
// standalone validator has approved them. Case commands are Go templates
// (with the sprig function set) expanded against the run's custom
// parameters, so one definition tree serves many images, locations, and
// platforms.
package testdef
