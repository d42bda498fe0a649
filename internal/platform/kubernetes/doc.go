// Package kubernetes is the backend controller that executes test cases as
// Kubernetes Jobs.
//
// Every case becomes one Job running the case command in the configured
// image. The controller waits for Jobs to reach a terminal condition,
// collects pod logs into the report artifact, and deletes the Jobs it
// created according to the run's cleanup policy. Cluster access comes from
// the run's secrets reference (a kubeconfig path) or, when unset, the
// ambient configuration.
package kubernetes
