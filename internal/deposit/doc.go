// Package deposit publishes the merged metadata document to an external
// target. Targets implement the plugin.Depositor contract; failures here
// never alter the merge engine's state, they only surface to the operator.
package deposit
