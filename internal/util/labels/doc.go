// Package labels builds the label sets written on cloud resources created
// during a node refresh, and the selectors used to find them again.
package labels
