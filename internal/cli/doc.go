// Package cli implements the pmx command tree.
//
// Commands are thin: they resolve the current context, assemble an API
// client, and delegate to the cache, task, and daemon packages. Listing
// commands read the cache first and only hit the cluster on --refresh or
// a cold cache; mutating commands submit a task and wait on it with the
// task tracker.
package cli
