// Package batch holds the data model for one optimization run: the ordered
// items expanded from the user's dropped paths, their lifecycle states, and
// the tracker that owns every state transition.
package batch
