// Package workspace manages scratch directories for a single conversion, such
// as the synthetic notebook a markdown source is wrapped into before it is
// handed to nbconvert. A workspace lives only as long as the operation that
// created it and is removed by Cleanup.
package workspace
