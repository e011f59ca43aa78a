// Package preview serves the publish directory during writing and rebuilds the
// site when sources change or on a fixed interval.
package preview
