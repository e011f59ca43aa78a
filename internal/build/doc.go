// Package build runs the site build: reset the publish directory, convert and
// render every post in configuration order, render the index, then the
// optional post-build steps (static copy, feed, link check, history,
// notification).
//
// The build is sequential. The first error aborts it and is returned as a
// categorised *errors.BuildError; the publish directory is left as it was at
// the point of failure.
package build
