// Package fileutil holds the small file helpers used by the orchestrator:
// creating session and artifact directories, turning test names into path
// segments, and writing a captured log stream to its artifact path.
package fileutil
