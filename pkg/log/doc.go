// Package log is a small wrapper around the standard library logger used by
// every bookexplorer component.
//
// Each component asks for a named logger once and keeps it in a package
// variable:
//
//	var logger = log.ForService("catalog")
//
//	logger.Infof("search %q page %d", q, page)
//	logger.Debugf("raw response: %s", body) // only with --debug or debug_services
//
// Lines look like:
//
//	2025/01/02 15:04:05.000000 INFO [catalog>] search "dune" page 1
//
// Debug output is controlled globally (the --debug flag) or per component
// through the debug_services list in the configuration file; Configure
// applies both at startup.
//
// All functions are safe for concurrent use. Tests redirect output with
// SetOutput(&bytes.Buffer{}) and assert on the buffer.
package log
