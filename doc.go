// Package memwalk finds and decodes class descriptor lists in the
// memory of the current process.
//
// APIs are separated into subpackages, and documented accordingly:
//
//   - modules enumerates the images mapped into the process.
//   - pattern parses wildcard byte signatures and scans memory for them.
//   - classinfo walks a class list and its property tables.
//   - dumper ties the above together, driven by a profile.
//
// For scripting convenience, "OrExit" functions and methods are provided.
// Any errors encountered by these functions are treated as fatal. In such
// cases, an exit handler function is invoked.
package memwalk
