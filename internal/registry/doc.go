// Package registry provides the persistent major and program identifier registry.
//
// Every major and program name seen during a run gets a positive integer ID. IDs start at 1,
// grow by one per new name and are never reused or renumbered. The registry is a JSON file with
// two objects, major_ids and program_ids, rewritten in full after every new assignment so a
// crash never loses a committed ID.
package registry
