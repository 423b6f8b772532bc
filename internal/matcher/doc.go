// Package matcher finds an institution's detail page by driving the directory's search form.
//
// A search submits the raw institution name and the expanded state name, then walks the
// paginated results comparing normalized name, city and state keys. The first row whose name key
// contains the target's name key and whose city and state keys are equal wins. When nothing
// matches, the NotFoundError names the most similar listing seen so near misses are easy to spot
// in the logs.
package matcher
