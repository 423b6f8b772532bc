// Package normalize builds comparison keys for institution names, cities and states.
//
// Two strings are considered equivalent when their keys are equal. A key strips a fixed
// punctuation set, drops all white space and lowercases what is left. State codes are expanded
// to their English names before keying so that "IL" compares equal to a listing's "Illinois".
package normalize
