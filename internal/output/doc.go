// Package output writes the School and Program tables.
//
// Every Write replaces the whole file with the tables accumulated so far. The file name is fixed
// when the writer is created, so a run keeps rewriting one file and separate runs never collide.
package output
