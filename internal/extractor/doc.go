// Package extractor reads an institution's detail page into School and Program rows.
package extractor
