// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract text
// content from a specific MIME type and clean it without destroying
// paragraph boundaries.
//
// Normalisers are registered with the Registry at startup.
package normalisers
