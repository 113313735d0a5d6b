// Package loader decides which tool chain processes a source file.
//
// A Table is compiled once from configuration and is read-only afterwards,
// so it is safe for concurrent use by the bundler's load callbacks.
package loader
