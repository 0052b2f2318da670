// Package types contains the generic capability types and interfaces used
// throughout the application. These are defined separately from the main
// capability package so that packages that use capabilities don't need to
// depend on a specific implementation.
package types
