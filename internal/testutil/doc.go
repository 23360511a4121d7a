// Package testutil contains helper builders and sample workflows used across
// tests to reduce boilerplate when constructing contexts, stream events and
// blocking steps. They are not intended for production usage.
package testutil
