// Package validate checks request fields before they reach the broker.
//
// All checks return a descriptive error suitable for a 400 response.
package validate
