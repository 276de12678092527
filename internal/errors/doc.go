// Package errors provides structured, coded errors for the rsbuild CLI and
// orchestrator core.
//
// Every error carries a stable code (e.g., "E201"), a category, and an
// optional detail and suggestion. Codes are grouped by concern:
//
//   - E1xx: configuration (parse, validation, merge strategy)
//   - E2xx: port resolution (strict-port conflict, scan exhaustion)
//   - E3xx: server startup (bind, factory init)
//   - E4xx: lifecycle hooks
//   - E5xx: restart coordination
//
// Errors are wrapped, not swallowed: use errors.IsCode to test for a specific
// code anywhere in a chain, or CategoryOf to branch on the failure class.
//
//	if errors.IsCode(err, errors.CodePortUnavailable) {
//	    // strict-port conflict
//	}
package errors
