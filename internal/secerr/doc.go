// Package secerr defines the closed set of error kinds surfaced by the key
// engine.
//
// Every error returned by the engine wraps exactly one of the sentinels below,
// so callers branch with errors.Is rather than string matching:
//
//   - ErrLogic: the caller violated a precondition (mismatched key types,
//     unwrapping with a public-only key, invalid configuration).
//   - ErrData: encoded bytes are malformed or out of range (bad version,
//     unknown algorithm id, oversized key, inconsistent lengths).
//   - ErrCrypto: a primitive failed (bad padding, invalid key for the
//     operation, missing algorithm support).
//   - ErrInvalidCredentials: password verification failed. It is kept apart
//     from ErrData and ErrCrypto so a caller can prompt again instead of
//     reporting corruption.
//
// Wrap with context the usual way:
//
//	return fmt.Errorf("%w: unknown digest id %d", secerr.ErrData, id)
package secerr
