// Package errors provides the structured error taxonomy used across finserve.
//
// Every error carries a Code and a Category. Categories drive handling:
//
//   - Transient: the remote source or cache may answer on a later attempt
//   - Permanent: retrying will not help (malformed input, unmapped key)
//   - Resource: quota or capacity exhaustion
//   - Internal: bugs, corrupted cache entries, recovered panics
//
// The synchronization layer swallows cache and remote failures (they are logged,
// never surfaced to pages). Errors only reach a caller for explicit operations
// such as editing raw state, where a malformed payload yields INVALID_INPUT:
//
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // show errors.GetMetadata(err)["detail"] to the editor
//	}
//
// Errors serialize to JSON so the HTTP surface and the bus responder can return
// them verbatim.
package errors
