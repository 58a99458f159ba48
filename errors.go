package lha

import "errors"

// Sentinel errors, matching the style of the reference sit package's
// ErrPassword/ErrAlgo: exported so callers can errors.Is against them.
var (
	// ErrCRCMismatch means the decoded output's CRC-16 did not match the
	// header's recorded value.
	ErrCRCMismatch = errors.New("lha: CRC mismatch")
	// ErrLengthMismatch means the decoded output's length did not match
	// the header's recorded value.
	ErrLengthMismatch = errors.New("lha: decoded length mismatch")
	// ErrTruncated means the underlying byte source ran out before a
	// member's data could be fully decoded.
	ErrTruncated = errors.New("lha: truncated archive member")
	// ErrUnsupportedMethod stands in for a password-protected or
	// otherwise unreadable member.
	ErrUnsupportedMethod = errors.New("lha: unsupported or password-protected method")
	// ErrUnknownMethod means no codec (built-in or peer-registered) is
	// available for the member's compress_method tag.
	ErrUnknownMethod = errors.New("lha: unknown compression method")
)
