// Package defs holds the narrow kernel-style error type shared by the
// paging subsystem's API surface.
package defs

// Err_t is the kernel-style error return: zero on success, negative on
// failure. Mirrors biscuit's vm/circbuf/fd packages, which return
// defs.Err_t rather than a Go error from hot paths.
type Err_t int

// Error kinds from spec.md §7.
const (
	// ENOFREESWAP: swap store had no free slot during eviction.
	ENOFREESWAP Err_t = -1
	// ESWAPIO: backing-file read/write failed.
	ESWAPIO Err_t = -2
	// ENOFREEFRAME: the frame allocator had no free frame.
	ENOFREEFRAME Err_t = -3
	// ENOSWAPENTRY: load_page found no swap slot for the faulting address.
	ENOSWAPENTRY Err_t = -4
	// EWALKMISS: the virtual address is not mapped at all.
	EWALKMISS Err_t = -5
	// ENOMEM: a supporting allocation failed (e.g. resident set full and
	// no policy configured to select a victim).
	ENOMEM Err_t = -6
	// EFAULT: caller-supplied address/argument is invalid.
	EFAULT Err_t = -7
)

// String names an Err_t for logging; zero prints as "ok" and an
// unknown value as "Err_t(unknown)".
func (e Err_t) String() string {
	switch e {
	case 0:
		return "ok"
	case ENOFREESWAP:
		return "ENOFREESWAP"
	case ESWAPIO:
		return "ESWAPIO"
	case ENOFREEFRAME:
		return "ENOFREEFRAME"
	case ENOSWAPENTRY:
		return "ENOSWAPENTRY"
	case EWALKMISS:
		return "EWALKMISS"
	case ENOMEM:
		return "ENOMEM"
	case EFAULT:
		return "EFAULT"
	default:
		return "Err_t(unknown)"
	}
}

// Error implements the error interface so an Err_t can be returned
// where a Go error is expected (cmd/swapsim's touch does so) without
// losing the code.
func (e Err_t) Error() string {
	return e.String()
}

// Ok reports whether e signals success.
func (e Err_t) Ok() bool {
	return e == 0
}
