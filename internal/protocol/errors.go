package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest          = "E_BAD_REQUEST"
	ErrNotFound            = "E_NOT_FOUND"
	ErrMissingPrerequisite = "E_MISSING_PREREQUISITE"
	ErrBusy                = "E_BUSY"
	ErrInvalidTarget       = "E_INVALID_TARGET"
	ErrInternal            = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:     {},
	ErrBadRequest:          {},
	ErrNotFound:            {},
	ErrMissingPrerequisite: {},
	ErrBusy:                {},
	ErrInvalidTarget:       {},
	ErrInternal:            {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
