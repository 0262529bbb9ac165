package statemachine

// Snapshot is what the BSS can observe of a request.
type Snapshot struct {
	State          State
	ResponseCode   string
	ResponseStatus string
}

// ShouldNotify decides whether moving from prev to next is a material change
// for the BSS: any change of the (response_code, estado) tuple, and always
// the first entry into MAX_RETRIES_EXCEEDED.
func ShouldNotify(prev, next Snapshot) bool {
	if next.State == MaxRetriesExceeded && prev.State != MaxRetriesExceeded {
		return true
	}
	if IsTerminal(prev.State) {
		return false
	}
	return prev.ResponseCode != next.ResponseCode || prev.ResponseStatus != next.ResponseStatus
}
