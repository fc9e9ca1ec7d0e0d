package protocol

import "fmt"

// Fault is an error reported by the remote side for one call.
type Fault struct {
	Service string
	Reason  string
}

func (f *Fault) Error() string {
	if f.Service == "" {
		return fmt.Sprintf("remote fault: %s", f.Reason)
	}
	return fmt.Sprintf("remote fault from %s: %s", f.Service, f.Reason)
}
