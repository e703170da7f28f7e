package models

import "fmt"

// ExitStatus is returned by a host command when the guest exited with a code.
type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("exit %d", int(e))
}
