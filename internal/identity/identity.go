package identity

import (
	"fmt"
	"os"
)

// HolderEnv overrides the generated holder label.
const HolderEnv = "READERPOOL_HOLDER"

// Holder returns the label recorded on locks taken by this process, in the
// form operation@host:pid. A non-empty HolderEnv replaces it entirely.
func Holder(operation string) string {
	if v := os.Getenv(HolderEnv); v != "" {
		return v
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	if operation == "" {
		return fmt.Sprintf("%s:%d", host, os.Getpid())
	}
	return fmt.Sprintf("%s@%s:%d", operation, host, os.Getpid())
}
