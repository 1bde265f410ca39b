package identity_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/Kashuab/readerpool/internal/identity"
	"github.com/stretchr/testify/assert"
)

func TestHolderOverride(t *testing.T) {
	t.Setenv(identity.HolderEnv, "migration-42")
	assert.Equal(t, "migration-42", identity.Holder("lock"))
}

func TestHolderNamesOperation(t *testing.T) {
	t.Setenv(identity.HolderEnv, "")
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	assert.Equal(t, fmt.Sprintf("lock@%s:%d", host, os.Getpid()), identity.Holder("lock"))
	assert.Equal(t, fmt.Sprintf("%s:%d", host, os.Getpid()), identity.Holder(""))
}
