package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowListDefaultsToLoopback(t *testing.T) {
	a := NewAllowList(nil)
	assert.True(t, a.Allowed("127.0.0.1:54321"))
	assert.True(t, a.Allowed("[::1]:54321"))
	assert.False(t, a.Allowed("10.0.0.5:54321"))
}

func TestAllowListHonorsConfiguredHosts(t *testing.T) {
	a := NewAllowList([]string{"10.0.0.5"})
	assert.True(t, a.Allowed("10.0.0.5:9000"))
	assert.False(t, a.Allowed("127.0.0.1:9000"))
}

func TestAllowListAcceptsBareHost(t *testing.T) {
	a := NewAllowList([]string{"10.0.0.5"})
	assert.True(t, a.Allowed("10.0.0.5"))
}
