// Package device_test tests execution device resolution.
package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/speech-gateway/internal/device"
)

func TestResolveExplicitPreference(t *testing.T) {
	t.Parallel()

	// An explicit device is trusted without any capability probe.
	profile := device.Profile{AllowMPS: true}

	assert.Equal(t, "cuda", device.Resolve("cuda", profile))
	assert.Equal(t, "cpu", device.Resolve("cpu", profile))
	assert.Equal(t, "mps", device.Resolve("mps", device.Profile{AllowMPS: false}))
}

func TestResolveAutoReturnsKnownDevice(t *testing.T) {
	t.Parallel()

	resolved := device.Resolve(device.Auto, device.Profile{AllowMPS: true})

	assert.Contains(t, []string{device.CUDA, device.MPS, device.CPU}, resolved)
}

func TestResolveAutoRespectsMPSVeto(t *testing.T) {
	t.Parallel()

	resolved := device.Resolve(device.Auto, device.Profile{AllowMPS: false})

	assert.NotEqual(t, device.MPS, resolved)
}

func TestResolveIsStable(t *testing.T) {
	t.Parallel()

	profile := device.Profile{AllowMPS: true}

	first := device.Resolve(device.Auto, profile)
	second := device.Resolve(device.Auto, profile)

	assert.Equal(t, first, second)
}
