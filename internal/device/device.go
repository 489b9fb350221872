// Package device resolves the execution device for the synthesis engine from
// a configuration preference and runtime capability probes.
package device

import (
	"os"
	"os/exec"
	"runtime"
)

// Device names understood by the synthesis engines.
const (
	CUDA = "cuda"
	MPS  = "mps"
	CPU  = "cpu"
)

// Auto is the preference value that enables capability probing.
const Auto = "auto"

// Paths and binaries used by the capability probes.
const (
	nvidiaSMIBinary  = "nvidia-smi"
	nvidiaProcDriver = "/proc/driver/nvidia/version"
)

// Profile captures per-engine device restrictions. Some engines are known to
// be unstable on specific accelerators and must fall back to CPU there.
type Profile struct {
	// AllowMPS permits the Apple Metal backend. The coqui engine produces
	// broken audio on MPS, so its profile disables this probe.
	AllowMPS bool
}

// Resolve picks the execution device for the given preference. An explicit
// preference is returned unchanged without any capability check; "auto"
// probes accelerators in priority order and returns the first available.
// Resolve is a pure function of the environment and is cheap enough to call
// per health check.
func Resolve(preference string, profile Profile) string {
	if preference != Auto {
		return preference
	}

	if CUDAAvailable() {
		return CUDA
	}

	if MPSAvailable() && profile.AllowMPS {
		return MPS
	}

	return CPU
}

// CUDAAvailable reports whether an NVIDIA GPU is usable on this host. It
// checks for the nvidia-smi binary and falls back to the kernel driver
// version file.
func CUDAAvailable() bool {
	_, lookErr := exec.LookPath(nvidiaSMIBinary)
	if lookErr == nil {
		return true
	}

	_, statErr := os.Stat(nvidiaProcDriver)

	return statErr == nil
}

// MPSAvailable reports whether the Apple Metal Performance Shaders backend
// is present on this host.
func MPSAvailable() bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}
