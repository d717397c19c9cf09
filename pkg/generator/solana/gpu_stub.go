//go:build !opencl
// +build !opencl

package solana

import (
	"errors"
	"runtime"

	"go.uber.org/zap"

	"github.com/Amr-9/SolHunter/pkg/generator/common"
)

// ErrOpenCLDisabled is returned when the binary was built without OpenCL support.
var ErrOpenCLDisabled = errors.New("GPU support not compiled. Build with: go build -tags opencl")

// OpenCLBackend is a stub for non-OpenCL builds. It reports no devices.
type OpenCLBackend struct {
	log *zap.SugaredLogger
}

// NewOpenCLBackend returns the stub backend.
func NewOpenCLBackend(log *zap.SugaredLogger) *OpenCLBackend {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &OpenCLBackend{log: log}
}

// Name returns the backend name.
func (b *OpenCLBackend) Name() string {
	return "OpenCL (disabled)"
}

// Devices always returns an empty list.
func (b *OpenCLBackend) Devices() ([]Device, error) {
	b.log.Debugw("opencl support not compiled in")
	return nil, nil
}

// Platform describes a host without any compute platform.
func (b *OpenCLBackend) Platform() common.Platform {
	return common.Platform{HeaderMajor: 1, OS: runtime.GOOS}
}

// NewSearcher always fails.
func (b *OpenCLBackend) NewSearcher(SearcherConfig) (Searcher, error) {
	return nil, ErrOpenCLDisabled
}
