//go:build opencl
// +build opencl

package solana

/*
#cgo CFLAGS: -I${SRCDIR}/../../../deps/opencl-headers
#cgo windows LDFLAGS: -L${SRCDIR}/../../../deps/lib -lOpenCL
#cgo linux LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
#include <string.h>

static int cl_header_major(void) {
#if defined(CL_VERSION_3_0)
	return 3;
#elif defined(CL_VERSION_2_0)
	return 2;
#else
	return 1;
#endif
}
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/Amr-9/SolHunter/pkg/generator"
	"github.com/Amr-9/SolHunter/pkg/generator/common"
)

// clPlatformNotFound is CL_PLATFORM_NOT_FOUND_KHR, returned by the ICD loader when no
// driver is installed.
const clPlatformNotFound = -1001

// OpenCLBackend dispatches the search kernel to OpenCL GPU devices.
type OpenCLBackend struct {
	log          *zap.SugaredLogger
	buildOptions string

	once      sync.Once
	ids       []C.cl_device_id
	devices   []Device
	platforms []string
	err       error
}

// NewOpenCLBackend returns a backend that enumerates devices on first use.
func NewOpenCLBackend(log *zap.SugaredLogger) *OpenCLBackend {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &OpenCLBackend{log: log, buildOptions: common.BuildOptions}
}

// Name returns the backend name.
func (b *OpenCLBackend) Name() string {
	return "OpenCL"
}

// Devices lists every GPU on every platform. No platform or no GPU is an empty list.
func (b *OpenCLBackend) Devices() ([]Device, error) {
	b.once.Do(b.enumerate)
	return b.devices, b.err
}

// Platform describes the installed platforms and the headers this binary was built with.
func (b *OpenCLBackend) Platform() common.Platform {
	b.once.Do(b.enumerate)
	return common.Platform{
		Names:       b.platforms,
		HeaderMajor: int(C.cl_header_major()),
		OS:          runtime.GOOS,
	}
}

func (b *OpenCLBackend) enumerate() {
	var numPlatforms C.cl_uint
	ret := C.clGetPlatformIDs(0, nil, &numPlatforms)
	if ret == clPlatformNotFound || (ret == C.CL_SUCCESS && numPlatforms == 0) {
		return
	}
	if ret != C.CL_SUCCESS {
		b.err = fmt.Errorf("clGetPlatformIDs failed: %d", ret)
		return
	}

	platforms := make([]C.cl_platform_id, numPlatforms)
	if ret := C.clGetPlatformIDs(numPlatforms, &platforms[0], nil); ret != C.CL_SUCCESS {
		b.err = fmt.Errorf("clGetPlatformIDs failed: %d", ret)
		return
	}

	for _, p := range platforms {
		platformName := platformString(p, C.CL_PLATFORM_NAME)
		vendor := platformString(p, C.CL_PLATFORM_VENDOR)
		b.platforms = append(b.platforms, platformName)

		var numDevices C.cl_uint
		if C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_GPU, 0, nil, &numDevices) != C.CL_SUCCESS || numDevices == 0 {
			continue
		}
		ids := make([]C.cl_device_id, numDevices)
		if C.clGetDeviceIDs(p, C.CL_DEVICE_TYPE_GPU, numDevices, &ids[0], nil) != C.CL_SUCCESS {
			continue
		}

		for _, id := range ids {
			var units C.cl_uint
			C.clGetDeviceInfo(id, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(units)), unsafe.Pointer(&units), nil)
			var mem C.cl_ulong
			C.clGetDeviceInfo(id, C.CL_DEVICE_GLOBAL_MEM_SIZE, C.size_t(unsafe.Sizeof(mem)), unsafe.Pointer(&mem), nil)
			var typ C.cl_device_type
			C.clGetDeviceInfo(id, C.CL_DEVICE_TYPE, C.size_t(unsafe.Sizeof(typ)), unsafe.Pointer(&typ), nil)

			b.devices = append(b.devices, Device{
				Handle:       len(b.ids),
				Platform:     platformName,
				Vendor:       vendor,
				Name:         deviceString(id, C.CL_DEVICE_NAME),
				Type:         deviceTypeName(typ),
				ComputeUnits: int(units),
				GlobalMem:    uint64(mem),
			})
			b.ids = append(b.ids, id)
		}
	}

	b.log.Debugw("opencl devices", "platforms", len(b.platforms), "devices", len(b.devices))
}

// NewSearcher builds the program for cfg.Devices in one shared context.
func (b *OpenCLBackend) NewSearcher(cfg SearcherConfig) (Searcher, error) {
	if _, err := b.Devices(); err != nil {
		return nil, err
	}
	if len(cfg.Devices) == 0 {
		return nil, errors.New("no devices given")
	}

	log := cfg.Log
	if log == nil {
		log = b.log
	}

	s := openclSearcher{
		log:     log,
		devices: cfg.Devices,
		chunks:  cfg.Chunks,
	}
	for _, d := range cfg.Devices {
		if d.Handle < 0 || d.Handle >= len(b.ids) {
			return nil, fmt.Errorf("unknown device handle %d", d.Handle)
		}
		s.ids = append(s.ids, b.ids[d.Handle])
	}

	if err := s.init(cfg.Program, b.buildOptions); err != nil {
		s.Close()
		return nil, err
	}
	return &s, nil
}

type openclSearcher struct {
	log     *zap.SugaredLogger
	devices []Device
	ids     []C.cl_device_id
	chunks  int

	clCtx   C.cl_context
	queues  []C.cl_command_queue
	program C.cl_program
	kernel  C.cl_kernel
}

func (s *openclSearcher) init(prog Program, buildOptions string) error {
	var ret C.cl_int

	s.clCtx = C.clCreateContext(nil, C.cl_uint(len(s.ids)), &s.ids[0], nil, nil, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("context failed: %d", ret)
	}

	for _, id := range s.ids {
		q := C.clCreateCommandQueue(s.clCtx, id, 0, &ret)
		if ret != C.CL_SUCCESS {
			return fmt.Errorf("queue failed: %d", ret)
		}
		s.queues = append(s.queues, q)
	}

	src := C.CString(prog.Source)
	defer C.free(unsafe.Pointer(src))

	length := C.size_t(len(prog.Source))
	s.program = C.clCreateProgramWithSource(s.clCtx, 1, &src, &length, &ret)
	if ret != C.CL_SUCCESS {
		return fmt.Errorf("program creation failed: %d", ret)
	}

	opts := C.CString(buildOptions)
	defer C.free(unsafe.Pointer(opts))

	ret = C.clBuildProgram(s.program, C.cl_uint(len(s.ids)), &s.ids[0], opts, nil, nil)
	if ret != C.CL_SUCCESS {
		return &generator.BuildError{
			Device: s.devices[0].Name,
			Log:    s.buildLog(),
			Err:    fmt.Errorf("clBuildProgram returned %d", ret),
		}
	}

	name := C.CString(prog.EntryPoint)
	defer C.free(unsafe.Pointer(name))
	s.kernel = C.clCreateKernel(s.program, name, &ret)
	if ret != C.CL_SUCCESS {
		return &generator.BuildError{
			Device: s.devices[0].Name,
			Err:    fmt.Errorf("kernel %s creation failed: %d", prog.EntryPoint, ret),
		}
	}

	return nil
}

// buildLog collects the compiler output of every device that produced any.
func (s *openclSearcher) buildLog() string {
	var logs []string
	for i, id := range s.ids {
		var size C.size_t
		C.clGetProgramBuildInfo(s.program, id, C.CL_PROGRAM_BUILD_LOG, 0, nil, &size)
		if size <= 1 {
			continue
		}
		buf := make([]byte, size)
		C.clGetProgramBuildInfo(s.program, id, C.CL_PROGRAM_BUILD_LOG, size, unsafe.Pointer(&buf[0]), nil)
		text := strings.TrimRight(string(buf), "\x00\n ")
		if text != "" {
			logs = append(logs, s.devices[i].Name+":\n"+text)
		}
	}
	return strings.Join(logs, "\n")
}

// DispatchOne runs chunk of the round on the queue chunk%len(devices). The dispatch
// blocks until the device is done; ctx is not consulted once the kernel is queued.
func (s *openclSearcher) DispatchOne(_ context.Context, round Round, chunk int) (DispatchResult, error) {
	dev := chunk % len(s.queues)
	queue := s.queues[dev]
	res := DispatchResult{
		Device:    s.devices[dev].Name,
		Chunk:     chunk,
		WorkItems: round.WorkItems(s.chunks),
	}

	fail := func(ret C.cl_int, what string) (DispatchResult, error) {
		return res, &generator.DispatchError{Device: res.Device, Chunk: chunk, Code: int(ret), Err: errors.New(what)}
	}

	start := time.Now()
	var ret C.cl_int

	key := round.Key32
	var out [33]byte
	occupied := C.uchar(round.IterationBytes)
	group := C.uchar(chunk)

	bufKey := C.clCreateBuffer(s.clCtx, C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, 32, unsafe.Pointer(&key[0]), &ret)
	if ret != C.CL_SUCCESS {
		return fail(ret, "key buffer")
	}
	defer C.clReleaseMemObject(bufKey)

	bufOut := C.clCreateBuffer(s.clCtx, C.CL_MEM_READ_WRITE|C.CL_MEM_COPY_HOST_PTR, 33, unsafe.Pointer(&out[0]), &ret)
	if ret != C.CL_SUCCESS {
		return fail(ret, "output buffer")
	}
	defer C.clReleaseMemObject(bufOut)

	bufOccupied := C.clCreateBuffer(s.clCtx, C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, 1, unsafe.Pointer(&occupied), &ret)
	if ret != C.CL_SUCCESS {
		return fail(ret, "occupied_bytes buffer")
	}
	defer C.clReleaseMemObject(bufOccupied)

	bufGroup := C.clCreateBuffer(s.clCtx, C.CL_MEM_READ_ONLY|C.CL_MEM_COPY_HOST_PTR, 1, unsafe.Pointer(&group), &ret)
	if ret != C.CL_SUCCESS {
		return fail(ret, "group_offset buffer")
	}
	defer C.clReleaseMemObject(bufGroup)

	// Kernel signature: generate_pubkey(seed, out, occupied_bytes, group_offset)
	for i, buf := range []*C.cl_mem{&bufKey, &bufOut, &bufOccupied, &bufGroup} {
		if ret = C.clSetKernelArg(s.kernel, C.cl_uint(i), C.size_t(unsafe.Sizeof(*buf)), unsafe.Pointer(buf)); ret != C.CL_SUCCESS {
			return fail(ret, fmt.Sprintf("kernel arg %d", i))
		}
	}

	globalSize := C.size_t(res.WorkItems)
	localSize := C.size_t(round.LocalWorkSize)
	ret = C.clEnqueueNDRangeKernel(queue, s.kernel, 1, nil, &globalSize, &localSize, 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return fail(ret, "kernel launch")
	}
	if ret = C.clFinish(queue); ret != C.CL_SUCCESS {
		return fail(ret, "kernel execution")
	}

	ret = C.clEnqueueReadBuffer(queue, bufOut, C.CL_TRUE, 0, 33, unsafe.Pointer(&out[0]), 0, nil, nil)
	if ret != C.CL_SUCCESS {
		return fail(ret, "read output")
	}

	res.Elapsed = time.Since(start)
	if out[0] != 0 {
		res.Found = true
		copy(res.PrivateKeySeed[:], out[1:33])
	}
	return res, nil
}

// Close releases every OpenCL object the searcher holds.
func (s *openclSearcher) Close() error {
	if s.kernel != nil {
		C.clReleaseKernel(s.kernel)
		s.kernel = nil
	}
	if s.program != nil {
		C.clReleaseProgram(s.program)
		s.program = nil
	}
	for _, q := range s.queues {
		C.clReleaseCommandQueue(q)
	}
	s.queues = nil
	if s.clCtx != nil {
		C.clReleaseContext(s.clCtx)
		s.clCtx = nil
	}
	return nil
}

func platformString(id C.cl_platform_id, param C.cl_platform_info) string {
	var size C.size_t
	if C.clGetPlatformInfo(id, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetPlatformInfo(id, param, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimRight(string(buf), "\x00")
}

func deviceString(id C.cl_device_id, param C.cl_device_info) string {
	var size C.size_t
	if C.clGetDeviceInfo(id, param, 0, nil, &size) != C.CL_SUCCESS || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	C.clGetDeviceInfo(id, param, size, unsafe.Pointer(&buf[0]), nil)
	return strings.TrimSpace(strings.TrimRight(string(buf), "\x00"))
}

func deviceTypeName(t C.cl_device_type) string {
	var names []string
	if t&C.CL_DEVICE_TYPE_GPU != 0 {
		names = append(names, "GPU")
	}
	if t&C.CL_DEVICE_TYPE_CPU != 0 {
		names = append(names, "CPU")
	}
	if t&C.CL_DEVICE_TYPE_ACCELERATOR != 0 {
		names = append(names, "Accelerator")
	}
	if len(names) == 0 {
		return "Unknown"
	}
	return strings.Join(names, "|")
}
