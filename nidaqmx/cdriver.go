//go:build nidaqmx
// +build nidaqmx

package nidaqmx

/*
#cgo linux LDFLAGS: -lnidaqmx
#cgo windows CFLAGS: -I"C:/Program Files (x86)/National Instruments/Shared/ExternalCompilerSupport/C/include"
#cgo windows LDFLAGS: -L"C:/Program Files (x86)/National Instruments/Shared/ExternalCompilerSupport/C/lib64/msvc" -lNIDAQmx
#include <stdlib.h>
#include <NIDAQmx.h>
*/
import "C"
import (
	"unsafe"
)

// cDriver is the Driver backed by the NI-DAQmx C library
type cDriver struct{}

// NewDriver returns the Driver backed by the installed NI-DAQmx library
func NewDriver() Driver {
	return cDriver{}
}

// lastError builds a DriverError from a negative status code, or returns nil.
// Positive codes are warnings and are ignored.
func lastError(op string, code C.int32) error {
	if code >= 0 {
		return nil
	}
	size := C.DAQmxGetExtendedErrorInfo(nil, 0)
	msg := ""
	if size > 0 {
		buf := (*C.char)(C.malloc(C.size_t(size)))
		defer C.free(unsafe.Pointer(buf))
		C.DAQmxGetExtendedErrorInfo(buf, C.uInt32(size))
		msg = C.GoString(buf)
	}
	return &DriverError{Op: op, Code: int32(code), Msg: msg}
}

// queryString calls one of the driver's string property getters twice,
// first to size the buffer
func queryString(op string, f func(*C.char, C.uInt32) C.int32) (string, error) {
	size := f(nil, 0)
	if size < 0 {
		return "", lastError(op, size)
	}
	if size == 0 {
		return "", nil
	}
	buf := (*C.char)(C.malloc(C.size_t(size)))
	defer C.free(unsafe.Pointer(buf))
	if err := lastError(op, f(buf, C.uInt32(size))); err != nil {
		return "", err
	}
	return C.GoString(buf), nil
}

func devQuery(op, dev string, f func(*C.char, *C.char, C.uInt32) C.int32) (string, error) {
	cdev := C.CString(dev)
	defer C.free(unsafe.Pointer(cdev))
	return queryString(op, func(buf *C.char, n C.uInt32) C.int32 {
		return f(cdev, buf, n)
	})
}

func (cDriver) DeviceNames() (string, error) {
	return queryString("DAQmxGetSysDevNames", func(buf *C.char, n C.uInt32) C.int32 {
		return C.DAQmxGetSysDevNames(buf, n)
	})
}

func (cDriver) ProductType(dev string) (string, error) {
	return devQuery("DAQmxGetDevProductType", dev, func(d, buf *C.char, n C.uInt32) C.int32 {
		return C.DAQmxGetDevProductType(d, buf, n)
	})
}

func (cDriver) SerialNumber(dev string) (uint32, error) {
	cdev := C.CString(dev)
	defer C.free(unsafe.Pointer(cdev))
	var sn C.uInt32
	if err := lastError("DAQmxGetDevSerialNum", C.DAQmxGetDevSerialNum(cdev, &sn)); err != nil {
		return 0, err
	}
	return uint32(sn), nil
}

func (cDriver) AIPhysicalChans(dev string) (string, error) {
	return devQuery("DAQmxGetDevAIPhysicalChans", dev, func(d, buf *C.char, n C.uInt32) C.int32 {
		return C.DAQmxGetDevAIPhysicalChans(d, buf, n)
	})
}

func (cDriver) AOPhysicalChans(dev string) (string, error) {
	return devQuery("DAQmxGetDevAOPhysicalChans", dev, func(d, buf *C.char, n C.uInt32) C.int32 {
		return C.DAQmxGetDevAOPhysicalChans(d, buf, n)
	})
}

func (cDriver) DOLines(dev string) (string, error) {
	return devQuery("DAQmxGetDevDOLines", dev, func(d, buf *C.char, n C.uInt32) C.int32 {
		return C.DAQmxGetDevDOLines(d, buf, n)
	})
}

func (cDriver) NewTask(name string) (Task, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	t := &cTask{}
	if err := lastError("DAQmxCreateTask", C.DAQmxCreateTask(cname, &t.handle)); err != nil {
		return nil, err
	}
	return t, nil
}

type cTask struct {
	handle C.TaskHandle
}

func (t *cTask) CreateAOVoltageChan(phys string, min, max float64) error {
	cphys := C.CString(phys)
	defer C.free(unsafe.Pointer(cphys))
	return lastError("DAQmxCreateAOVoltageChan", C.DAQmxCreateAOVoltageChan(
		t.handle, cphys, nil, C.float64(min), C.float64(max), C.DAQmx_Val_Volts, nil))
}

func (t *cTask) CreateAIVoltageChan(phys string, term TerminalConfig, min, max float64) error {
	cphys := C.CString(phys)
	defer C.free(unsafe.Pointer(cphys))
	return lastError("DAQmxCreateAIVoltageChan", C.DAQmxCreateAIVoltageChan(
		t.handle, cphys, nil, C.int32(term), C.float64(min), C.float64(max), C.DAQmx_Val_Volts, nil))
}

func (t *cTask) CreateDOChan(lines string) error {
	clines := C.CString(lines)
	defer C.free(unsafe.Pointer(clines))
	return lastError("DAQmxCreateDOChan", C.DAQmxCreateDOChan(t.handle, clines, nil, C.DAQmx_Val_ChanForAllLines))
}

func (t *cTask) CreateDIChan(lines string) error {
	clines := C.CString(lines)
	defer C.free(unsafe.Pointer(clines))
	return lastError("DAQmxCreateDIChan", C.DAQmxCreateDIChan(t.handle, clines, nil, C.DAQmx_Val_ChanForAllLines))
}

func (t *cTask) CfgSampClkTiming(rate float64, samplesPerChan uint64) error {
	// nil source => onboard clock
	return lastError("DAQmxCfgSampClkTiming", C.DAQmxCfgSampClkTiming(
		t.handle, nil, C.float64(rate), C.DAQmx_Val_Rising, C.DAQmx_Val_FiniteSamps, C.uInt64(samplesPerChan)))
}

func (t *cTask) Start() error {
	return lastError("DAQmxStartTask", C.DAQmxStartTask(t.handle))
}

func (t *cTask) Stop() error {
	return lastError("DAQmxStopTask", C.DAQmxStopTask(t.handle))
}

func (t *cTask) Clear() error {
	return lastError("DAQmxClearTask", C.DAQmxClearTask(t.handle))
}

func (t *cTask) WriteAnalogScalar(v float64, timeout float64) error {
	return lastError("DAQmxWriteAnalogScalarF64", C.DAQmxWriteAnalogScalarF64(
		t.handle, 1, C.float64(timeout), C.float64(v), nil))
}

func (t *cTask) ReadAnalog(buf []float64, timeout float64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var read C.int32
	err := lastError("DAQmxReadAnalogF64", C.DAQmxReadAnalogF64(
		t.handle, C.int32(len(buf)), C.float64(timeout), C.DAQmx_Val_GroupByChannel,
		(*C.float64)(unsafe.Pointer(&buf[0])), C.uInt32(len(buf)), &read, nil))
	return int(read), err
}

func (t *cTask) WriteDigitalLines(data []uint8, timeout float64) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	var written C.int32
	err := lastError("DAQmxWriteDigitalLines", C.DAQmxWriteDigitalLines(
		t.handle, C.int32(len(data)), 1, C.float64(timeout), C.DAQmx_Val_GroupByChannel,
		(*C.uInt8)(unsafe.Pointer(&data[0])), &written, nil))
	return int(written), err
}

func (t *cTask) ReadDigitalLines(buf []uint8, timeout float64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var read, bytesPerSamp C.int32
	err := lastError("DAQmxReadDigitalLines", C.DAQmxReadDigitalLines(
		t.handle, C.int32(len(buf)), C.float64(timeout), C.DAQmx_Val_GroupByChannel,
		(*C.uInt8)(unsafe.Pointer(&buf[0])), C.uInt32(len(buf)), &read, &bytesPerSamp, nil))
	return int(read), err
}
