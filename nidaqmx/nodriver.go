//go:build !nidaqmx
// +build !nidaqmx

package nidaqmx

import "errors"

// ErrNoDriver is returned by every call of the Driver from NewDriver when the
// program was built without the nidaqmx tag
var ErrNoDriver = errors.New("nidaqmx: built without the NI-DAQmx driver, rebuild with -tags nidaqmx")

type noDriver struct{}

// NewDriver returns a Driver that fails every call.  Build with -tags nidaqmx
// to link the real driver.
func NewDriver() Driver {
	return noDriver{}
}

func (noDriver) DeviceNames() (string, error)           { return "", ErrNoDriver }
func (noDriver) ProductType(string) (string, error)     { return "", ErrNoDriver }
func (noDriver) SerialNumber(string) (uint32, error)    { return 0, ErrNoDriver }
func (noDriver) AIPhysicalChans(string) (string, error) { return "", ErrNoDriver }
func (noDriver) AOPhysicalChans(string) (string, error) { return "", ErrNoDriver }
func (noDriver) DOLines(string) (string, error)         { return "", ErrNoDriver }
func (noDriver) NewTask(string) (Task, error)           { return nil, ErrNoDriver }
