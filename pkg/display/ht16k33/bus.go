package ht16k33

import (
	"fmt"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var _ Bus = (i2c.Bus)(nil)

// OpenBus initializes host drivers and opens an I2C bus by name.
// An empty name opens the first bus available.
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %v", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %v", name, err)
	}
	glog.Infof("opened i2c bus %s", bus)
	return bus, nil
}
