// Package devices registers the built-in device and CPU types with the
// chipset registry. Importing it (usually blank) makes the standard catalog
// available to the machine builder.
package devices

import (
	"github.com/tinyrange/fdtmachine/internal/chipset"

	_ "github.com/tinyrange/fdtmachine/internal/devices/gic"
	_ "github.com/tinyrange/fdtmachine/internal/devices/i2c"
	_ "github.com/tinyrange/fdtmachine/internal/devices/pl011"
	_ "github.com/tinyrange/fdtmachine/internal/devices/pl031"
	_ "github.com/tinyrange/fdtmachine/internal/devices/pl061"
	_ "github.com/tinyrange/fdtmachine/internal/devices/pl080"
)

func init() {
	// CPU types. A zero timebase means the device tree (or the build
	// config default) must supply the rate.
	chipset.RegisterCPUType("cortex-a15", 0)
	chipset.RegisterCPUType("cortex-a9", 0)
	chipset.RegisterCPUType("cortex-a7", 0)
	chipset.RegisterCPUType("arm1176", 0)
	chipset.RegisterCPUType("mips-24Kc", 0)
}
