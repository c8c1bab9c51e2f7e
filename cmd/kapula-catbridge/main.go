// Command kapula-catbridge exposes a dsp.ParamStore over a Hamlib CAT
// control port, either a real serial device or a loopback pty for
// testing without hardware.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/VDowbensky/geckokapula/dsp"
	"github.com/VDowbensky/geckokapula/internal/catbridge"
	"github.com/VDowbensky/geckokapula/internal/catserial"
	"github.com/VDowbensky/geckokapula/internal/logging"
	"github.com/VDowbensky/geckokapula/internal/version"
)

var log = logging.For("kapula-catbridge")

func main() {
	port := pflag.String("port", "", "serial device for CAT control (omit to allocate a loopback pty)")
	rigModel := pflag.Int("rig-model", 0, "Hamlib rig model number")
	genV2 := pflag.Bool("v2", false, "use the v2 divider search range")
	pollInterval := pflag.Duration("poll", 200*time.Millisecond, "CAT poll interval")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		version.Print(false)
		return
	}

	catPort := *port
	if catPort == "" {
		_, slave, err := catserial.OpenLoopback()
		if err != nil {
			log.Fatal("allocating loopback pty", "err", err)
		}
		catPort = slave
		fmt.Fprintf(os.Stderr, "kapula-catbridge: loopback CAT port at %s\n", catPort)
	}

	gen := catbridge.GenV1
	if *genV2 {
		gen = catbridge.GenV2
	}

	ps := dsp.NewParamStore()
	bridge, err := catbridge.New(*rigModel, catPort, ps, gen)
	if err != nil {
		log.Fatal("opening rig bridge", "err", err)
	}
	defer bridge.Close()

	log.Info("catbridge running", "port", catPort, "rig_model", *rigModel)

	for {
		if err := bridge.PollAndApply(); err != nil {
			log.Warn("poll failed", "err", err)
		}
		time.Sleep(*pollInterval)
	}
}
