// Command kapula-bench drives the DSP core against a real sound card
// so the RX/TX pipeline can be exercised and listened to outside the
// transceiver hardware it was written for.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/VDowbensky/geckokapula/dsp"
	"github.com/VDowbensky/geckokapula/internal/audioio"
	"github.com/VDowbensky/geckokapula/internal/config"
	"github.com/VDowbensky/geckokapula/internal/display"
	"github.com/VDowbensky/geckokapula/internal/frontpanel"
	"github.com/VDowbensky/geckokapula/internal/logging"
	"github.com/VDowbensky/geckokapula/internal/version"
)

var log = logging.For("kapula-bench")

func main() {
	configPath := pflag.StringP("config", "c", "", "YAML parameter file")
	gpioChip := pflag.String("gpio-chip", "", "GPIO character device for PTT/encoder (omit to disable)")
	listenAddr := pflag.String("listen", ":7373", "address to serve waterfall/S-meter stream on")
	dumpDir := pflag.String("dump-dir", "", "directory to write timestamped raw waterfall dumps to")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		version.Print(false)
		return
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "kapula-bench: -config is required")
		os.Exit(2)
	}

	pf, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("loading config", "err", err)
	}

	ps := dsp.NewParamStore()
	demod := dsp.NewDemodState()
	mod := dsp.NewModState()
	if err := pf.Apply(ps, demod, mod); err != nil {
		log.Fatal("applying config", "err", err)
	}

	ws := dsp.NewWaterfallState()
	trigger := make(chan uint16, 1)

	disp, err := display.NewServer(*dumpDir)
	if err != nil {
		log.Fatal("creating display server", "err", err)
	}
	if err := disp.Listen(*listenAddr); err != nil {
		log.Fatal("listening for viewers", "err", err)
	}
	ps.OnSMeterUpdate(disp.EmitSMeter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dsp.SlowDSPTask(ctx, trigger, demod.Ring(), ws, ps, disp.EmitWaterfallLine)

	if *gpioChip != "" {
		panel, err := frontpanel.Open(*gpioChip, 0, 1, 2, ps)
		if err != nil {
			log.Warn("opening front panel failed, continuing without it", "err", err)
		} else {
			defer panel.Close()
			tick := make(chan struct{})
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					default:
						tick <- struct{}{}
					}
				}
			}()
			go frontpanel.RunPoller(ctx, panel, tick)
		}
	}

	const sampleRate = 48000.0
	const framesPerBuffer = 16

	dev, err := audioio.Open(sampleRate, framesPerBuffer, func(in, out []float32) {
		processBlock(demod, mod, ps, trigger, in, out)
	})
	if err != nil {
		log.Fatal("opening audio device", "err", err)
	}
	defer dev.Close()

	log.Info("kapula-bench running", "listen", *listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}

// processBlock converts one portaudio callback's worth of float audio
// to the DSP core's fixed-point I/Q and audio types, running RX on a
// synthetic loopback of the captured samples and TX on the captured
// microphone audio, just so both paths get exercised without real RF
// front-end hardware.
func processBlock(demod *dsp.DemodState, mod *dsp.ModState, ps *dsp.ParamStore, trigger chan uint16, in, out []float32) {
	n := len(in)
	if n > dsp.AudioMaxLen {
		n = dsp.AudioMaxLen
	}

	iq := make([]dsp.IQInt16, 2*n)
	for i := 0; i < n; i++ {
		v := int16(in[i] * 32767)
		iq[2*i] = dsp.IQInt16{I: v, Q: 0}
		iq[2*i+1] = dsp.IQInt16{I: 0, Q: v}
	}

	audioOut := make([]uint8, n)
	dsp.FastRX(demod, ps, iq, audioOut, trigger)

	micIn := make([]uint8, n)
	for i := 0; i < n; i++ {
		micIn[i] = uint8((in[i] + 1.0) * 127.0)
	}
	fmOut := make([]int32, n)
	dsp.FastTX(mod, ps, micIn, fmOut)

	for i := 0; i < n && i < len(out); i++ {
		out[i] = (float32(audioOut[i]) - dsp.AudioMid) / dsp.AudioMid
	}
}
