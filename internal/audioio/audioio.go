// Package audioio drives a real sound card for the bench harness,
// standing in for the radio front end's sample FIFO, and watches for
// device hotplug the way the excluded front-end driver would need to.
package audioio

import (
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/jochenvg/go-udev"

	"github.com/VDowbensky/geckokapula/internal/logging"
)

var log = logging.For("audioio")

/*-------------------------------------------------------------------
 *
 * Name:	Stats
 *
 * Purpose:	Track samples/errors per open stream and print a
 *		troubleshooting line at a configurable interval, the way
 *		a hosted build prints input-level diagnostics instead of
 *		leaving the operator to wonder whether audio is flowing.
 *
 *---------------------------------------------------------------*/

type Stats struct {
	lastReport  time.Time
	sampleCount int
	errorCount  int
	suppressed  bool
	interval    time.Duration
}

func NewStats(interval time.Duration) *Stats {
	return &Stats{interval: interval}
}

// Add folds in one buffer's worth of samples (or an error if nsamp<=0)
// and logs a rate report once interval has elapsed.
func (s *Stats) Add(nsamp int) {
	if s.interval <= 0 {
		return
	}
	now := time.Now()
	if s.lastReport.IsZero() {
		s.lastReport = now.Add(-(s.interval - 3*time.Second))
		s.suppressed = true
		return
	}
	if nsamp > 0 {
		s.sampleCount += nsamp
	} else {
		s.errorCount++
	}
	if !now.Before(s.lastReport.Add(s.interval)) {
		if s.suppressed {
			s.suppressed = false
		} else {
			rate := float64(s.sampleCount) / 1000.0 / s.interval.Seconds()
			log.Debug("audio input rate", "khz", rate, "errors", s.errorCount)
		}
		s.lastReport = now
		s.sampleCount = 0
		s.errorCount = 0
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	Device
 *
 * Purpose:	Open a portaudio capture+playback stream for the bench
 *		tool, feeding captured frames through a caller-supplied
 *		processing callback (the DSP FastRX/FastTX pair) and
 *		writing the result back out.
 *
 *---------------------------------------------------------------*/

type Device struct {
	stream *portaudio.Stream
	stats  *Stats
}

// Open starts a full-duplex stream with framesPerBuffer samples per
// callback, calling process(in, out) on each one.
func Open(sampleRate float64, framesPerBuffer int, process func(in, out []float32)) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	stats := NewStats(100 * time.Second)

	stream, err := portaudio.OpenDefaultStream(1, 1, sampleRate, framesPerBuffer,
		func(in, out []float32) {
			process(in, out)
			stats.Add(len(in))
		})
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, err
	}
	return &Device{stream: stream, stats: stats}, nil
}

func (d *Device) Close() error {
	err := d.stream.Close()
	portaudio.Terminate()
	return err
}

/*-------------------------------------------------------------------
 *
 * Name:	WatchHotplug
 *
 * Purpose:	Watch udev for sound-card add/remove events and invoke
 *		onChange, so the bench tool can log reconnects instead of
 *		silently going deaf when a USB audio device is unplugged.
 *
 *---------------------------------------------------------------*/

func WatchHotplug(stop <-chan struct{}, onChange func(action, devicePath string)) error {
	u := udev.Udev{}
	m := u.NewMonitorFromNetlink("udev")
	if err := m.FilterAddMatchSubsystem("sound"); err != nil {
		return err
	}

	ch, errCh, err := m.DeviceChan(make(chan struct{}))
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-stop:
				return
			case dev := <-ch:
				if dev != nil {
					onChange(dev.Action(), dev.Devpath())
				}
			case err := <-errCh:
				log.Warn("udev monitor error", "err", err)
			}
		}
	}()
	return nil
}
