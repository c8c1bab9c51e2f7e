// Package config loads the YAML parameter file a running transceiver
// process starts from and applies it to a dsp.ParamStore. This is
// entirely outside the DSP core's scope: the core never touches a
// filesystem.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/VDowbensky/geckokapula/dsp"
	"github.com/VDowbensky/geckokapula/internal/logging"
)

var log = logging.For("config")

// RadioChannel names one entry in the channel table a user can recall
// by name instead of by raw frequency.
type RadioChannel struct {
	Name      string  `yaml:"name"`
	OffsetHz  int32   `yaml:"offset_hz"`
	Mode      string  `yaml:"mode"`
	CTCSSHz   float32 `yaml:"ctcss_hz,omitempty"`
}

// ParameterFile is the on-disk shape of a transceiver's configuration.
type ParameterFile struct {
	Mode              string         `yaml:"mode"`
	OffsetHz          int32          `yaml:"offset_hz"`
	Volume            uint32         `yaml:"volume"`
	Squelch           float32        `yaml:"squelch"`
	CTCSSHz           float32        `yaml:"ctcss_hz"`
	WaterfallAverages uint8          `yaml:"waterfall_averages"`
	Channels          []RadioChannel `yaml:"channels"`
}

var modeByName = map[string]dsp.Mode{
	"off": dsp.ModeOff,
	"fm":  dsp.ModeFM,
	"am":  dsp.ModeAM,
	"usb": dsp.ModeUSB,
	"lsb": dsp.ModeLSB,
	"cwu": dsp.ModeCWU,
	"cwl": dsp.ModeCWL,
}

func (pf *ParameterFile) mode() (dsp.Mode, error) {
	m, ok := modeByName[pf.Mode]
	if !ok {
		return 0, fmt.Errorf("config: unknown mode %q", pf.Mode)
	}
	return m, nil
}

// Load reads and parses a YAML parameter file.
func Load(path string) (*ParameterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var pf ParameterFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if pf.WaterfallAverages == 0 {
		pf.WaterfallAverages = 8
	}
	return &pf, nil
}

// Apply seeds a ParamStore from the file's top-level settings and
// calls dsp.UpdateParams so demod/mod state is recomputed from them.
func (pf *ParameterFile) Apply(ps *dsp.ParamStore, demod *dsp.DemodState, mod *dsp.ModState) error {
	mode, err := pf.mode()
	if err != nil {
		return err
	}
	ps.SetMode(mode)
	ps.SetOffsetFreq(pf.OffsetHz)
	ps.SetVolume(pf.Volume)
	ps.SetSquelch(pf.Squelch)
	ps.SetCTCSS(pf.CTCSSHz)
	ps.SetWaterfallAverages(pf.WaterfallAverages)

	dsp.UpdateParams(ps, demod, mod)
	log.Info("applied configuration", "mode", pf.Mode, "offset_hz", pf.OffsetHz, "channels", len(pf.Channels))
	return nil
}

// ChannelByName finds a configured channel by name, resolving a
// recalled memory to an offset/mode pair.
func (pf *ParameterFile) ChannelByName(name string) (RadioChannel, bool) {
	for _, c := range pf.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return RadioChannel{}, false
}
