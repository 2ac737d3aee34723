// Copyright (c) 2018-2022 California Institute of Technology (“Caltech”). U.S.
// Government sponsorship acknowledged.
// All rights reserved.
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are
// met:
//
// * Redistributions of source code must retain the above copyright notice, this
//   list of conditions and the following disclaimer.
// * Redistributions in binary form must reproduce the above copyright notice,
//   this list of conditions and the following disclaimer in the documentation
//   and/or other materials provided with the distribution.
// * Neither the name of Caltech nor its operating division, the Jet Propulsion
//   Laboratory, nor the names of its contributors may be used to endorse or
//   promote products derived from this software without specific prior written
//   permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT OWNER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Parsing of the .hdr text sidecar the Merlin readout writes next to each
// .mib acquisition. Plain "key: value" lines between an HDR and an End
// marker, keys as spelled by the Merlin software.
package medipix

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
)

type HDRContent struct {
	Timestamp           string
	ChipID              string
	ChipType            string
	AssemblySize        string
	ChipMode            string
	CounterDepth        int
	Gain                string
	ActiveCounters      string
	Thresholds          string
	DACs                string
	BPCFile             string
	DACFile             string
	GapFillMode         string
	FlatFieldFile       string
	DeadTimeFile        string
	AcquisitionType     string
	FramesInAcquisition int
	FramesPerTrigger    int
	TriggerStart        string
	TriggerStop         string
	SensorBias          string
	SensorPolarity      string
	Temperature         string
	Humidity            string
	MedipixClock        string
	ReadoutSystem       string
	SoftwareVersion     string
}

// ParseHDR - parses a .hdr sidecar. Malformed framing (no HDR first line,
// no End) is an error, unknown keys are logged and skipped so a newer
// Merlin software version doesn't break conversion.
func ParseHDR(data []byte, log logger.ILogger) (*HDRContent, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	if len(lines) < 2 || !strings.HasPrefix(strings.TrimSpace(lines[0]), "HDR") {
		return nil, fmt.Errorf("Not a Merlin HDR file: missing HDR marker")
	}

	content := &HDRContent{}
	sawEnd := false

	for lineIdx, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "End") {
			sawEnd = true
			break
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("Malformed HDR line %v: \"%v\"", lineIdx+2, trimmed)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := content.setField(key, value, log); err != nil {
			return nil, fmt.Errorf("HDR line %v: %v", lineIdx+2, err)
		}
	}

	if !sawEnd {
		return nil, fmt.Errorf("Not a Merlin HDR file: missing End marker")
	}

	return content, nil
}

func (h *HDRContent) setField(key string, value string, log logger.ILogger) error {
	intField := func(dst *int) error {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("\"%v\" needs an integer, got \"%v\"", key, value)
		}
		*dst = parsed
		return nil
	}

	switch key {
	case "Time and Date Stamp (day, mnth, yr, hr, min, s)":
		h.Timestamp = value
	case "Chip ID":
		h.ChipID = value
	case "Chip Type (Medipix 3.0, Medipix 3.1, Medipix 3RX)":
		h.ChipType = value
	case "Assembly Size (NX1, 2X2)":
		h.AssemblySize = value
	case "Chip Mode  (SPM, CSM, CM, CSCM)":
		h.ChipMode = value
	case "Counter Depth (number)":
		return intField(&h.CounterDepth)
	case "Gain":
		h.Gain = value
	case "Active Counters":
		h.ActiveCounters = value
	case "Thresholds (keV)":
		h.Thresholds = value
	case "DACs":
		h.DACs = value
	case "bpc File":
		h.BPCFile = strings.TrimSuffix(value, ",")
	case "DAC File":
		h.DACFile = strings.TrimSuffix(value, ",")
	case "Gap Fill Mode":
		h.GapFillMode = value
	case "Flat Field File":
		h.FlatFieldFile = value
	case "Dead Time File":
		h.DeadTimeFile = value
	case "Acquisition Type (Normal, Th_scan, Config)":
		h.AcquisitionType = value
	case "Frames in Acquisition (Number)":
		return intField(&h.FramesInAcquisition)
	case "Frames per Trigger (Number)":
		return intField(&h.FramesPerTrigger)
	case "Trigger Start (Positive, Negative, Internal)":
		h.TriggerStart = value
	case "Trigger Stop (Positive, Negative, Internal)":
		h.TriggerStop = value
	case "Sensor Bias (V)":
		h.SensorBias = value
	case "Sensor Polarity (Positive, Negative)":
		h.SensorPolarity = value
	case "Temperature (C)":
		h.Temperature = value
	case "Humidity (%)":
		h.Humidity = value
	case "Medipix Clock (MHz)":
		h.MedipixClock = value
	case "Readout System":
		h.ReadoutSystem = value
	case "Software Version":
		h.SoftwareVersion = value
	default:
		log.Infof("Ignoring unknown HDR key: \"%v\"", key)
	}

	return nil
}

var timestampLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04:05.000000",
	"2006-01-02 15:04:05",
}

// AcquisitionTime - the parsed timestamp. Merlin writes day-first dates.
func (h *HDRContent) AcquisitionTime() (time.Time, error) {
	for _, layout := range timestampLayouts {
		stamp, err := time.Parse(layout, h.Timestamp)
		if err == nil {
			return stamp, nil
		}
	}
	return time.Time{}, fmt.Errorf("Unparseable HDR timestamp: \"%v\"", h.Timestamp)
}

// AsDict - flat projection for metadata injection
func (h *HDRContent) AsDict() map[string]interface{} {
	return map[string]interface{}{
		"timestamp":             h.Timestamp,
		"chip_id":               h.ChipID,
		"chip_type":             h.ChipType,
		"assembly_size":         h.AssemblySize,
		"chip_mode":             h.ChipMode,
		"counter_depth":         h.CounterDepth,
		"gain":                  h.Gain,
		"active_counters":       h.ActiveCounters,
		"thresholds":            h.Thresholds,
		"dacs":                  h.DACs,
		"bpc_file":              h.BPCFile,
		"dac_file":              h.DACFile,
		"gap_fill_mode":         h.GapFillMode,
		"flat_field_file":       h.FlatFieldFile,
		"dead_time_file":        h.DeadTimeFile,
		"acquisition_type":      h.AcquisitionType,
		"frames_in_acquisition": h.FramesInAcquisition,
		"frames_per_trigger":    h.FramesPerTrigger,
		"trigger_start":         h.TriggerStart,
		"trigger_stop":          h.TriggerStop,
		"sensor_bias":           h.SensorBias,
		"sensor_polarity":       h.SensorPolarity,
		"temperature":           h.Temperature,
		"humidity":              h.Humidity,
		"medipix_clock":         h.MedipixClock,
		"readout_system":        h.ReadoutSystem,
		"software_version":      h.SoftwareVersion,
	}
}
