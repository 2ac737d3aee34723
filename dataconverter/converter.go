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

// Orchestrates one .mib conversion: read the acquisition sidecar, resolve
// the microscope state against the calibration table, build per-axis
// calibrations and hand everything to a container writer. The container
// format itself is behind an interface, this package only decides what the
// axes and metadata say.
package dataconverter

import (
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/calibration"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/fileaccess"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/medipix"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/timestamper"
)

// AxisCalibration - everything a container needs to calibrate one axis
type AxisCalibration struct {
	Name     string
	Size     int
	Scale    float64
	Units    string
	Offset   float64
	Navigate bool
}

// ContainerWriter - writes the converted dataset. Implementations own the
// container format, the converter owns what goes in it.
type ContainerWriter interface {
	Write(bucket string, outPath string, axes []AxisCalibration, metadata map[string]interface{}) error
}

// JobParams - one conversion job
type JobParams struct {
	Bucket   string
	DataPath string
	OutPath  string

	// Navigation shape for scanned acquisitions, 0x0 means a single frame
	FramesX int
	FramesY int
}

type Converter struct {
	FS       fileaccess.FileAccess
	Log      logger.ILogger
	TS       timestamper.ITimeStamper
	Resolver *calibration.Resolver
	Writer   ContainerWriter
	Detector calibration.Detector
}

// sidecarPath - the .hdr the Merlin software writes next to the .mib
func sidecarPath(dataPath string) string {
	return strings.TrimSuffix(dataPath, path.Ext(dataPath)) + ".hdr"
}

func summaryPath(outPath string) string {
	return strings.TrimSuffix(outPath, path.Ext(outPath)) + "-summary.json"
}

// readSidecar - parses the .hdr if there is one. Conversion still works
// without it, just with less metadata.
func (c *Converter) readSidecar(job JobParams) *medipix.HDRContent {
	hdrPath := sidecarPath(job.DataPath)

	exists, err := c.FS.ObjectExists(job.Bucket, hdrPath)
	if err != nil || !exists {
		c.Log.Infof("No .hdr sidecar at \"%v\", continuing without", hdrPath)
		return nil
	}

	data, err := c.FS.ReadObject(job.Bucket, hdrPath)
	if err != nil {
		c.Log.Errorf("Failed to read sidecar \"%v\": %v", hdrPath, err)
		return nil
	}

	content, err := medipix.ParseHDR(data, c.Log)
	if err != nil {
		c.Log.Errorf("Failed to parse sidecar \"%v\": %v", hdrPath, err)
		return nil
	}

	return content
}

// Convert - runs one conversion job. Returns the calibration report; an
// error return means the conversion itself failed, uncalibrated parameters
// do not.
func (c *Converter) Convert(job JobParams, params *calibration.MicroscopeParameters, table *calibration.Table) (*calibration.Report, error) {
	c.Log.Infof("Converting \"%v\"...", job.DataPath)

	hdrContent := c.readSidecar(job)
	if hdrContent != nil {
		if !params.AcquisitionDate.IsDefined() && hdrContent.Timestamp != "" {
			stamp, err := hdrContent.AcquisitionTime()
			if err == nil {
				params.AcquisitionDate.SetText(stamp.Format("2006-01-02 15:04:05"))
			}
		}
	}

	report := params.SetValuesFromCalibrationTable(table, c.Resolver)
	c.Log.Infof("Calibration:\n%v", report)

	axes := c.buildAxes(job, params)

	metadata := map[string]interface{}{
		"acquisition": params.AsMetadata(),
	}
	if hdrContent != nil {
		metadata["merlin"] = hdrContent.AsDict()
	}

	if c.Writer != nil {
		err := c.Writer.Write(job.Bucket, job.OutPath, axes, metadata)
		if err != nil {
			return report, errors.Wrapf(err, "failed to write container \"%v\"", job.OutPath)
		}
	}

	err := c.writeSummary(job, report, axes)
	if err != nil {
		return report, errors.Wrap(err, "failed to write conversion summary")
	}

	return report, nil
}

// buildAxes - navigation axes from the scan shape and step calibration,
// signal axes from the detector shape and whichever pixel scale resolved.
// Anything uncalibrated falls back to plain pixels so the container is
// always writable.
func (c *Converter) buildAxes(job JobParams, params *calibration.MicroscopeParameters) []AxisCalibration {
	axes := []AxisCalibration{}

	stepScale := func(step *calibration.CalibratedParameter) (float64, string) {
		if step.Value().IsNumber() && step.Value().IsDefined() {
			return step.Value().Number(), "nm"
		}
		if step.Nominal().IsNumber() && step.Nominal().IsDefined() {
			return step.Nominal().Number(), "nm"
		}
		return 1, "px"
	}

	if job.FramesY > 0 {
		scale, axisUnits := stepScale(params.ScanStepY)
		axes = append(axes, AxisCalibration{Name: "y", Size: job.FramesY, Scale: scale, Units: axisUnits, Navigate: true})
	}
	if job.FramesX > 0 {
		scale, axisUnits := stepScale(params.ScanStepX)
		axes = append(axes, AxisCalibration{Name: "x", Size: job.FramesX, Scale: scale, Units: axisUnits, Navigate: true})
	}

	signalScale := 1.0
	signalUnits := "px"
	kSpace := false
	if params.DiffractionScale.IsDefined() {
		signalScale = params.DiffractionScale.Value().Number()
		signalUnits = params.DiffractionScale.Units
		kSpace = true
	} else if params.ImageScale.IsDefined() {
		signalScale = params.ImageScale.Value().Number()
		signalUnits = params.ImageScale.Units
	}

	signalName := func(axis string) string {
		if kSpace {
			return "k" + axis
		}
		return axis
	}

	axes = append(axes,
		AxisCalibration{Name: signalName("y"), Size: c.Detector.PixelsY, Scale: signalScale, Units: signalUnits},
		AxisCalibration{Name: signalName("x"), Size: c.Detector.PixelsX, Scale: signalScale, Units: signalUnits},
	)

	return axes
}
