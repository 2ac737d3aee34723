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

package calibration

import (
	"fmt"
	"strings"
)

// MicroscopeParameters - everything we know about the microscope state for
// one acquisition. Plain parameters come straight from the session (or the
// operator), calibrated parameters start with a nominal value and get their
// actual value filled in from a calibration table.
type MicroscopeParameters struct {
	AccelerationVoltage *Parameter
	Mode                *Parameter
	MagMode             *Parameter
	Alpha               *Parameter
	Spot                *Parameter
	Microscope          *Parameter
	Camera              *Parameter
	AcquisitionDate     *Parameter
	ExposureTime        *Parameter
	PrecessionFrequency *Parameter

	// Pixel scales resolved off calibration rows
	ImageScale       *Parameter
	DiffractionScale *Parameter

	Magnification     *CalibratedParameter
	Cameralength      *CalibratedParameter
	SpotSize          *CalibratedParameter
	CondenserAperture *CalibratedParameter
	ConvergenceAngle  *CalibratedParameter
	PrecessionAngle   *CalibratedParameter
	ScanStepX         *CalibratedParameter
	ScanStepY         *CalibratedParameter
}

func NewMicroscopeParameters() *MicroscopeParameters {
	return &MicroscopeParameters{
		AccelerationVoltage: NewParameter("Acceleration Voltage", "V"),
		Mode:                NewParameter("Mode", ""),
		MagMode:             NewParameter("Mag mode", ""),
		Alpha:               NewParameter("Alpha", ""),
		Spot:                NewParameter("Spot", ""),
		Microscope:          NewParameter("Microscope", ""),
		Camera:              NewParameter("Camera", ""),
		AcquisitionDate:     NewParameter("Acquisition Date", ""),
		ExposureTime:        NewParameter("Exposure Time", "ms"),
		PrecessionFrequency: NewParameter("Precession Frequency", "Hz"),
		ImageScale:          NewParameter("Image Scale", "nm"),
		DiffractionScale:    NewParameter("Diffraction Scale", "1/Å"),
		Magnification:       NewCalibratedParameter("Magnification", ""),
		Cameralength:        NewCalibratedParameter("Cameralength", "cm"),
		SpotSize:            NewCalibratedParameter("Spotsize", "nm"),
		CondenserAperture:   NewCalibratedParameter("Condenser aperture", "um"),
		ConvergenceAngle:    NewCalibratedParameter("Convergence Angle", "mrad"),
		PrecessionAngle:     NewCalibratedParameter("Precession Angle", "deg"),
		ScanStepX:           NewCalibratedParameter("Step X", "nm"),
		ScanStepY:           NewCalibratedParameter("Step Y", "nm"),
	}
}

// allParameters - fixed order, drives metadata output
func (m *MicroscopeParameters) allParameters() []IParameter {
	return []IParameter{
		m.AccelerationVoltage, m.Mode, m.MagMode, m.Alpha, m.Spot,
		m.Microscope, m.Camera, m.AcquisitionDate, m.ExposureTime,
		m.PrecessionFrequency, m.ImageScale, m.DiffractionScale,
		m.Magnification, m.Cameralength, m.SpotSize, m.CondenserAperture,
		m.ConvergenceAngle, m.PrecessionAngle, m.ScanStepX, m.ScanStepY,
	}
}

// stateTags - the microscope state as tags, for building lookup targets.
// Only defined parameters become tags.
func (m *MicroscopeParameters) stateTags() Tags {
	tags := Tags{}

	setTag := func(tag Tag, value Value) {
		if value.IsDefined() {
			tags[tag] = value
		}
	}

	setTag(TagAccelerationVoltage, m.AccelerationVoltage.Value())
	setTag(TagMicroscope, m.Microscope.Value())
	setTag(TagCamera, m.Camera.Value())
	setTag(TagMode, m.Mode.Value())
	setTag(TagMagMode, m.MagMode.Value())
	setTag(TagAlpha, m.Alpha.Value())
	setTag(TagSpot, m.Spot.Value())
	setTag(TagCondenserAperture, m.CondenserAperture.Nominal())

	return tags
}

// Report - the outcome of one calibration resolution pass. Uncalibrated
// parameters are normal, so nothing here is fatal; callers decide what to
// surface.
type Report struct {
	Resolved []string
	Skipped  []string
	NotFound []string
	Errors   []error
}

func (r *Report) String() string {
	lines := []string{}
	if len(r.Resolved) > 0 {
		lines = append(lines, fmt.Sprintf("Resolved: %v", strings.Join(r.Resolved, ", ")))
	}
	if len(r.Skipped) > 0 {
		lines = append(lines, fmt.Sprintf("Skipped: %v", strings.Join(r.Skipped, ", ")))
	}
	if len(r.NotFound) > 0 {
		lines = append(lines, fmt.Sprintf("No calibration found: %v", strings.Join(r.NotFound, ", ")))
	}
	for _, err := range r.Errors {
		lines = append(lines, fmt.Sprintf("Error: %v", err))
	}
	if len(lines) == 0 {
		return "Nothing to calibrate"
	}
	return strings.Join(lines, "\n")
}

// SetValuesFromCalibrationTable - resolves every calibrated parameter that
// has a nominal value and enough state tags against the table, then the
// image and diffraction pixel scales. Collects rather than aborts: a
// parameter with no usable calibration ends up in the report and the pass
// continues. Running the pass twice with the same inputs gives the same
// values.
func (m *MicroscopeParameters) SetValuesFromCalibrationTable(table *Table, resolver *Resolver) *Report {
	report := &Report{}

	tags := m.stateTags()

	attempts := []struct {
		kind  RecordKind
		param *CalibratedParameter
	}{
		{KindCameralength, m.Cameralength},
		{KindMagnification, m.Magnification},
		{KindSpotSize, m.SpotSize},
		{KindPrecessionAngle, m.PrecessionAngle},
		{KindStepSize, m.ScanStepX},
		{KindStepSize, m.ScanStepY},
	}

	for _, attempt := range attempts {
		name := attempt.param.Name

		if !attempt.param.Nominal().IsDefined() {
			report.Skipped = append(report.Skipped, name+" (no nominal value)")
			continue
		}

		target, err := NewTargetRecord(attempt.kind, attempt.param, tags)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}

		// A missing match key means this parameter cannot be looked up at
		// all with what we know, which is a skip, not a failure
		missingKey := false
		for _, tag := range target.MatchKeys() {
			if !tags[tag].IsDefined() {
				report.Skipped = append(report.Skipped, fmt.Sprintf("%v (%v not set)", name, tag))
				missingKey = true
				break
			}
		}
		if missingKey {
			continue
		}

		err = resolver.Resolve(table, target)
		if err != nil {
			if _, notFound := err.(*NoCalibrationFoundError); notFound {
				report.NotFound = append(report.NotFound, name)
			} else {
				report.Errors = append(report.Errors, err)
			}
			continue
		}

		report.Resolved = append(report.Resolved, name)
	}

	// No record kind calibrates these directly, they only participate as
	// match keys for other quantities
	for _, param := range []*CalibratedParameter{m.CondenserAperture, m.ConvergenceAngle} {
		if param.Nominal().IsDefined() && !param.Value().IsDefined() {
			report.Skipped = append(report.Skipped, param.Name+" (not a calibrated record kind)")
		}
	}

	m.resolveScales(table, resolver, tags, report)

	return report
}

// resolveScales - the pixel scales live as measured cells on calibration
// rows rather than as calibrated parameters, resolved after the parameter
// pass as a straight cell lookup
func (m *MicroscopeParameters) resolveScales(table *Table, resolver *Resolver, tags Tags, report *Report) {
	scaleQuery := func(param *CalibratedParameter, kind RecordKind) (map[string]Value, bool) {
		if !param.Nominal().IsDefined() {
			return nil, false
		}

		target, err := NewTargetRecord(kind, param, tags)
		if err != nil {
			return nil, false
		}

		required, err := requiredCells(target)
		if err != nil {
			return nil, false
		}
		return required, true
	}

	if required, ok := scaleQuery(m.Magnification, KindMagnification); ok {
		cell, err := resolver.ResolveCell(table, KindMagnification, "Scale (nm)", required)
		if err == nil {
			m.ImageScale.SetValue(cell)
			report.Resolved = append(report.Resolved, m.ImageScale.Name)
		} else {
			report.NotFound = append(report.NotFound, m.ImageScale.Name)
		}
	}

	if required, ok := scaleQuery(m.Cameralength, KindCameralength); ok {
		cell, err := resolver.ResolveCell(table, KindCameralength, "Scale (1/Å)", required)
		if err == nil {
			m.DiffractionScale.SetValue(cell)
			report.Resolved = append(report.Resolved, m.DiffractionScale.Name)
		} else {
			report.NotFound = append(report.NotFound, m.DiffractionScale.Name)
		}
	}
}

// GetDefinedParameters - only the parameters with at least one value set,
// in fixed order
func (m *MicroscopeParameters) GetDefinedParameters() []IParameter {
	result := []IParameter{}
	for _, param := range m.allParameters() {
		if param.IsDefined() {
			result = append(result, param)
		}
	}
	return result
}

// AsMetadata - flat dict projection of the defined parameters, for
// injection into an output container's metadata tree
func (m *MicroscopeParameters) AsMetadata() map[string]interface{} {
	result := map[string]interface{}{}
	for _, param := range m.GetDefinedParameters() {
		result[param.DictKey()] = param.AsDict()
	}
	return result
}

// AsRow - 1D row projection of the defined parameters, same column naming
// as calibration tables
func (m *MicroscopeParameters) AsRow() Row {
	row := Row{}
	for _, param := range m.allParameters() {
		switch p := param.(type) {
		case *Parameter:
			if p.Value().IsDefined() {
				row[p.ColumnName()] = p.Value()
			}
		case *CalibratedParameter:
			if p.Nominal().IsDefined() {
				row[p.NominalColumnName()] = p.Nominal()
			}
			if p.Value().IsDefined() {
				row[p.ColumnName()] = p.Value()
			}
		}
	}
	return row
}
