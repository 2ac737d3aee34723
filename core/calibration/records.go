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
	"math"
	"time"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/units"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/utils"
)

// RecordKind - which microscope quantity a calibration record calibrates
type RecordKind int

const (
	KindCameralength RecordKind = iota
	KindMagnification
	KindStepSize
	KindPrecessionAngle
	KindSpotSize
)

var kindLabels = map[RecordKind]string{
	KindCameralength:    "DIFF",
	KindMagnification:   "IMG",
	KindStepSize:        "STEP",
	KindPrecessionAngle: "PREC",
	KindSpotSize:        "SPOT",
}

// Label - the short code stored in the Label column of calibration tables
func (k RecordKind) Label() string {
	label, ok := kindLabels[k]
	if !ok {
		return fmt.Sprintf("RecordKind(%v)", int(k))
	}
	return label
}

func KindFromLabel(label string) (RecordKind, error) {
	for kind, kindLabel := range kindLabels {
		if kindLabel == label {
			return kind, nil
		}
	}
	return KindCameralength, fmt.Errorf("Unrecognised record label: \"%v\"", label)
}

// Record - one calibration: a nominal microscope setting, the measured
// actual value, the state tags it was measured under, and optionally the
// measured scale it was derived from. All kinds share one struct, the kind
// decides which fields and columns are in play.
type Record struct {
	kind  RecordKind
	param *CalibratedParameter
	date  time.Time
	tags  Tags

	// Measured scale, only for DIFF and IMG records
	scale *units.Scale

	// STEP only, "X" or "Y"
	direction string

	// PREC only, deflector amplitudes in percent
	amplitudeX float64
	amplitudeY float64
}

func newRecord(kind RecordKind, param *CalibratedParameter, date time.Time, tags Tags) (*Record, error) {
	if !param.IsDefined() {
		return nil, &InvalidRecordError{Kind: kind, Reason: "neither nominal nor actual value set"}
	}
	return &Record{
		kind:       kind,
		param:      param,
		date:       date,
		tags:       tags.Copy(),
		amplitudeX: math.NaN(),
		amplitudeY: math.NaN(),
	}, nil
}

// NewCameralength - a diffraction calibration: nominal and actual
// cameralength in cm
func NewCameralength(nominal float64, actual float64, date time.Time, tags Tags) (*Record, error) {
	param := NewCalibratedParameter("Cameralength", "cm")
	param.SetNominalNumber(nominal)
	param.SetNumber(actual)
	return newRecord(KindCameralength, param, date, tags)
}

// NewMagnification - an imaging calibration: nominal and actual
// magnification (unitless)
func NewMagnification(nominal float64, actual float64, date time.Time, tags Tags) (*Record, error) {
	param := NewCalibratedParameter("Magnification", "")
	param.SetNominalNumber(nominal)
	param.SetNumber(actual)
	return newRecord(KindMagnification, param, date, tags)
}

// NewStepSize - a scan step calibration in nm along one axis. Scan step
// response depends on the lens preset, so mode and alpha tags are required.
func NewStepSize(nominal float64, actual float64, direction string, date time.Time, tags Tags) (*Record, error) {
	if direction != "X" && direction != "Y" {
		return nil, &InvalidRecordError{Kind: KindStepSize, Reason: fmt.Sprintf("direction must be X or Y, got \"%v\"", direction)}
	}

	param := NewCalibratedParameter("Step "+direction, "nm")
	param.SetNominalNumber(nominal)
	param.SetNumber(actual)

	rec, err := newRecord(KindStepSize, param, date, tags)
	if err != nil {
		return nil, err
	}
	rec.direction = direction
	return rec, nil
}

// NewPrecessionAngle - a precession (rocking) angle calibration in deg, with
// the deflector amplitudes it was measured at
func NewPrecessionAngle(nominal float64, actual float64, amplitudeX float64, amplitudeY float64, date time.Time, tags Tags) (*Record, error) {
	param := NewCalibratedParameter("Precession Angle", "deg")
	param.SetNominalNumber(nominal)
	param.SetNumber(actual)

	rec, err := newRecord(KindPrecessionAngle, param, date, tags)
	if err != nil {
		return nil, err
	}
	rec.amplitudeX = amplitudeX
	rec.amplitudeY = amplitudeY
	return rec, nil
}

// NewSpotSize - a probe size calibration: nominal and measured spot size in nm
func NewSpotSize(nominal float64, actual float64, date time.Time, tags Tags) (*Record, error) {
	param := NewCalibratedParameter("Spotsize", "nm")
	param.SetNominalNumber(nominal)
	param.SetNumber(actual)
	return newRecord(KindSpotSize, param, date, tags)
}

// NewTargetRecord - a record to resolve against a table: nominal value only,
// the actual value is filled in by the resolver
func NewTargetRecord(kind RecordKind, param *CalibratedParameter, tags Tags) (*Record, error) {
	if !param.Nominal().IsDefined() {
		return nil, &InvalidRecordError{Kind: kind, Reason: "target record needs a nominal value"}
	}

	rec := &Record{
		kind:       kind,
		param:      param,
		tags:       tags.Copy(),
		amplitudeX: math.NaN(),
		amplitudeY: math.NaN(),
	}

	if kind == KindStepSize {
		switch param.Name {
		case "Step X":
			rec.direction = "X"
		case "Step Y":
			rec.direction = "Y"
		default:
			return nil, &InvalidRecordError{Kind: kind, Reason: fmt.Sprintf("cannot infer step direction from \"%v\"", param.Name)}
		}
	}

	return rec, nil
}

func (r *Record) Kind() RecordKind {
	return r.kind
}

func (r *Record) Label() string {
	return r.kind.Label()
}

func (r *Record) Date() time.Time {
	return r.date
}

func (r *Record) Tags() Tags {
	return r.tags
}

func (r *Record) Parameter() *CalibratedParameter {
	return r.param
}

func (r *Record) Scale() *units.Scale {
	return r.scale
}

func (r *Record) SetScale(scale units.Scale) {
	r.scale = &scale
}

// NaturalUnit - the unit a record kind's scale is stored in
func (r *Record) NaturalUnit() units.Unit {
	switch r.kind {
	case KindCameralength:
		return units.InverseAngstrom
	case KindMagnification:
		return units.NanometrePerPixel
	case KindStepSize:
		return units.Nanometre
	case KindPrecessionAngle:
		return units.Degree
	}
	return units.Nanometre
}

func (r *Record) accelerationVoltage() float64 {
	return r.tags[TagAccelerationVoltage].Number()
}

// DeriveScale - fills in the actual value from a scale measured off a
// reference pattern or image. A diffraction scale yields the effective
// cameralength through the detector pixel pitch, an image scale yields the
// actual magnification. Reciprocal scales need the acceleration voltage tag.
func (r *Record) DeriveScale(measured units.Scale, det Detector) error {
	switch r.kind {
	case KindCameralength:
		voltage := r.accelerationVoltage()
		perAngstrom, err := measured.Convert(units.InverseAngstrom, voltage)
		if err != nil {
			return err
		}
		r.scale = &perAngstrom

		cameralength, err := units.CalculateCameraLength(perAngstrom, voltage, det.PixelSizeX)
		if err != nil {
			return err
		}
		r.param.SetNumber(cameralength)
		return nil

	case KindMagnification:
		perPixel, err := measured.Convert(units.NanometrePerPixel, math.NaN())
		if err != nil {
			return err
		}
		if perPixel.Value == 0 {
			return fmt.Errorf("Cannot derive magnification from zero scale")
		}
		r.scale = &perPixel

		// Magnification = physical pixel pitch / real-space size of a pixel
		r.param.SetNumber(det.PixelSizeX * 1e9 / perPixel.Value)
		return nil
	}

	return fmt.Errorf("No scale derivation for %v records", r.Label())
}

// MatchKeys - the state tags that must match exactly for a table record to
// be usable for this record's setting. Voltage and microscope always count,
// the rest depends on what the quantity is sensitive to.
func (r *Record) MatchKeys() []Tag {
	keys := []Tag{TagAccelerationVoltage, TagMicroscope}

	switch r.kind {
	case KindCameralength:
		keys = append(keys, TagCamera)
	case KindMagnification:
		keys = append(keys, TagMode, TagMagMode, TagCamera)
	case KindSpotSize:
		keys = append(keys, TagMode, TagCondenserAperture)
	case KindPrecessionAngle:
		keys = append(keys, TagMode, TagAlpha)
	case KindStepSize:
		keys = append(keys, TagMode)
		// In pure STEM the alpha setting does not affect the scan coils
		if r.tags[TagMode].Text() != "STEM" {
			keys = append(keys, TagAlpha)
		}
	}

	return keys
}

const dateLayout = "2006-01-02"

// AsRow - projects the record to table cells. Tolerant: anything undefined
// is simply left out, a diffraction record without a voltage tag just has no
// mrad/deg projections.
func (r *Record) AsRow() Row {
	row := Row{
		"Label": TextValue(r.Label()),
	}

	if !r.date.IsZero() {
		row["Date"] = TextValue(r.date.Format(dateLayout))
	}

	for tag, value := range r.tags {
		if value.IsDefined() {
			row[string(tag)] = value
		}
	}

	if r.param.Nominal().IsDefined() {
		row[r.param.NominalColumnName()] = r.param.Nominal()
	}
	if r.param.Value().IsDefined() {
		row[r.param.ColumnName()] = r.param.Value()
	}

	switch r.kind {
	case KindCameralength:
		if r.scale != nil {
			perAngstrom, err := r.scale.Convert(units.InverseAngstrom, r.accelerationVoltage())
			if err == nil {
				row["Scale (1/Å)"] = NumberValue(perAngstrom.Value)
			}
			mrad, err := r.scale.Convert(units.Milliradian, r.accelerationVoltage())
			if err == nil {
				row["Scale (mrad)"] = NumberValue(mrad.Value)
			}
			deg, err := r.scale.Convert(units.Degree, r.accelerationVoltage())
			if err == nil {
				row["Scale (deg)"] = NumberValue(deg.Value)
			}
		}

	case KindMagnification:
		if r.scale != nil {
			perPixel, err := r.scale.Convert(units.NanometrePerPixel, math.NaN())
			if err == nil {
				row["Scale (nm)"] = NumberValue(perPixel.Value)
			}
		}

	case KindPrecessionAngle:
		if !math.IsNaN(r.amplitudeX) {
			row["Amplitude X (%)"] = NumberValue(r.amplitudeX)
		}
		if !math.IsNaN(r.amplitudeY) {
			row["Amplitude Y (%)"] = NumberValue(r.amplitudeY)
		}
	}

	return row
}

// Matches - true if every required cell is present, defined and exactly
// equal in this record's row projection
func (r *Record) Matches(required map[string]Value) bool {
	row := r.AsRow()
	for column, want := range required {
		cell, ok := row[column]
		if !ok || !cell.Equal(want) {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	return fmt.Sprintf("%v %v=%v", r.Label(), r.param.ColumnName(), utils.FormatFloat(r.param.Value().Number()))
}
