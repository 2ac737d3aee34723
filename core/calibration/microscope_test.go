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
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
)

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func TestSetValuesFromCalibrationTable(t *testing.T) {
	table := loadTestTable(t)
	resolver := NewResolver(&logger.NullLogger{})

	// Acquisition-time state: SAD pattern at nominal 8 cm on the 2100F
	params := NewMicroscopeParameters()
	params.AccelerationVoltage.SetNumber(200000)
	params.Microscope.SetText("2100F")
	params.Camera.SetText("Merlin")
	params.Cameralength.SetNominalNumber(8)

	report := params.SetValuesFromCalibrationTable(table, resolver)

	if !contains(report.Resolved, "Cameralength") {
		t.Errorf("Cameralength not resolved, report:\n%v", report)
	}
	if !scalar.EqualWithinRel(params.Cameralength.Value().Number(), 16.202673, 1e-9) {
		t.Errorf("Cameralength actual: %v", params.Cameralength.Value().Number())
	}

	// Diffraction scale comes off the same calibration row
	if !contains(report.Resolved, "Diffraction Scale") {
		t.Errorf("Diffraction scale not resolved, report:\n%v", report)
	}
	if !scalar.EqualWithinRel(params.DiffractionScale.Value().Number(), 0.013535, 1e-9) {
		t.Errorf("Diffraction scale: %v", params.DiffractionScale.Value().Number())
	}

	// No nominal magnification: skipped, not an error
	if !contains(report.Skipped, "Magnification (no nominal value)") {
		t.Errorf("Magnification should be skipped, report:\n%v", report)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Unexpected errors: %v", report.Errors)
	}
}

func TestSetValuesCollectsMisses(t *testing.T) {
	table := loadTestTable(t)
	resolver := NewResolver(&logger.NullLogger{})

	// Nominal 30 cm was never calibrated
	params := NewMicroscopeParameters()
	params.AccelerationVoltage.SetNumber(200000)
	params.Microscope.SetText("2100F")
	params.Camera.SetText("Merlin")
	params.Cameralength.SetNominalNumber(30)

	report := params.SetValuesFromCalibrationTable(table, resolver)

	if !contains(report.NotFound, "Cameralength") {
		t.Errorf("Expected cameralength miss, report:\n%v", report)
	}
	if len(report.Errors) != 0 {
		t.Errorf("A lookup miss is not an error: %v", report.Errors)
	}
	if params.Cameralength.Value().IsDefined() {
		t.Errorf("Missed lookup must not set an actual value")
	}

	// The nominal value is still available for metadata
	if !params.Cameralength.IsDefined() {
		t.Errorf("Nominal-only parameter still counts as defined")
	}
}

func TestSetValuesSkipsWithoutTags(t *testing.T) {
	table := loadTestTable(t)
	resolver := NewResolver(&logger.NullLogger{})

	// Nominal value but no state at all: everything skips, nothing errors
	params := NewMicroscopeParameters()
	params.Cameralength.SetNominalNumber(8)

	report := params.SetValuesFromCalibrationTable(table, resolver)
	if len(report.Resolved) != 0 {
		t.Errorf("Nothing should resolve without state tags: %v", report.Resolved)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Missing state is not an error: %v", report.Errors)
	}
}

func TestSetValuesIsIdempotent(t *testing.T) {
	table := loadTestTable(t)
	resolver := NewResolver(&logger.NullLogger{})

	params := NewMicroscopeParameters()
	params.AccelerationVoltage.SetNumber(200000)
	params.Microscope.SetText("2100F")
	params.Camera.SetText("Merlin")
	params.Cameralength.SetNominalNumber(8)

	params.SetValuesFromCalibrationTable(table, resolver)
	first := params.Cameralength.Value().Number()

	params.SetValuesFromCalibrationTable(table, resolver)
	if params.Cameralength.Value().Number() != first {
		t.Errorf("Second pass changed the value: %v -> %v", first, params.Cameralength.Value().Number())
	}
}

func TestGetDefinedParameters(t *testing.T) {
	params := NewMicroscopeParameters()
	params.AccelerationVoltage.SetNumber(200000)
	params.Microscope.SetText("2100F")
	params.Cameralength.SetNominalNumber(8)

	defined := params.GetDefinedParameters()
	if len(defined) != 3 {
		t.Fatalf("Expected 3 defined parameters, got %v", len(defined))
	}

	metadata := params.AsMetadata()
	if len(metadata) != 3 {
		t.Fatalf("Metadata size: %v", len(metadata))
	}

	voltage, ok := metadata["acceleration_voltage"].(map[string]interface{})
	if !ok {
		t.Fatalf("Missing acceleration_voltage, have: %v", metadata)
	}
	if voltage["value"] != 200000.0 || voltage["units"] != "V" {
		t.Errorf("Voltage metadata: %v", voltage)
	}

	cameralength, ok := metadata["cameralength"].(map[string]interface{})
	if !ok {
		t.Fatalf("Missing cameralength, have: %v", metadata)
	}
	if cameralength["nominal"] != 8.0 {
		t.Errorf("Cameralength metadata: %v", cameralength)
	}

	row := params.AsRow()
	if !row["Nominal Cameralength (cm)"].Equal(NumberValue(8)) {
		t.Errorf("Row projection: %v", row)
	}
	if _, ok := row["Cameralength (cm)"]; ok {
		t.Errorf("Undefined actual value must not appear in the row")
	}
}
