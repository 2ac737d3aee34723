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

package dataconverter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/calibration"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/fileaccess"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/timestamper"
)

const testCalibrationCSV = `Label,Date,Acceleration Voltage (V),Microscope,Camera,Mode,Alpha,Nominal Cameralength (cm),Cameralength (cm),Scale (1/Å),Nominal Step X (nm),Step X (nm),Nominal Step Y (nm),Step Y (nm)
DIFF,2020-11-23,200000,2100F,Merlin,,,8,16.202673,0.013535,,,,
STEP,2020-11-23,200000,2100F,Merlin,NBD,3,,,,5,5.2,,
STEP,2020-11-23,200000,2100F,Merlin,NBD,3,,,,,,5,4.9
`

const testSidecarHDR = "HDR,\nTime and Date Stamp (day, mnth, yr, hr, min, s):\t23/11/2020 13:57:06\nFrames in Acquisition (Number):\t16\nEnd\n"

type recordingWriter struct {
	bucket   string
	outPath  string
	axes     []AxisCalibration
	metadata map[string]interface{}
	calls    int
}

func (w *recordingWriter) Write(bucket string, outPath string, axes []AxisCalibration, metadata map[string]interface{}) error {
	w.bucket = bucket
	w.outPath = outPath
	w.axes = axes
	w.metadata = metadata
	w.calls++
	return nil
}

func makeTestConverter(fs fileaccess.FileAccess, writer ContainerWriter) *Converter {
	return &Converter{
		FS:       fs,
		Log:      &logger.NullLogger{},
		TS:       &timestamper.MockTimeNowStamper{QueuedTimeStamps: []int64{1606139826}},
		Resolver: calibration.NewResolver(&logger.NullLogger{}),
		Writer:   writer,
		Detector: calibration.MerlinEM,
	}
}

func TestConvert(t *testing.T) {
	fs := &fileaccess.MemoryAccess{}
	fs.WriteObject("lab", "session/scan.mib", []byte("not real frame data"))
	fs.WriteObject("lab", "session/scan.hdr", []byte(testSidecarHDR))

	table, err := calibration.TableFromCSV([]byte(testCalibrationCSV), &logger.NullLogger{})
	if err != nil {
		t.Fatalf("TableFromCSV: %v", err)
	}

	params := calibration.NewMicroscopeParameters()
	params.AccelerationVoltage.SetNumber(200000)
	params.Microscope.SetText("2100F")
	params.Camera.SetText("Merlin")
	params.Mode.SetText("NBD")
	params.Alpha.SetNumber(3)
	params.Cameralength.SetNominalNumber(8)
	params.ScanStepX.SetNominalNumber(5)
	params.ScanStepY.SetNominalNumber(5)

	writer := &recordingWriter{}
	converter := makeTestConverter(fs, writer)

	job := JobParams{
		Bucket:   "lab",
		DataPath: "session/scan.mib",
		OutPath:  "session/scan.hspy",
		FramesX:  4,
		FramesY:  4,
	}

	report, err := converter.Convert(job, params, table)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if writer.calls != 1 {
		t.Fatalf("Writer called %v times", writer.calls)
	}

	// Axes: y, x navigation then ky, kx signal (diffraction scale resolved)
	if len(writer.axes) != 4 {
		t.Fatalf("Axis count: %v", len(writer.axes))
	}
	if writer.axes[0].Name != "y" || !writer.axes[0].Navigate || writer.axes[0].Size != 4 {
		t.Errorf("Navigation axis: %+v", writer.axes[0])
	}
	if writer.axes[1].Scale != 5.2 || writer.axes[1].Units != "nm" {
		t.Errorf("Calibrated step axis: %+v", writer.axes[1])
	}
	if writer.axes[2].Name != "ky" || writer.axes[2].Size != 256 {
		t.Errorf("Signal axis: %+v", writer.axes[2])
	}
	if writer.axes[3].Scale != 0.013535 || writer.axes[3].Units != "1/Å" {
		t.Errorf("Signal scale: %+v", writer.axes[3])
	}

	// Metadata carries acquisition state and the sidecar
	if _, ok := writer.metadata["merlin"]; !ok {
		t.Errorf("Metadata missing sidecar section")
	}
	acq, ok := writer.metadata["acquisition"].(map[string]interface{})
	if !ok {
		t.Fatalf("Metadata missing acquisition section")
	}
	if _, ok := acq["cameralength"]; !ok {
		t.Errorf("Acquisition metadata missing cameralength")
	}

	// The report resolved what the table covers
	for _, want := range []string{"Cameralength", "Step X", "Step Y", "Diffraction Scale"} {
		found := false
		for _, name := range report.Resolved {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("%v not resolved, report:\n%v", want, report)
		}
	}

	// Summary landed next to the output with the mock timestamp
	summaryData, err := fs.ReadObject("lab", "session/scan-summary.json")
	if err != nil {
		t.Fatalf("Summary not written: %v", err)
	}

	var summary map[string]interface{}
	if err := json.Unmarshal(summaryData, &summary); err != nil {
		t.Fatalf("Summary is not JSON: %v", err)
	}
	if summary["creationUnixTimeSec"] != 1606139826.0 {
		t.Errorf("Summary timestamp: %v", summary["creationUnixTimeSec"])
	}
	if summary["detector"] != "Merlin" {
		t.Errorf("Summary detector: %v", summary["detector"])
	}
}

func TestConvertWithoutSidecar(t *testing.T) {
	fs := &fileaccess.MemoryAccess{}
	fs.WriteObject("lab", "session/frame.mib", []byte("not real frame data"))

	table, err := calibration.TableFromCSV([]byte(testCalibrationCSV), &logger.NullLogger{})
	if err != nil {
		t.Fatalf("TableFromCSV: %v", err)
	}

	// Single frame, no scan, nothing calibrated
	params := calibration.NewMicroscopeParameters()

	writer := &recordingWriter{}
	converter := makeTestConverter(fs, writer)

	job := JobParams{
		Bucket:   "lab",
		DataPath: "session/frame.mib",
		OutPath:  "session/frame.hspy",
	}

	report, err := converter.Convert(job, params, table)
	if err != nil {
		t.Fatalf("Convert without sidecar: %v", err)
	}
	if len(report.Resolved) != 0 {
		t.Errorf("Nothing should resolve: %v", report.Resolved)
	}

	// Uncalibrated signal axes fall back to pixels
	if len(writer.axes) != 2 {
		t.Fatalf("Axis count: %v", len(writer.axes))
	}
	if writer.axes[0].Name != "y" || writer.axes[0].Units != "px" || writer.axes[0].Scale != 1 {
		t.Errorf("Fallback axis: %+v", writer.axes[0])
	}
	if _, ok := writer.metadata["merlin"]; ok {
		t.Errorf("No sidecar section expected")
	}
}

func TestSidecarAndSummaryPaths(t *testing.T) {
	if sidecarPath("a/b/scan.mib") != "a/b/scan.hdr" {
		t.Errorf("sidecarPath: %v", sidecarPath("a/b/scan.mib"))
	}
	if !strings.HasSuffix(summaryPath("a/b/scan.hspy"), "scan-summary.json") {
		t.Errorf("summaryPath: %v", summaryPath("a/b/scan.hspy"))
	}
}
