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

package medipix

import (
	"strings"
	"testing"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
)

const testHDR = `HDR,	
Time and Date Stamp (day, mnth, yr, hr, min, s):	23/11/2020 13:57:06
Chip ID:	W529_F5
Chip Type (Medipix 3.0, Medipix 3.1, Medipix 3RX):	Medipix 3RX
Assembly Size (NX1, 2X2):	   1x1
Chip Mode  (SPM, CSM, CM, CSCM):	SPM
Counter Depth (number):	12
Gain:	SLGM
Active Counters:	Alternating
Thresholds (keV):	[1.200000E+0,5.110000E+2,5.110000E+2]
DACs:	[045,511,000,000]
bpc File:	c:\MERLIN_Quad_Config\W529_F5\W529_F5_SPM.bpc,
DAC File:	c:\MERLIN_Quad_Config\W529_F5\W529_F5_SPM.dacs,
Gap Fill Mode:	Distribute
Flat Field File:	None
Dead Time File:	Dummy (C:\<NUL>\)
Acquisition Type (Normal, Th_scan, Config):	Normal
Frames in Acquisition (Number):	40000
Frames per Trigger (Number):	1
Trigger Start (Positive, Negative, Internal):	Rising Edge LVDS
Trigger Stop (Positive, Negative, Internal):	Internal
Sensor Bias (V):	120 V
Sensor Polarity (Positive, Negative):	Positive
Temperature (C):	Board Temp 0.000000 Deg C
Humidity (%):	Board Humidity 0.000000
Medipix Clock (MHz):	120MHz
Readout System:	Merlin Quad
Software Version:	0.67.0.9
End	
`

func TestParseHDR(t *testing.T) {
	content, err := ParseHDR([]byte(testHDR), &logger.NullLogger{})
	if err != nil {
		t.Fatalf("ParseHDR: %v", err)
	}

	if content.ChipID != "W529_F5" {
		t.Errorf("ChipID: %v", content.ChipID)
	}
	if content.CounterDepth != 12 {
		t.Errorf("CounterDepth: %v", content.CounterDepth)
	}
	if content.FramesInAcquisition != 40000 {
		t.Errorf("FramesInAcquisition: %v", content.FramesInAcquisition)
	}
	if content.FramesPerTrigger != 1 {
		t.Errorf("FramesPerTrigger: %v", content.FramesPerTrigger)
	}
	if content.ChipMode != "SPM" {
		t.Errorf("ChipMode: %v", content.ChipMode)
	}
	if content.BPCFile != `c:\MERLIN_Quad_Config\W529_F5\W529_F5_SPM.bpc` {
		t.Errorf("BPCFile: %v", content.BPCFile)
	}

	stamp, err := content.AcquisitionTime()
	if err != nil {
		t.Fatalf("AcquisitionTime: %v", err)
	}
	// Day-first: 23rd of November, not month 23
	if stamp.Year() != 2020 || stamp.Month() != 11 || stamp.Day() != 23 {
		t.Errorf("Timestamp: %v", stamp)
	}
}

func TestParseHDRUnknownKey(t *testing.T) {
	withExtra := strings.Replace(testHDR, "Readout System:	Merlin Quad\n",
		"Readout System:	Merlin Quad\nShiny New Setting:	42\n", 1)

	content, err := ParseHDR([]byte(withExtra), &logger.NullLogger{})
	if err != nil {
		t.Fatalf("Unknown keys must not fail the parse: %v", err)
	}
	if content.SoftwareVersion != "0.67.0.9" {
		t.Errorf("Fields after an unknown key should still load: %v", content.SoftwareVersion)
	}
}

func TestParseHDRMalformed(t *testing.T) {
	// Missing HDR marker
	_, err := ParseHDR([]byte("Chip ID:\tW529_F5\nEnd\n"), &logger.NullLogger{})
	if err == nil {
		t.Errorf("Expected error for missing HDR marker")
	}

	// Missing End marker
	_, err = ParseHDR([]byte("HDR,\nChip ID:\tW529_F5\n"), &logger.NullLogger{})
	if err == nil {
		t.Errorf("Expected error for missing End marker")
	}

	// A line with no separator
	_, err = ParseHDR([]byte("HDR,\nthis is not a key value pair\nEnd\n"), &logger.NullLogger{})
	if err == nil {
		t.Errorf("Expected error for malformed line")
	}
}
