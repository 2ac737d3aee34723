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

import "fmt"

// InvalidRecordError - a calibration record must carry at least one of
// nominal and actual value, otherwise it can neither be looked up nor
// provide anything
type InvalidRecordError struct {
	Kind   RecordKind
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("Invalid %v record: %v", e.Kind.Label(), e.Reason)
}

// UnrecognizedRowError - a table row that matches no known record kind.
// Guessing a kind could silently apply a diffraction calibration to an
// image, so classification fails closed.
type UnrecognizedRowError struct {
	RowIdx int
	Reason string
}

func (e *UnrecognizedRowError) Error() string {
	return fmt.Sprintf("Unrecognised calibration row %v: %v", e.RowIdx, e.Reason)
}

// NoCalibrationFoundError - no table entry matched all the required keys.
// Expected in day-to-day use (not every setting combination is calibrated),
// so callers collect these rather than abort.
type NoCalibrationFoundError struct {
	Parameter string
	Required  map[string]Value
}

func (e *NoCalibrationFoundError) Error() string {
	return fmt.Sprintf("No calibration found for %v", e.Parameter)
}
