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
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/calibration"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/utils"
)

// The session summary written next to every conversion output. Goes through
// structpb so the summary is the same shape whether it is served from an
// API later or read off disk.

func stringList(items []string) []interface{} {
	result := make([]interface{}, 0, len(items))
	for _, item := range items {
		result = append(result, item)
	}
	return result
}

func (c *Converter) writeSummary(job JobParams, report *calibration.Report, axes []AxisCalibration) error {
	axisList := []interface{}{}
	for _, axis := range axes {
		axisList = append(axisList, map[string]interface{}{
			"name":     axis.Name,
			"size":     axis.Size,
			"scale":    axis.Scale,
			"units":    axis.Units,
			"offset":   axis.Offset,
			"navigate": axis.Navigate,
		})
	}

	errorStrings := []string{}
	for _, err := range report.Errors {
		errorStrings = append(errorStrings, err.Error())
	}

	summary := map[string]interface{}{
		"dataPath": job.DataPath,
		"outPath":  job.OutPath,
		"detector": c.Detector.Name,
		"axes":     axisList,
		"calibration": map[string]interface{}{
			"resolved": stringList(report.Resolved),
			"skipped":  stringList(report.Skipped),
			"notFound": stringList(report.NotFound),
			"errors":   stringList(errorStrings),
		},
		"creationUnixTimeSec": c.TS.GetTimeNowSec(),
	}

	summaryStruct, err := structpb.NewStruct(summary)
	if err != nil {
		return err
	}

	data, err := protojson.MarshalOptions{Multiline: true, Indent: utils.PrettyPrintIndentForJSON}.Marshal(summaryStruct)
	if err != nil {
		return err
	}

	return c.FS.WriteObject(job.Bucket, summaryPath(job.OutPath), data)
}
