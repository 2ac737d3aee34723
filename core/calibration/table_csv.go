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
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
)

// TableFromCSV - loads a calibration table from CSV data. First row is the
// header, cells are parsed leniently (blank/None/nan all mean undefined).
// Bad rows are logged and skipped.
func TableFromCSV(data []byte, log logger.ILogger) (*Table, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	// Rows legitimately differ in how many trailing blanks they carry
	reader.FieldsPerRecord = -1

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("Failed to parse calibration CSV: %v", err)
	}

	if len(lines) < 1 {
		return nil, fmt.Errorf("Calibration CSV has no header row")
	}

	header := lines[0]
	rows := []Row{}

	for _, line := range lines[1:] {
		row := Row{}
		for cellIdx, cell := range line {
			if cellIdx >= len(header) {
				break
			}
			value := ParseCell(cell)
			if value.IsDefined() {
				row[strings.TrimSpace(header[cellIdx])] = value
			}
		}
		rows = append(rows, row)
	}

	return FromRows(rows, log), nil
}

// ToCSV - writes the table out rectangularly, columns in table column order
func (t *Table) ToCSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.columns); err != nil {
		return nil, err
	}

	for _, row := range t.ToRows() {
		line := make([]string, 0, len(t.columns))
		for _, column := range t.columns {
			line = append(line, row[column].Text())
		}
		if err := writer.Write(line); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}
