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
	"math"
	"time"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/units"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/utils"
)

// Row - one calibration table row, keyed by column header. Cells that are
// not present are simply absent from the map.
type Row map[string]Value

// Table - an ordered collection of calibration records of mixed kinds.
// Append-only: records are never edited or removed, a re-calibration is a
// new row. The column set only ever grows as records bring new columns in.
type Table struct {
	records []*Record
	columns []string
}

func NewTable() *Table {
	return &Table{}
}

func (t *Table) Length() int {
	return len(t.records)
}

func (t *Table) Records() []*Record {
	return t.records
}

func (t *Table) Columns() []string {
	return t.columns
}

// Fixed output order for the columns shared by all kinds, anything else
// follows alphabetically
var preferredColumnOrder = []string{
	"Label",
	"Date",
	string(TagAccelerationVoltage),
	string(TagMicroscope),
	string(TagCamera),
	string(TagMode),
	string(TagMagMode),
	string(TagAlpha),
	string(TagSpot),
	string(TagCondenserAperture),
}

func orderedRowColumns(row Row) []string {
	result := []string{}
	seen := map[string]bool{}

	for _, column := range preferredColumnOrder {
		if _, ok := row[column]; ok {
			result = append(result, column)
			seen[column] = true
		}
	}

	for _, column := range utils.SortedMapKeys(row) {
		if !seen[column] {
			result = append(result, column)
		}
	}

	return result
}

func rowsEqual(a Row, b Row) bool {
	if len(a) != len(b) {
		return false
	}
	for column, cell := range a {
		if !cell.Equal(b[column]) {
			return false
		}
	}
	return true
}

// Append - adds a record, growing the column superset. Set-like: appending
// a record identical to one already present is a no-op, re-importing the
// same spreadsheet twice must not double the table.
func (t *Table) Append(rec *Record) {
	row := rec.AsRow()

	for _, existing := range t.records {
		if rowsEqual(existing.AsRow(), row) {
			return
		}
	}

	t.records = append(t.records, rec)

	present := map[string]bool{}
	for _, column := range t.columns {
		present[column] = true
	}
	for _, column := range orderedRowColumns(row) {
		if !present[column] {
			t.columns = append(t.columns, column)
		}
	}
}

// ToRows - projects every record to a row. Rows only carry the cells the
// record defines; pair with Columns() for a rectangular layout.
func (t *Table) ToRows() []Row {
	result := make([]Row, 0, len(t.records))
	for _, rec := range t.records {
		result = append(result, rec.AsRow())
	}
	return result
}

// AsRows - rectangular projection with plain Go values, for handing rows to
// a database driver. ignoreNaNs drops undefined cells instead of writing
// nils.
func (t *Table) AsRows(ignoreNaNs bool) []map[string]interface{} {
	result := []map[string]interface{}{}

	for _, row := range t.ToRows() {
		out := map[string]interface{}{}
		for _, column := range t.columns {
			cell, ok := row[column]
			if !ok || !cell.IsDefined() {
				if !ignoreNaNs {
					out[column] = nil
				}
				continue
			}
			if cell.IsNumber() {
				out[column] = cell.Number()
			} else {
				out[column] = cell.Text()
			}
		}
		result = append(result, out)
	}

	return result
}

// Filter - records passing the predicate, in table order
func (t *Table) Filter(pred func(*Record) bool) []*Record {
	result := []*Record{}
	for _, rec := range t.records {
		if pred(rec) {
			result = append(result, rec)
		}
	}
	return result
}

// Select - records of the given kind whose row projection matches all
// required cells exactly, in table order
func (t *Table) Select(kind RecordKind, required map[string]Value) []*Record {
	return t.Filter(func(rec *Record) bool {
		return rec.kind == kind && rec.Matches(required)
	})
}

// Identifying quantity columns per kind, used when a row has no Label cell.
// Old spreadsheets predate the Label column.
var classifyColumns = []struct {
	kind    RecordKind
	columns []string
}{
	{KindCameralength, []string{"Cameralength (cm)", "Nominal Cameralength (cm)"}},
	{KindMagnification, []string{"Magnification ()", "Nominal Magnification ()"}},
	{KindStepSize, []string{"Step X (nm)", "Nominal Step X (nm)", "Step Y (nm)", "Nominal Step Y (nm)"}},
	{KindPrecessionAngle, []string{"Precession Angle (deg)", "Nominal Precession Angle (deg)"}},
	{KindSpotSize, []string{"Spotsize (nm)", "Nominal Spotsize (nm)"}},
}

func classifyRow(row Row, rowIdx int) (RecordKind, error) {
	if label, ok := row["Label"]; ok && label.IsDefined() {
		kind, err := KindFromLabel(label.Text())
		if err != nil {
			return kind, &UnrecognizedRowError{RowIdx: rowIdx, Reason: err.Error()}
		}
		return kind, nil
	}

	for _, entry := range classifyColumns {
		for _, column := range entry.columns {
			if cell, ok := row[column]; ok && cell.IsDefined() {
				return entry.kind, nil
			}
		}
	}

	return KindCameralength, &UnrecognizedRowError{RowIdx: rowIdx, Reason: "no label and no identifying quantity column"}
}

var rowDateLayouts = []string{dateLayout, "02.01.2006", "02/01/2006"}

func parseRowDate(row Row) time.Time {
	cell, ok := row["Date"]
	if !ok || !cell.IsDefined() {
		return time.Time{}
	}

	for _, layout := range rowDateLayouts {
		date, err := time.Parse(layout, cell.Text())
		if err == nil {
			return date
		}
	}
	return time.Time{}
}

func rowTags(row Row) Tags {
	tags := Tags{}
	for _, tag := range []Tag{
		TagAccelerationVoltage, TagMicroscope, TagCamera, TagMode,
		TagMagMode, TagAlpha, TagSpot, TagCondenserAperture,
	} {
		if cell, ok := row[string(tag)]; ok && cell.IsDefined() {
			tags[tag] = cell
		}
	}
	return tags
}

func cellNumber(row Row, column string) float64 {
	cell, ok := row[column]
	if !ok {
		return math.NaN()
	}
	return cell.Number()
}

func recordFromRow(kind RecordKind, row Row) (*Record, error) {
	date := parseRowDate(row)
	tags := rowTags(row)

	switch kind {
	case KindCameralength:
		rec, err := NewCameralength(
			cellNumber(row, "Nominal Cameralength (cm)"),
			cellNumber(row, "Cameralength (cm)"),
			date, tags)
		if err != nil {
			return nil, err
		}
		if scale := cellNumber(row, "Scale (1/Å)"); !math.IsNaN(scale) {
			rec.SetScale(units.Scale{Value: scale, Unit: units.InverseAngstrom})
		}
		return rec, nil

	case KindMagnification:
		rec, err := NewMagnification(
			cellNumber(row, "Nominal Magnification ()"),
			cellNumber(row, "Magnification ()"),
			date, tags)
		if err != nil {
			return nil, err
		}
		if scale := cellNumber(row, "Scale (nm)"); !math.IsNaN(scale) {
			rec.SetScale(units.Scale{Value: scale, Unit: units.NanometrePerPixel})
		}
		return rec, nil

	case KindStepSize:
		direction := "X"
		if _, ok := row["Step Y (nm)"]; ok {
			direction = "Y"
		} else if _, ok := row["Nominal Step Y (nm)"]; ok {
			direction = "Y"
		}
		return NewStepSize(
			cellNumber(row, "Nominal Step "+direction+" (nm)"),
			cellNumber(row, "Step "+direction+" (nm)"),
			direction, date, tags)

	case KindPrecessionAngle:
		return NewPrecessionAngle(
			cellNumber(row, "Nominal Precession Angle (deg)"),
			cellNumber(row, "Precession Angle (deg)"),
			cellNumber(row, "Amplitude X (%)"),
			cellNumber(row, "Amplitude Y (%)"),
			date, tags)

	case KindSpotSize:
		return NewSpotSize(
			cellNumber(row, "Nominal Spotsize (nm)"),
			cellNumber(row, "Spotsize (nm)"),
			date, tags)
	}

	return nil, &InvalidRecordError{Kind: kind, Reason: "unknown record kind"}
}

// FromRows - builds a table from raw rows. Rows that cannot be classified
// or that make an invalid record are logged and skipped, the rest of the
// table still loads. One bad row in a shared spreadsheet must not take all
// calibrations down with it.
func FromRows(rows []Row, log logger.ILogger) *Table {
	table := NewTable()

	for rowIdx, row := range rows {
		kind, err := classifyRow(row, rowIdx)
		if err != nil {
			log.Errorf("Skipping calibration row %v: %v", rowIdx, err)
			continue
		}

		rec, err := recordFromRow(kind, row)
		if err != nil {
			log.Errorf("Skipping calibration row %v: %v", rowIdx, err)
			continue
		}

		table.Append(rec)
	}

	log.Debugf("Loaded %v calibration records from %v rows", table.Length(), len(rows))
	return table
}
