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
	"strconv"
	"strings"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/utils"
)

// Value - one cell of a calibration table. Either a number, a piece of text
// (microscope name, mode...) or undefined. Table cells are frequently blank,
// so undefined is a first-class state: an undefined cell never matches
// anything and is skipped on output.
type Value struct {
	text  string
	num   float64
	isNum bool
}

func TextValue(text string) Value {
	return Value{text: text}
}

func NumberValue(num float64) Value {
	return Value{num: num, isNum: true}
}

// ParseCell - interprets a raw table cell. Blank and the usual spreadsheet
// spellings of "no value" come back undefined, anything that parses as a
// float is a number, the rest is text.
func ParseCell(cell string) Value {
	cell = strings.TrimSpace(cell)
	if cell == "" || cell == "None" || cell == "none" || cell == "nan" || cell == "NaN" {
		return Value{}
	}

	num, err := strconv.ParseFloat(cell, 64)
	if err == nil {
		return NumberValue(num)
	}

	return TextValue(cell)
}

func (v Value) IsNumber() bool {
	return v.isNum
}

// Number - the numeric value, NaN if this is text or undefined
func (v Value) Number() float64 {
	if !v.isNum {
		return math.NaN()
	}
	return v.num
}

// Text - the cell as written to a table. Numbers are formatted the way we
// format all floats, undefined is an empty string.
func (v Value) Text() string {
	if v.isNum {
		if math.IsNaN(v.num) {
			return ""
		}
		return utils.FormatFloat(v.num)
	}
	return v.text
}

func (v Value) IsDefined() bool {
	if v.isNum {
		return !math.IsNaN(v.num)
	}
	return v.text != "" && v.text != "None"
}

// Equal - exact equality, no tolerance. Matching a calibration to the wrong
// voltage or cameralength is worse than not matching at all, so 199999 V
// never matches 200000 V. NaN equals nothing, undefined equals nothing.
func (v Value) Equal(other Value) bool {
	if !v.IsDefined() || !other.IsDefined() {
		return false
	}
	if v.isNum != other.isNum {
		return false
	}
	if v.isNum {
		return v.num == other.num
	}
	return v.text == other.text
}

func (v Value) String() string {
	if !v.IsDefined() {
		return "<undefined>"
	}
	return v.Text()
}
