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
	"strings"
)

// IParameter - common surface of plain and calibrated parameters, used when
// projecting microscope state to metadata
type IParameter interface {
	ColumnName() string
	DictKey() string
	IsDefined() bool
	AsDict() map[string]interface{}
}

// Parameter - a named microscope quantity with units, e.g. "Mode" or
// "Exposure Time (ms)"
type Parameter struct {
	Name  string
	Units string

	value Value
}

func NewParameter(name string, units string) *Parameter {
	return &Parameter{Name: name, Units: units, value: NumberValue(math.NaN())}
}

// ColumnName - the table column header for this parameter. State parameters
// without units ("Mode", "Alpha") have plain headers, quantities carry a
// unit bracket
func (p *Parameter) ColumnName() string {
	if p.Units == "" {
		return p.Name
	}
	return p.Name + " (" + p.Units + ")"
}

func (p *Parameter) DictKey() string {
	return strings.ToLower(strings.ReplaceAll(p.Name, " ", "_"))
}

func (p *Parameter) Value() Value {
	return p.value
}

func (p *Parameter) SetValue(value Value) {
	p.value = value
}

func (p *Parameter) SetNumber(num float64) {
	p.value = NumberValue(num)
}

func (p *Parameter) SetText(text string) {
	p.value = TextValue(text)
}

func (p *Parameter) IsDefined() bool {
	return p.value.IsDefined()
}

func (p *Parameter) AsDict() map[string]interface{} {
	return map[string]interface{}{
		"units": p.Units,
		"value": dictValue(p.value),
	}
}

// dictValue - undefined becomes nil so projections stay JSON-safe, NaN is
// not representable there
func dictValue(v Value) interface{} {
	if !v.IsDefined() {
		return nil
	}
	if v.IsNumber() {
		return v.Number()
	}
	return v.Text()
}

// CalibratedParameter - a parameter with a nominal (dialled-in) value and an
// actual (calibrated) value. The nominal value is what the microscope UI
// reported, the actual value comes from a calibration table. NaN means
// unset, zero is a legitimate value.
type CalibratedParameter struct {
	Parameter

	nominal Value
}

func NewCalibratedParameter(name string, units string) *CalibratedParameter {
	return &CalibratedParameter{
		Parameter: Parameter{Name: name, Units: units, value: NumberValue(math.NaN())},
		nominal:   NumberValue(math.NaN()),
	}
}

// ColumnName - calibrated quantities always carry the unit bracket, even a
// unitless one like "Magnification ()", so quantity columns can never
// collide with state columns
func (p *CalibratedParameter) ColumnName() string {
	return p.Name + " (" + p.Units + ")"
}

func (p *CalibratedParameter) NominalColumnName() string {
	return "Nominal " + p.ColumnName()
}

func (p *CalibratedParameter) Nominal() Value {
	return p.nominal
}

func (p *CalibratedParameter) SetNominal(value Value) {
	p.nominal = value
}

func (p *CalibratedParameter) SetNominalNumber(num float64) {
	p.nominal = NumberValue(num)
}

// IsDefined - defined if either side is set
func (p *CalibratedParameter) IsDefined() bool {
	return p.nominal.IsDefined() || p.value.IsDefined()
}

func (p *CalibratedParameter) AsDict() map[string]interface{} {
	result := p.Parameter.AsDict()
	result["nominal"] = dictValue(p.nominal)
	return result
}
