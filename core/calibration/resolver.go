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

	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/units"
)

// TieBreakPolicy - which record wins when several match all keys
type TieBreakPolicy int

const (
	// MostRecentByDate - newest calibration wins, equal dates (and records
	// without a date) fall back to last in table order
	MostRecentByDate TieBreakPolicy = iota

	// TableOrder - plain last match in table order wins
	TableOrder
)

// Resolver - looks calibration records up in a table by exact key match
type Resolver struct {
	TieBreak TieBreakPolicy
	Log      logger.ILogger
}

func NewResolver(log logger.ILogger) *Resolver {
	return &Resolver{TieBreak: MostRecentByDate, Log: log}
}

// requiredCells - builds the exact-match query for a target record: its
// nominal value column plus the match-key tags
func requiredCells(target *Record) (map[string]Value, error) {
	required := map[string]Value{
		target.param.NominalColumnName(): target.param.Nominal(),
	}

	for _, tag := range target.MatchKeys() {
		value, ok := target.tags[tag]
		if !ok || !value.IsDefined() {
			return nil, fmt.Errorf("Cannot resolve %v: match key \"%v\" is not set", target.param.Name, tag)
		}
		required[string(tag)] = value
	}

	return required, nil
}

func (r *Resolver) pick(candidates []*Record) *Record {
	if r.TieBreak == TableOrder {
		return candidates[len(candidates)-1]
	}

	// MostRecentByDate: >= keeps the later table entry on equal dates
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if !candidate.Date().Before(best.Date()) {
			best = candidate
		}
	}
	return best
}

// Resolve - fills in the target record's actual value (and scale, if the
// chosen record has one) from the table. The nominal value and every match
// key must agree exactly with a table record; near misses do not count.
// Resolving the same target against the same table twice gives the same
// result, the actual value is simply overwritten.
func (r *Resolver) Resolve(table *Table, target *Record) error {
	required, err := requiredCells(target)
	if err != nil {
		return err
	}

	candidates := table.Select(target.kind, required)
	if len(candidates) == 0 {
		return &NoCalibrationFoundError{Parameter: target.param.Name, Required: required}
	}

	chosen := r.pick(candidates)
	if len(candidates) > 1 {
		r.Log.Debugf("%v matching calibrations for %v, picked entry dated %v",
			len(candidates), target.param.Name, chosen.Date().Format(dateLayout))
	}

	// Harmonize units if the table entry is in a different unit
	value := chosen.param.Value()
	if value.IsNumber() && chosen.param.Units != target.param.Units {
		fromUnit, fromErr := units.ParseUnit(chosen.param.Units)
		toUnit, toErr := units.ParseUnit(target.param.Units)
		if fromErr != nil || toErr != nil {
			return fmt.Errorf("Cannot harmonize units \"%v\" and \"%v\" for %v",
				chosen.param.Units, target.param.Units, target.param.Name)
		}

		converted, err := units.Scale{Value: value.Number(), Unit: fromUnit}.Convert(toUnit, target.accelerationVoltage())
		if err != nil {
			return err
		}
		value = NumberValue(converted.Value)
	}

	target.param.SetValue(value)

	if chosen.scale != nil {
		scale, err := chosen.scale.Convert(target.NaturalUnit(), target.accelerationVoltage())
		if err != nil {
			return err
		}
		target.scale = &scale
	}

	return nil
}

// ResolveCell - looks up a single cell of the best record of a kind
// matching the required cells. Used for the measured scale columns, which
// live on calibration rows but are not calibrated parameters themselves.
func (r *Resolver) ResolveCell(table *Table, kind RecordKind, column string, required map[string]Value) (Value, error) {
	candidates := table.Select(kind, required)
	if len(candidates) == 0 {
		return Value{}, &NoCalibrationFoundError{Parameter: column, Required: required}
	}

	chosen := r.pick(candidates)
	cell, ok := chosen.AsRow()[column]
	if !ok || !cell.IsDefined() {
		return Value{}, &NoCalibrationFoundError{Parameter: column, Required: required}
	}

	return cell, nil
}
