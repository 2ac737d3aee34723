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
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// ConverterConfig - converter app settings, read from a JSON file with
// env-var overrides. Acquisition PCs ship a config file, one-off runs can
// override single fields through MIB2HSPY_CONFIG_<FieldName>.
type ConverterConfig struct {
	// Where the shared calibration table lives: local path or s3://bucket/path
	CalibrationTablePath string

	// Mongo-backed calibration store, empty means CSV only
	MongoSecret     string
	MongoDatabase   string
	MongoCollection string

	// Instrument profile YAML to apply before conversion
	InstrumentProfile string

	OutputPath string

	LogLevel string
}

func NewConfigFromFile(configFilePath string) (ConverterConfig, error) {
	var cfg ConverterConfig

	configJson, err := os.ReadFile(configFilePath)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file at %s", configFilePath)
	}
	return buildConfig(configJson)
}

func buildConfig(configJson []byte) (ConverterConfig, error) {
	var cfg ConverterConfig

	err := json.Unmarshal(configJson, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config: %v", err)
	}

	// Override Config with any values explicitly set in Env Vars (MIB2HSPY_CONFIG_*)
	reflection := reflect.ValueOf(&cfg).Elem()
	for i := 0; i < reflection.NumField(); i++ {
		fieldName := reflection.Type().Field(i).Name
		field := reflection.Field(i)
		if val, present := os.LookupEnv(fmt.Sprintf("MIB2HSPY_CONFIG_%s", fieldName)); present {
			switch field.Kind() {
			case reflect.String:
				field.SetString(val)
			case reflect.Int, reflect.Int32:
				intVal, err := strconv.Atoi(val)
				if err != nil {
					fmt.Printf("Could not cast value MIB2HSPY_CONFIG_%s=%s to Int", fieldName, val)
					continue
				}
				field.SetInt(int64(intVal))
			}
		}
	}
	return cfg, nil
}
