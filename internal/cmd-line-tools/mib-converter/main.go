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

// Command line converter: takes one .mib acquisition, the shared calibration
// table (local CSV, S3 CSV or Mongo collection) and the acquisition-time
// microscope state, resolves calibrations and writes the axis/metadata
// container plus a session summary. Exit code 0 even when some parameters
// stay uncalibrated, partial calibration is the normal case.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/awsutil"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/calibration"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/calibstore"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/fileaccess"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/mongoDBConnection"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/timestamper"
	"github.com/TEM-Gemini-Centre/mib2hspy/dataconverter"
)

// jsonContainerWriter - writes the axis calibrations and metadata as a JSON
// document next to the output path. Stands in for a real container codec,
// downstream tooling attaches the frame data.
type jsonContainerWriter struct {
	fs fileaccess.FileAccess
}

func (w *jsonContainerWriter) Write(bucket string, outPath string, axes []dataconverter.AxisCalibration, metadata map[string]interface{}) error {
	doc := map[string]interface{}{
		"axes":     axes,
		"metadata": metadata,
	}
	return w.fs.WriteJSON(bucket, outPath, doc)
}

func main() {
	var configPath string
	var dataPath string
	var outPath string
	var framesX int
	var framesY int

	var calibrationTable string
	var mongoSecret string
	var mongoDatabase string
	var mongoCollection string
	var instrumentProfile string

	var microscope string
	var camera string
	var mode string
	var magMode string
	var alpha float64
	var spot float64
	var accelerationVoltage float64
	var nominalCameralength float64
	var nominalMagnification float64
	var nominalStepX float64
	var nominalStepY float64
	var nominalPrecessionAngle float64
	var nominalSpotSize float64
	var logLevel string

	flag.StringVar(&configPath, "config", "", "Path to converter config JSON (optional)")
	flag.StringVar(&dataPath, "data", "", "Path to the .mib acquisition")
	flag.StringVar(&outPath, "out", "", "Output path for the converted container")
	flag.IntVar(&framesX, "framesX", 0, "Scan frames in X, 0 for a single frame")
	flag.IntVar(&framesY, "framesY", 0, "Scan frames in Y, 0 for a single frame")

	flag.StringVar(&calibrationTable, "calibrationTable", "", "Calibration table CSV, local path or s3://bucket/path")
	flag.StringVar(&mongoSecret, "mongoSecret", "", "Mongo secret name for a remote calibration store (optional)")
	flag.StringVar(&mongoDatabase, "mongoDatabase", "", "Mongo database holding the calibration collection")
	flag.StringVar(&mongoCollection, "mongoCollection", "calibrations", "Mongo collection holding calibration rows")
	flag.StringVar(&instrumentProfile, "instrumentProfile", "", "Instrument profile YAML (optional)")

	flag.StringVar(&microscope, "microscope", "", "Microscope name, eg 2100F")
	flag.StringVar(&camera, "camera", "", "Camera name, eg Merlin")
	flag.StringVar(&mode, "mode", "", "Illumination mode, eg TEM, NBD, STEM")
	flag.StringVar(&magMode, "magMode", "", "Magnification mode, eg MAG1, SAMAG")
	flag.Float64Var(&alpha, "alpha", math.NaN(), "Alpha (convergence) setting")
	flag.Float64Var(&spot, "spot", math.NaN(), "Spot setting")
	flag.Float64Var(&accelerationVoltage, "voltage", math.NaN(), "Acceleration voltage in V")
	flag.Float64Var(&nominalCameralength, "cameralength", math.NaN(), "Nominal cameralength in cm")
	flag.Float64Var(&nominalMagnification, "magnification", math.NaN(), "Nominal magnification")
	flag.Float64Var(&nominalStepX, "stepX", math.NaN(), "Nominal scan step X in nm")
	flag.Float64Var(&nominalStepY, "stepY", math.NaN(), "Nominal scan step Y in nm")
	flag.Float64Var(&nominalPrecessionAngle, "precessionAngle", math.NaN(), "Nominal precession angle in deg")
	flag.Float64Var(&nominalSpotSize, "spotSize", math.NaN(), "Nominal spot size in nm")
	flag.StringVar(&logLevel, "logLevel", "INFO", "Log level: DEBUG, INFO or ERROR")

	flag.Parse()

	iLog := &logger.StdOutLogger{}
	level, err := logger.GetLogLevel(logLevel)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	iLog.SetLogLevel(level)

	// Config file fills in whatever the command line didn't
	if configPath != "" {
		cfg, err := dataconverter.NewConfigFromFile(configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		if calibrationTable == "" {
			calibrationTable = cfg.CalibrationTablePath
		}
		if mongoSecret == "" {
			mongoSecret = cfg.MongoSecret
		}
		if mongoDatabase == "" {
			mongoDatabase = cfg.MongoDatabase
		}
		if cfg.MongoCollection != "" {
			mongoCollection = cfg.MongoCollection
		}
		if instrumentProfile == "" {
			instrumentProfile = cfg.InstrumentProfile
		}
	}

	if dataPath == "" || outPath == "" {
		fmt.Println("Both -data and -out are required")
		os.Exit(1)
	}
	if calibrationTable == "" && mongoDatabase == "" {
		fmt.Println("Need a calibration source: -calibrationTable or -mongoDatabase")
		os.Exit(1)
	}

	localFS := &fileaccess.FSAccess{}

	table, err := loadCalibrationTable(calibrationTable, mongoSecret, mongoDatabase, mongoCollection, iLog)
	if err != nil {
		fmt.Printf("Failed to load calibration table: %v\n", err)
		os.Exit(1)
	}
	iLog.Infof("Loaded %v calibration records", table.Length())

	params := calibration.NewMicroscopeParameters()
	setIfGiven := func(param *calibration.Parameter, value string) {
		if value != "" {
			param.SetText(value)
		}
	}
	setIfGiven(params.Microscope, microscope)
	setIfGiven(params.Camera, camera)
	setIfGiven(params.Mode, mode)
	setIfGiven(params.MagMode, magMode)
	if !math.IsNaN(alpha) {
		params.Alpha.SetNumber(alpha)
	}
	if !math.IsNaN(spot) {
		params.Spot.SetNumber(spot)
	}
	if !math.IsNaN(accelerationVoltage) {
		params.AccelerationVoltage.SetNumber(accelerationVoltage)
	}
	params.Cameralength.SetNominalNumber(nominalCameralength)
	params.Magnification.SetNominalNumber(nominalMagnification)
	params.ScanStepX.SetNominalNumber(nominalStepX)
	params.ScanStepY.SetNominalNumber(nominalStepY)
	params.PrecessionAngle.SetNominalNumber(nominalPrecessionAngle)
	params.SpotSize.SetNominalNumber(nominalSpotSize)

	det := calibration.MerlinEM
	if instrumentProfile != "" {
		profile, err := dataconverter.LoadInstrumentProfile(localFS, "", instrumentProfile)
		if err != nil {
			fmt.Printf("Failed to load instrument profile: %v\n", err)
			os.Exit(1)
		}
		profile.Apply(params)
		det = profile.MakeDetector()
	}

	converter := &dataconverter.Converter{
		FS:       localFS,
		Log:      iLog,
		TS:       &timestamper.UnixTimeNowStamper{},
		Resolver: calibration.NewResolver(iLog),
		Writer:   &jsonContainerWriter{fs: localFS},
		Detector: det,
	}

	job := dataconverter.JobParams{
		Bucket:   "",
		DataPath: dataPath,
		OutPath:  outPath,
		FramesX:  framesX,
		FramesY:  framesY,
	}

	report, err := converter.Convert(job, params, table)
	if err != nil {
		fmt.Printf("Conversion failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(report)
}

// loadCalibrationTable - CSV from local disk or S3, or a Mongo collection
func loadCalibrationTable(tablePath string, mongoSecret string, mongoDatabase string, mongoCollection string, iLog logger.ILogger) (*calibration.Table, error) {
	if mongoDatabase != "" {
		sess, err := awsutil.GetSession()
		if err != nil && mongoSecret != "" {
			return nil, fmt.Errorf("Failed to create AWS session: %v", err)
		}

		mongoClient, err := mongoDBConnection.Connect(sess, mongoSecret, iLog)
		if err != nil {
			return nil, err
		}

		collection := mongoClient.Database(mongoDatabase).Collection(mongoCollection)
		return calibstore.ReadMongo(context.TODO(), collection, iLog)
	}

	if strings.HasPrefix(tablePath, "s3://") {
		bucket, path, err := awsutil.ParseS3Uri(tablePath)
		if err != nil {
			return nil, err
		}

		sess, err := awsutil.GetSession()
		if err != nil {
			return nil, fmt.Errorf("Failed to create AWS session: %v", err)
		}
		s3svc, err := awsutil.GetS3(sess)
		if err != nil {
			return nil, fmt.Errorf("Failed to create AWS S3 service: %v", err)
		}

		remoteFS := fileaccess.MakeS3Access(s3svc)
		return calibstore.ReadCSV(remoteFS, bucket, path, iLog)
	}

	return calibstore.ReadCSV(&fileaccess.FSAccess{}, "", tablePath, iLog)
}
