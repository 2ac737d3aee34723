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

// Loading and saving calibration tables from wherever a lab keeps them: a
// CSV file on disk, the same CSV in a shared S3 bucket, or a MongoDB
// collection with one document per calibration row. All sources produce the
// same calibration.Table.
package calibstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/calibration"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/fileaccess"
	"github.com/TEM-Gemini-Centre/mib2hspy/core/logger"
)

// ReadCSV - loads a calibration table from a CSV object. Works for local
// paths and S3 depending on the FileAccess passed in.
func ReadCSV(fs fileaccess.FileAccess, bucket string, path string, log logger.ILogger) (*calibration.Table, error) {
	data, err := fs.ReadObject(bucket, path)
	if err != nil {
		return nil, fmt.Errorf("Failed to read calibration table \"%v\": %v", path, err)
	}

	return calibration.TableFromCSV(data, log)
}

// WriteCSV - writes the table back out rectangularly
func WriteCSV(fs fileaccess.FileAccess, bucket string, path string, table *calibration.Table) error {
	data, err := table.ToCSV()
	if err != nil {
		return err
	}
	return fs.WriteObject(bucket, path, data)
}

// ReadMongo - loads a calibration table from a collection, one document per
// row. Document fields are the CSV column headers, so the same rows can
// live in either store.
func ReadMongo(ctx context.Context, collection *mongo.Collection, log logger.ILogger) (*calibration.Table, error) {
	cursor, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("Failed to query calibration collection: %v", err)
	}
	defer cursor.Close(ctx)

	rows := []calibration.Row{}

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("Failed to decode calibration document: %v", err)
		}

		row := calibration.Row{}
		for field, raw := range doc {
			if field == "_id" {
				continue
			}

			switch value := raw.(type) {
			case float64:
				row[field] = calibration.NumberValue(value)
			case int32:
				row[field] = calibration.NumberValue(float64(value))
			case int64:
				row[field] = calibration.NumberValue(float64(value))
			case string:
				row[field] = calibration.ParseCell(value)
			default:
				log.Debugf("Ignoring calibration field \"%v\" of type %T", field, raw)
			}
		}
		rows = append(rows, row)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return calibration.FromRows(rows, log), nil
}

// WriteMongo - inserts every record as its own document. Existing documents
// are left alone, the table is append-only on this side too.
func WriteMongo(ctx context.Context, collection *mongo.Collection, table *calibration.Table) error {
	rows := table.AsRows(true)
	if len(rows) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, bson.M(row))
	}

	_, err := collection.InsertMany(ctx, docs)
	return err
}
