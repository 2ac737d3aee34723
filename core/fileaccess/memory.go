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

package fileaccess

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/TEM-Gemini-Centre/mib2hspy/core/utils"
)

// In-memory implementation of file access, for unit tests
type MemoryAccess struct {
	files map[string][]byte
}

var errMemoryNotFound = fmt.Errorf("object not found")

func (m *MemoryAccess) key(bucket string, path string) string {
	return bucket + "/" + path
}

func (m *MemoryAccess) ListObjects(bucket string, prefix string) ([]string, error) {
	result := []string{}
	full := m.key(bucket, prefix)
	for k := range m.files {
		if strings.HasPrefix(k, full) {
			result = append(result, k[len(bucket)+1:])
		}
	}
	sort.Strings(result)
	return result, nil
}

func (m *MemoryAccess) ObjectExists(bucket string, path string) (bool, error) {
	_, ok := m.files[m.key(bucket, path)]
	return ok, nil
}

func (m *MemoryAccess) ReadObject(bucket string, path string) ([]byte, error) {
	data, ok := m.files[m.key(bucket, path)]
	if !ok {
		return nil, errMemoryNotFound
	}
	return data, nil
}

func (m *MemoryAccess) WriteObject(bucket string, path string, data []byte) error {
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[m.key(bucket, path)] = data
	return nil
}

func (m *MemoryAccess) ReadJSON(bucket string, path string, itemsPtr interface{}, emptyIfNotFound bool) error {
	data, err := m.ReadObject(bucket, path)
	if err != nil {
		if emptyIfNotFound && m.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, itemsPtr)
}

func (m *MemoryAccess) WriteJSON(bucket string, path string, itemsPtr interface{}) error {
	data, err := json.MarshalIndent(itemsPtr, "", utils.PrettyPrintIndentForJSON)
	if err != nil {
		return err
	}
	return m.WriteObject(bucket, path, data)
}

func (m *MemoryAccess) WriteJSONNoIndent(bucket string, path string, itemsPtr interface{}) error {
	data, err := json.Marshal(itemsPtr)
	if err != nil {
		return err
	}
	return m.WriteObject(bucket, path, data)
}

func (m *MemoryAccess) DeleteObject(bucket string, path string) error {
	k := m.key(bucket, path)
	if _, ok := m.files[k]; !ok {
		return errMemoryNotFound
	}
	delete(m.files, k)
	return nil
}

func (m *MemoryAccess) CopyObject(srcBucket string, srcPath string, dstBucket string, dstPath string) error {
	data, err := m.ReadObject(srcBucket, srcPath)
	if err != nil {
		return err
	}
	return m.WriteObject(dstBucket, dstPath, data)
}

func (m *MemoryAccess) IsNotFoundError(err error) bool {
	return err == errMemoryNotFound
}
