// Copyright 2026 Rashmi Rout
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// IDMUS serializes record IDs.
var IDMUS = idSer{}

type idSer struct{}

var _ mus.Serializer[ID] = idSer{}

func (idSer) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idSer) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idSer) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

func (idSer) Skip(bs []byte) (int, error) {
	return varint.Uint64.Skip(bs)
}

// ChatMessageMUS serializes ChatMessage records for the session store.
// Timestamps are stored as microseconds since the Unix epoch.
var ChatMessageMUS = chatMessageSer{}

type chatMessageSer struct{}

var _ mus.Serializer[ChatMessage] = chatMessageSer{}

func (chatMessageSer) Marshal(m ChatMessage, bs []byte) (n int) {
	n = IDMUS.Marshal(m.Id, bs)
	n += ord.String.Marshal(m.IssueID, bs[n:])
	n += ord.String.Marshal(m.Role, bs[n:])
	n += ord.String.Marshal(m.Message, bs[n:])
	n += varint.PositiveInt.Marshal(len(m.References), bs[n:])
	for _, ref := range m.References {
		n += ord.String.Marshal(ref, bs[n:])
	}
	n += ord.Bool.Marshal(m.Fallback, bs[n:])
	n += varint.Int64.Marshal(m.Timestamp.UnixMicro(), bs[n:])
	return n
}

func (chatMessageSer) Unmarshal(bs []byte) (m ChatMessage, n int, err error) {
	var n1 int

	m.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return m, n, err
	}
	m.IssueID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return m, n, err
	}
	m.Role, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return m, n, err
	}
	m.Message, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return m, n, err
	}

	var count int
	count, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return m, n, err
	}
	if count > 0 {
		m.References = make([]string, count)
		for i := 0; i < count; i++ {
			m.References[i], n1, err = ord.String.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return m, n, err
			}
		}
	}

	m.Fallback, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return m, n, err
	}

	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return m, n, err
	}
	m.Timestamp = time.UnixMicro(micros).UTC()
	return m, n, nil
}

func (chatMessageSer) Size(m ChatMessage) (size int) {
	size = IDMUS.Size(m.Id)
	size += ord.String.Size(m.IssueID)
	size += ord.String.Size(m.Role)
	size += ord.String.Size(m.Message)
	size += varint.PositiveInt.Size(len(m.References))
	for _, ref := range m.References {
		size += ord.String.Size(ref)
	}
	size += ord.Bool.Size(m.Fallback)
	size += varint.Int64.Size(m.Timestamp.UnixMicro())
	return size
}

func (chatMessageSer) Skip(bs []byte) (n int, err error) {
	var n1 int

	n, err = IDMUS.Skip(bs)
	if err != nil {
		return n, err
	}
	for i := 0; i < 3; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return n, err
		}
	}

	var count int
	count, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return n, err
	}
	for i := 0; i < count; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return n, err
		}
	}

	n1, err = ord.Bool.Skip(bs[n:])
	n += n1
	if err != nil {
		return n, err
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return n, err
}
