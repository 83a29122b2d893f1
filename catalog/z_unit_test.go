// Copyright 2025 Zintix Labs
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

package catalog

import (
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"a.yaml":    {Data: []byte("mode_id: 1\nmode_name: Alpha\nlogic_key: a\n")},
		"b.json":    {Data: []byte(`{"mode_id":2,"mode_name":"beta","logic_key":"b","tick_ms":250}`)},
		"notes.txt": {Data: []byte("ignored")},
	}
}

func TestCatalogRegisterAndLoad(t *testing.T) {
	c, err := New(testFS())
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	if got := c.Cfg().Names(); len(got) != 2 || got[0] != "a.yaml" || got[1] != "b.json" {
		t.Fatalf("names = %v", got)
	}
	err = c.Register(
		Entry{MID: 2, Name: "beta", Logic: "b", ConfigName: "b.json"},
		Entry{MID: 1, Name: " Alpha ", Logic: "a", ConfigName: "a.yaml"},
	)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if ids := c.IDs(); len(ids) != 2 || ids[0] != 1 {
		t.Fatalf("ids must be sorted: %v", ids)
	}
	if _, ok := c.GetByName("ALPHA"); !ok {
		t.Fatalf("name lookup must be case-insensitive")
	}
	ms, err := c.ModeSettingByID(2)
	if err != nil || ms.TickMs != 250 {
		t.Fatalf("load json: %+v %v", ms, err)
	}
	if _, err := c.ModeSettingByName("alpha"); err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if _, err := c.ModeSettingByID(99); err == nil {
		t.Fatalf("unknown id must fail")
	}
}

func TestCatalogRegisterAtomic(t *testing.T) {
	c, _ := New(testFS())
	err := c.Register(
		Entry{MID: 1, Name: "alpha", ConfigName: "a.yaml"},
		Entry{MID: 1, Name: "beta", ConfigName: "b.json"},
	)
	if err != ErrDupID {
		t.Fatalf("expected ErrDupID, got %v", err)
	}
	if len(c.IDs()) != 0 {
		t.Fatalf("failed batch must not register anything")
	}
	if err := c.Register(Entry{MID: 3, Name: "x", ConfigName: "missing.yaml"}); err == nil {
		t.Fatalf("missing config must fail")
	}
	if err := c.Register(Entry{MID: 3, Name: "x", ConfigName: "../a.yaml"}); err == nil {
		t.Fatalf("path config must fail")
	}
	c.Freeze()
	if err := c.Register(Entry{MID: 1, Name: "alpha", ConfigName: "a.yaml"}); err == nil {
		t.Fatalf("frozen catalog must reject register")
	}
}

func TestMultiFSRejects(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("no fs must fail")
	}
	nested := fstest.MapFS{"sub/a.yaml": {Data: []byte("x")}}
	if _, err := New(nested); err == nil {
		t.Fatalf("nested fs must fail")
	}
	if _, err := New(testFS(), testFS()); err == nil {
		t.Fatalf("duplicate names across fs must fail")
	}
}
